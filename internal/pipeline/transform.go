package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/road-weather-service/internal/domain"
)

// ReadingTransformer implements Transformer by decoding sensor readings.
// When a sensor allowlist is set, readings from other sensors are rejected.
type ReadingTransformer struct {
	sensors map[string]struct{}
	logger  *slog.Logger
}

// NewTransformer creates a ReadingTransformer. Pass no sensor ids to accept
// readings from any sensor.
func NewTransformer(logger *slog.Logger, sensorIDs ...string) *ReadingTransformer {
	t := &ReadingTransformer{logger: logger}
	if len(sensorIDs) > 0 {
		t.sensors = make(map[string]struct{}, len(sensorIDs))
		for _, id := range sensorIDs {
			t.sensors[id] = struct{}{}
		}
	}
	return t
}

func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.SensorReading, error) {
	r, err := domain.ParseSensorReading(raw)
	if err != nil {
		return domain.SensorReading{}, err
	}
	if t.sensors != nil {
		if _, ok := t.sensors[r.SensorID]; !ok {
			t.logger.Debug("rejecting reading from unregistered sensor", "sensor_id", r.SensorID, "kind", r.Kind)
			return domain.SensorReading{}, fmt.Errorf("%w: unknown sensor %q", domain.ErrInvalidReading, r.SensorID)
		}
	}
	return r, nil
}
