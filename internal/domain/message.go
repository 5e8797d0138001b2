package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// RawMessage is an unprocessed message from the readings topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Header names that may carry routing fields missing from the payload.
const (
	HeaderKind     = "kind"
	HeaderSensorID = "sensor_id"
)

// ErrInvalidReading marks a message that cannot become a SensorReading.
var ErrInvalidReading = errors.New("invalid reading")

// ParseSensorReading decodes a message into a SensorReading. Kind and sensor
// id fall back to the message headers; the timestamp falls back to the
// message time. The result is truncated to the hour in UTC.
func ParseSensorReading(raw RawMessage) (SensorReading, error) {
	var r SensorReading
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return SensorReading{}, fmt.Errorf("parse sensor reading: %w", err)
	}

	if r.Kind == "" {
		r.Kind = SourceKind(raw.Headers[HeaderKind])
	}
	r.Kind = SourceKind(strings.ToLower(string(r.Kind)))
	if !r.Kind.Valid() {
		return SensorReading{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidReading, r.Kind)
	}

	if r.SensorID == "" {
		r.SensorID = raw.Headers[HeaderSensorID]
	}
	r.SensorID = strings.TrimSpace(r.SensorID)
	if r.SensorID == "" {
		return SensorReading{}, fmt.Errorf("%w: missing sensor_id", ErrInvalidReading)
	}

	if r.Timestamp.IsZero() {
		r.Timestamp = raw.Timestamp
	}
	if r.Timestamp.IsZero() {
		return SensorReading{}, fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Hour)

	if r.PType != "" {
		r.PType = ParsePrecipType(string(r.PType))
	}
	return r, nil
}
