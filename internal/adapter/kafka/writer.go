package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/config"
	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces road forecast summaries to a Kafka topic.
// It implements service.ForecastPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishForecasts serializes and publishes zone forecasts in a single
// WriteMessages call. Messages are keyed by zone so a zone's summaries stay
// ordered on one partition.
func (w *Writer) PublishForecasts(ctx context.Context, forecasts []domain.ZoneForecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(forecasts))
	for i := range forecasts {
		msg, err := serializeToMessage(forecasts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish forecasts: %w", err)
	}
	w.logger.Debug("published forecasts", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ZoneForecast into a Kafka message.
func serializeToMessage(zf domain.ZoneForecast) (kafkago.Message, error) {
	data, err := json.Marshal(zf)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize zone forecast: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(zf.Zone),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "forecast_id", Value: []byte(zf.ID)},
			{Key: "risk_level_24h", Value: []byte(zf.Stats.RiskLevel24h)},
			{Key: "max_slippery_score_24h", Value: []byte(strconv.Itoa(zf.Stats.MaxSlipperyScore24h))},
			{Key: "generated_at", Value: []byte(zf.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
