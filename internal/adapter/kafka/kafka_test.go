package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("Saaritie"),
		Value:     []byte(`{"kind":"ws100"}`),
		Topic:     "raw-sensor-readings",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.HeaderSensorID, Value: []byte("Saaritie")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("Saaritie"), raw.Key)
	assert.JSONEq(t, `{"kind":"ws100"}`, string(raw.Value))
	assert.Equal(t, "raw-sensor-readings", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "Saaritie", raw.Headers[domain.HeaderSensorID])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	generated := time.Date(2024, 11, 2, 6, 0, 0, 0, time.UTC)
	zf := domain.ZoneForecast{
		ID:           "f-1",
		Zone:         "jyvaskyla",
		ForecastDays: 3,
		RoadForecast: domain.RoadForecast{
			GeneratedAt: generated,
			Stats: domain.RoadForecastStats{
				MaxSlipperyScore24h: 85,
				RiskLevel24h:        domain.RiskHigh,
			},
		},
	}

	msg, err := serializeToMessage(zf)
	require.NoError(t, err)

	assert.Equal(t, []byte("jyvaskyla"), msg.Key)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "forecast_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("f-1"), msg.Headers[0].Value)
	assert.Equal(t, []byte("high"), msg.Headers[1].Value)
	assert.Equal(t, []byte("85"), msg.Headers[2].Value)
	assert.Equal(t, []byte(generated.Format(time.RFC3339)), msg.Headers[3].Value)

	var decoded domain.ZoneForecast
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "jyvaskyla", decoded.Zone)
	assert.Equal(t, 3, decoded.ForecastDays)
	assert.Equal(t, domain.RiskHigh, decoded.Stats.RiskLevel24h)
	assert.True(t, generated.Equal(decoded.GeneratedAt))
	assert.Contains(t, string(msg.Value), `"max_slippery_score_24h":85`)
}
