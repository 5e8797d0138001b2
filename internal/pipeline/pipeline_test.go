package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
	"github.com/couchcryptid/road-weather-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.SensorReading, error) {
	if m.err != nil {
		return domain.SensorReading{}, m.err
	}
	return domain.SensorReading{Kind: domain.SourceLHT, SensorID: string(raw.Key), Timestamp: raw.Timestamp}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.SensorReading
	failures int
}

func (m *mockLoader) SaveReadings(_ context.Context, readings []domain.SensorReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("redis unavailable")
	}
	m.loaded = append(m.loaded, readings...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawMessage(sensor string, hour int) domain.RawMessage {
	return domain.RawMessage{
		Key:       []byte(sensor),
		Value:     []byte(`{}`),
		Topic:     "raw-sensor-readings",
		Timestamp: time.Date(2024, 10, 1, hour, 0, 0, 0, time.UTC),
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawMessage{
		{rawMessage("Kaunisharjuntie", 0), rawMessage("Kaunisharjuntie", 1)},
		{rawMessage("Kaunisharjuntie", 2)},
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 3, ldr.count())
	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ReadingsConsumed))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ReadingsStored))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int32
	raw := rawMessage("Saaritie", 0)
	raw.Commit = func(context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{err: domain.ErrInvalidReading}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, ldr.count())
	assert.False(t, p.Ready())
	assert.Equal(t, int32(1), commits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var committed atomic.Bool
	ldr := &mockLoader{}

	raw := rawMessage("Kaunisharjuntie", 4)
	raw.Commit = func(context.Context) error {
		// Offsets must only move once the reading is stored.
		assert.Equal(t, 1, ldr.count())
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{raw}}}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, committed.Load())
}

func TestPipeline_Run_RetriesAfterLoadFailure(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawMessage{
		{rawMessage("a", 0)},
		{rawMessage("a", 1)},
	}}
	ldr := &mockLoader{failures: 1}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	// The failed batch is not committed; Kafka redelivers it after a rebalance.
	assert.Equal(t, 1, ldr.count())
	assert.True(t, p.Ready())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker down")}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, p.Ready())
}

func TestPipeline_Run_CoalescesSameHour(t *testing.T) {
	var commits atomic.Int32
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}
	first := rawMessage("Kaunisharjuntie", 3)
	first.Commit = commit
	second := rawMessage("Kaunisharjuntie", 3)
	second.Commit = commit

	ext := &mockExtractor{batches: [][]domain.RawMessage{{first, second, rawMessage("Saaritie", 3)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, ldr.count())
	assert.Equal(t, int32(2), commits.Load(), "every source message is committed")
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ReadingsConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ReadingsStored))
}
