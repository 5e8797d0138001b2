package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/road-weather-service/internal/domain"
	"github.com/couchcryptid/road-weather-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer converts a raw message into a sensor reading.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.SensorReading, error)
}

// BatchLoader writes a batch of readings to the reading store.
type BatchLoader interface {
	SaveReadings(ctx context.Context, readings []domain.SensorReading) error
}

// Pipeline consumes sensor readings and writes them to the hourly store.
// Offsets are committed only after the readings they carry are stored.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	retry       backoff
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		retry:       newBackoff(),
	}
}

// Ready reports whether at least one batch has been stored.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once a batch has been stored, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not stored any readings yet")
	}
	return nil
}

// Run consumes batches until the context is cancelled. Extract and store
// failures are retried with exponential backoff; Run itself only returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		err := p.ingest(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		p.logger.Error("ingest failed", "error", err, "retry_in", p.retry.delay)
		if !p.retry.wait(ctx) {
			break
		}
	}

	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// ingest runs one extract, decode, store and commit cycle.
func (p *Pipeline) ingest(ctx context.Context) error {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("extract batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	p.metrics.ReadingsConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.retry.reset()

	readings, accepted := p.decode(ctx, batch)
	if len(readings) == 0 {
		return nil
	}
	readings = coalesce(readings)

	if err := p.loader.SaveReadings(ctx, readings); err != nil {
		return fmt.Errorf("store %d readings: %w", len(readings), err)
	}
	p.metrics.ReadingsStored.Add(float64(len(readings)))

	for _, raw := range accepted {
		p.commit(ctx, raw)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

// decode transforms every message in the batch. Unparseable messages are
// committed immediately so a poison message cannot stall the partition.
func (p *Pipeline) decode(ctx context.Context, batch []domain.RawMessage) ([]domain.SensorReading, []domain.RawMessage) {
	readings := make([]domain.SensorReading, 0, len(batch))
	accepted := make([]domain.RawMessage, 0, len(batch))
	for _, raw := range batch {
		r, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("unparseable reading, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		readings = append(readings, r)
		accepted = append(accepted, raw)
	}
	return readings, accepted
}

type hourKey struct {
	kind   domain.SourceKind
	sensor string
	hour   int64
}

// coalesce keeps the last reading per sensor and hour, in first-seen order.
// The store holds one row per hour, so earlier duplicates would only be
// overwritten.
func coalesce(readings []domain.SensorReading) []domain.SensorReading {
	out := readings[:0:0]
	seen := make(map[hourKey]int, len(readings))
	for _, r := range readings {
		k := hourKey{kind: r.Kind, sensor: r.SensorID, hour: r.Timestamp.Unix()}
		if i, ok := seen[k]; ok {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// backoff doubles its delay after every wait, capped at maxBackoff.
type backoff struct {
	delay time.Duration
}

func newBackoff() backoff {
	return backoff{delay: initialBackoff}
}

func (b *backoff) reset() {
	b.delay = initialBackoff
}

// wait sleeps for the current delay and returns false if ctx ends first.
func (b *backoff) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	b.delay = min(b.delay*2, maxBackoff)
	return true
}
