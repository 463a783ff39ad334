// Package stats tracks statistics about pipeline runs and optionally mirrors
// them to OpenTelemetry counters.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used for OpenTelemetry counters
const MeterName = "github.com/go-sif/etl"

const statisticRollingWindows = 5

// RunStatistics contains statistics about a pipeline run. It is safe for
// concurrent use, as parallel pipelines record into the same instance.
type RunStatistics struct {
	lock                    sync.Mutex
	started                 bool
	finished                bool
	startTime               time.Time
	totalRuntime            time.Duration
	batchesIn               int64
	batchesOut              int64
	rowsIn                  int64
	rowsOut                 int64
	batchesSkipped          int64
	pipeRuntimes            map[string]time.Duration // cumulative runtime per pipe name
	recentBatchRuntimes     []time.Duration          // for rolling average of recent batch processing times
	recentBatchRuntimesHead int
	counters                *counters
}

type counters struct {
	rowsIn         metric.Int64Counter
	rowsOut        metric.Int64Counter
	batchesOut     metric.Int64Counter
	batchesSkipped metric.Int64Counter
	pipeDuration   metric.Float64Histogram
}

// New creates RunStatistics which are not mirrored anywhere
func New() *RunStatistics {
	return &RunStatistics{
		pipeRuntimes:        make(map[string]time.Duration),
		recentBatchRuntimes: make([]time.Duration, statisticRollingWindows),
	}
}

// NewWithMeter creates RunStatistics which also record OpenTelemetry
// instruments on meter. A nil meter uses the global meter provider.
func NewWithMeter(meter metric.Meter) (*RunStatistics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}
	rs := New()
	c := &counters{}
	var err error
	if c.rowsIn, err = meter.Int64Counter("etl.rows.in", metric.WithDescription("Rows pulled from extractors")); err != nil {
		return nil, fmt.Errorf("creating etl.rows.in counter: %w", err)
	}
	if c.rowsOut, err = meter.Int64Counter("etl.rows.out", metric.WithDescription("Rows yielded by pipelines")); err != nil {
		return nil, fmt.Errorf("creating etl.rows.out counter: %w", err)
	}
	if c.batchesOut, err = meter.Int64Counter("etl.batches.out", metric.WithDescription("Batches yielded by pipelines")); err != nil {
		return nil, fmt.Errorf("creating etl.batches.out counter: %w", err)
	}
	if c.batchesSkipped, err = meter.Int64Counter("etl.batches.skipped", metric.WithDescription("Batches whose remaining pipes were skipped after an error")); err != nil {
		return nil, fmt.Errorf("creating etl.batches.skipped counter: %w", err)
	}
	if c.pipeDuration, err = meter.Float64Histogram("etl.pipe.duration", metric.WithDescription("Duration of a single pipe invocation"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating etl.pipe.duration histogram: %w", err)
	}
	rs.counters = c
	return rs, nil
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *RunStatistics) Start() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		rs.started = true
		rs.startTime = time.Now()
	}
}

// Finish completes statistics tracking. Nested pipelines sharing these
// statistics each call Finish; the last call wins.
func (rs *RunStatistics) Finish() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.started {
		rs.finished = true
		rs.totalRuntime = time.Since(rs.startTime)
	}
}

// BatchIn records a batch pulled from a source
func (rs *RunStatistics) BatchIn(ctx context.Context, numRows int) {
	rs.lock.Lock()
	rs.batchesIn++
	rs.rowsIn += int64(numRows)
	rs.lock.Unlock()
	if rs.counters != nil {
		rs.counters.rowsIn.Add(ctx, int64(numRows))
	}
}

// BatchOut records a batch yielded after the pipe chain ran, and how long the chain took
func (rs *RunStatistics) BatchOut(ctx context.Context, numRows int, elapsed time.Duration) {
	rs.lock.Lock()
	rs.batchesOut++
	rs.rowsOut += int64(numRows)
	rs.recentBatchRuntimes[rs.recentBatchRuntimesHead] = elapsed
	rs.recentBatchRuntimesHead = (rs.recentBatchRuntimesHead + 1) % len(rs.recentBatchRuntimes)
	rs.lock.Unlock()
	if rs.counters != nil {
		rs.counters.rowsOut.Add(ctx, int64(numRows))
		rs.counters.batchesOut.Add(ctx, 1)
	}
}

// BatchSkipped records a batch whose remaining pipes were skipped
func (rs *RunStatistics) BatchSkipped(ctx context.Context, pipe string) {
	rs.lock.Lock()
	rs.batchesSkipped++
	rs.lock.Unlock()
	if rs.counters != nil {
		rs.counters.batchesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("pipe", pipe)))
	}
}

// PipeRan records the runtime of a single pipe invocation
func (rs *RunStatistics) PipeRan(ctx context.Context, pipe string, elapsed time.Duration) {
	rs.lock.Lock()
	rs.pipeRuntimes[pipe] += elapsed
	rs.lock.Unlock()
	if rs.counters != nil {
		rs.counters.pipeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("pipe", pipe)))
	}
}

// GetStartTime returns the start time of the run
func (rs *RunStatistics) GetStartTime() time.Time {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.startTime
}

// GetRuntime returns the running time of the run
func (rs *RunStatistics) GetRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.finished {
		return rs.totalRuntime
	}
	if !rs.started {
		return 0
	}
	return time.Since(rs.startTime)
}

// GetNumRowsIn returns the number of Rows pulled from sources so far
func (rs *RunStatistics) GetNumRowsIn() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rowsIn
}

// GetNumRowsOut returns the number of Rows yielded so far
func (rs *RunStatistics) GetNumRowsOut() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rowsOut
}

// GetNumBatchesIn returns the number of batches pulled from sources so far
func (rs *RunStatistics) GetNumBatchesIn() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.batchesIn
}

// GetNumBatchesOut returns the number of batches yielded so far
func (rs *RunStatistics) GetNumBatchesOut() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.batchesOut
}

// GetNumBatchesSkipped returns the number of batches whose pipes were skipped after an error
func (rs *RunStatistics) GetNumBatchesSkipped() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.batchesSkipped
}

// GetPipeRuntimes returns the cumulative runtime of every pipe, by name
func (rs *RunStatistics) GetPipeRuntimes() map[string]time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	out := make(map[string]time.Duration, len(rs.pipeRuntimes))
	for k, v := range rs.pipeRuntimes {
		out[k] = v
	}
	return out
}

// GetCurrentBatchProcessingTime returns a rolling average of batch processing time
func (rs *RunStatistics) GetCurrentBatchProcessingTime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	var total time.Duration
	for _, d := range rs.recentBatchRuntimes {
		total += d
	}
	return total / statisticRollingWindows
}
