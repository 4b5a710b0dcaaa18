// Package perf implements the per-request timing pipeline described in
// spec.md §5/§6: each server worker stamps five phase boundaries and hands
// them off to a single consumer goroutine that periodically logs
// aggregates, mirroring original_source/src/http/server/mod.rs's
// perf_dumper.
package perf

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DumpFrequency is the number of samples the Sampler aggregates before it
// logs totals and means, matching PERF_DUMP_FREQUENCY in
// original_source/src/http/server/mod.rs.
const DumpFrequency = 10000

// Sample carries the five wall-clock checkpoints (nanoseconds since the
// Unix epoch, per clockwork.Clock.Now().UnixNano()) a server worker
// records for one request.
type Sample struct {
	TAccept              int64
	TWorkerStart         int64
	TRequestParsed       int64
	TResponseInitialized int64
	TResponseFinished    int64
}

// phaseTotals accumulates the four inter-phase deltas across a dump window.
type phaseTotals struct {
	count                 int64
	acceptToWorker        int64
	workerToParsed        int64
	parsedToInitialized   int64
	initializedToFinished int64
}

func (t *phaseTotals) add(s Sample) {
	t.count++
	t.acceptToWorker += s.TWorkerStart - s.TAccept
	t.workerToParsed += s.TRequestParsed - s.TWorkerStart
	t.parsedToInitialized += s.TResponseInitialized - s.TRequestParsed
	t.initializedToFinished += s.TResponseFinished - s.TResponseInitialized
}

// Sampler receives Sample values over a bounded channel and logs
// per-phase means every DumpFrequency samples. A full channel means the
// sample is dropped rather than blocking the worker that produced it
// (spec.md §5, §6).
type Sampler struct {
	ch     chan Sample
	clock  clockwork.Clock
	log    *zap.SugaredLogger
	every  int
	totals phaseTotals
}

// NewSampler constructs a Sampler with a channel buffer of size capacity.
// clock and log default to a real clock and a no-op logger when nil.
func NewSampler(capacity int, clock clockwork.Clock, log *zap.SugaredLogger) *Sampler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sampler{
		ch:    make(chan Sample, capacity),
		clock: clock,
		log:   log,
		every: DumpFrequency,
	}
}

// TrySend offers s to the sampler without blocking; it reports whether the
// sample was accepted. A false return means the channel was full and the
// sample was dropped.
func (s *Sampler) TrySend(sample Sample) bool {
	select {
	case s.ch <- sample:
		return true
	default:
		s.log.Warnf("perf: sample dropped, channel full (cap=%d)", cap(s.ch))
		return false
	}
}

// Run consumes samples until ctx is cancelled or the channel is closed,
// logging aggregated phase means every DumpFrequency samples.
func (s *Sampler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-s.ch:
			if !ok {
				return
			}
			s.totals.add(sample)
			if s.totals.count >= int64(s.every) {
				s.dump()
				s.totals = phaseTotals{}
			}
		}
	}
}

// dump logs per-phase totals and means for the current window.
func (s *Sampler) dump() {
	n := s.totals.count
	if n == 0 {
		return
	}
	s.log.Infof(
		"perf: n=%d accept->worker total=%dns mean=%dns worker->parsed total=%dns mean=%dns parsed->initialized total=%dns mean=%dns initialized->finished total=%dns mean=%dns",
		n,
		s.totals.acceptToWorker, s.totals.acceptToWorker/n,
		s.totals.workerToParsed, s.totals.workerToParsed/n,
		s.totals.parsedToInitialized, s.totals.parsedToInitialized/n,
		s.totals.initializedToFinished, s.totals.initializedToFinished/n,
	)
}

// Close closes the sample channel, causing a running Run to return once
// drained.
func (s *Sampler) Close() {
	close(s.ch)
}
