package perf

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrySendAcceptsUntilFull(t *testing.T) {
	s := NewSampler(2, nil, nil)
	assert.True(t, s.TrySend(Sample{}))
	assert.True(t, s.TrySend(Sample{}))
	assert.False(t, s.TrySend(Sample{}), "third send should be dropped on a capacity-2 channel")
}

func TestRunDumpsEveryFrequencySamples(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))

	s := NewSampler(DumpFrequency, clock, logger)
	s.every = 2

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.True(t, s.TrySend(Sample{TAccept: 0, TWorkerStart: 10, TRequestParsed: 20, TResponseInitialized: 30, TResponseFinished: 40}))
	require.True(t, s.TrySend(Sample{TAccept: 0, TWorkerStart: 20, TRequestParsed: 40, TResponseInitialized: 60, TResponseFinished: 80}))

	require.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("perf: n=2").Len() == 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestCloseStopsRun(t *testing.T) {
	s := NewSampler(1, nil, nil)
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	s.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}
