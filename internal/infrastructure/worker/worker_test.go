package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/service"
)

type fakeDrainer struct {
	mu      sync.Mutex
	calls   int
	batches []int
	stats   service.DrainStats
	backlog int
}

func (f *fakeDrainer) Drain(_ context.Context, batchSize int) (service.DrainStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, batchSize)
	return f.stats, nil
}

func (f *fakeDrainer) Backlog(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backlog, nil
}

func (f *fakeDrainer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDrainWorker_PollsOnInterval(t *testing.T) {
	drainer := &fakeDrainer{stats: service.DrainStats{Fetched: 1, Resolved: 1}}
	w := NewDrainWorker(DrainWorkerConfig{
		DrainInterval: 10 * time.Millisecond,
		BatchSize:     5,
	}, drainer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return drainer.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	drainer.mu.Lock()
	assert.Equal(t, 5, drainer.batches[0])
	drainer.mu.Unlock()
}

func TestDrainWorker_StartTwiceFails(t *testing.T) {
	w := NewDrainWorker(DefaultDrainWorkerConfig(), &fakeDrainer{}, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestDrainWorker_StopHaltsPolling(t *testing.T) {
	drainer := &fakeDrainer{}
	w := NewDrainWorker(DrainWorkerConfig{
		DrainInterval: 5 * time.Millisecond,
		BatchSize:     1,
	}, drainer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return drainer.callCount() >= 1
	}, time.Second, time.Millisecond)

	require.NoError(t, w.Stop())
	settled := drainer.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, drainer.callCount(), settled+1)

	// Stopping again is a no-op
	require.NoError(t, w.Stop())
}

func TestDrainWorker_DefaultsApplied(t *testing.T) {
	w := NewDrainWorker(DrainWorkerConfig{}, &fakeDrainer{}, zap.NewNop())
	assert.Equal(t, DefaultDrainWorkerConfig().DrainInterval, w.config.DrainInterval)
	assert.Equal(t, DefaultDrainWorkerConfig().BatchSize, w.config.BatchSize)
	assert.Equal(t, "DrainWorker", w.Name())
}

type stubWorker struct {
	name    string
	started bool
	stopped bool
	failSt  bool
}

func (s *stubWorker) Start(context.Context) error {
	if s.failSt {
		return context.DeadlineExceeded
	}
	s.started = true
	return nil
}

func (s *stubWorker) Stop() error {
	s.stopped = true
	return nil
}

func (s *stubWorker) Name() string { return s.name }

func TestManager_StartsAndStopsAll(t *testing.T) {
	m := NewManager(zap.NewNop())
	a := &stubWorker{name: "a"}
	b := &stubWorker{name: "b"}
	m.Register(a)
	m.Register(b)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, a.started)
	assert.True(t, b.started)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
}

func TestManager_ContinuesPastFailedWorker(t *testing.T) {
	m := NewManager(zap.NewNop())
	bad := &stubWorker{name: "bad", failSt: true}
	good := &stubWorker{name: "good"}
	m.Register(bad)
	m.Register(good)

	// A failed worker is logged and skipped; the rest still start
	require.NoError(t, m.StartAll(context.Background()))
	assert.False(t, bad.started)
	assert.True(t, good.started)
}
