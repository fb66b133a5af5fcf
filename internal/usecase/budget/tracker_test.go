package budget

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dombudget "github.com/kailas-cloud/readdigest/internal/domain/budget"
)

func newTestTracker(ceiling int64) *Tracker {
	return NewTracker("test", ceiling, 0.8, NewNaiveEstimator(2), zap.NewNop())
}

func TestAddUsage_BelowWarning(t *testing.T) {
	bt := newTestTracker(1000)

	ok, msg := bt.AddUsage(100)
	require.True(t, ok)
	assert.Empty(t, msg)
}

func TestAddUsage_Warning(t *testing.T) {
	bt := newTestTracker(1000)

	ok, msg := bt.AddUsage(800)
	require.True(t, ok, "warning fraction is still permitted")
	assert.Contains(t, msg, "WARNING")
	assert.Contains(t, msg, "80.0%")
}

func TestAddUsage_ExceededStillCharges(t *testing.T) {
	bt := newTestTracker(1000)

	ok, msg := bt.AddUsage(1000)
	require.False(t, ok, "ratio 1.0 is not permitted")
	assert.Contains(t, msg, "BUDGET EXCEEDED")
	assert.Equal(t, int64(1000), bt.Used(), "usage is recorded post-hoc")

	ok, _ = bt.AddUsage(5)
	assert.False(t, ok)
	assert.Equal(t, int64(1005), bt.Used())
}

func TestAddUsage_ZeroCeiling(t *testing.T) {
	bt := newTestTracker(0)

	ok, msg := bt.AddUsage(1)
	require.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestAddUsage_ZeroCostIsNoop(t *testing.T) {
	for _, ceiling := range []int64{0, 1000} {
		bt := newTestTracker(ceiling)
		ok, msg := bt.AddUsage(0)
		assert.True(t, ok, "ceiling %d", ceiling)
		assert.Empty(t, msg, "ceiling %d", ceiling)
		assert.Zero(t, bt.Used(), "ceiling %d", ceiling)
	}
}

func TestAddUsage_NegativeIgnored(t *testing.T) {
	bt := newTestTracker(1000)
	bt.AddUsage(10)

	ok, msg := bt.AddUsage(-5)
	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, int64(10), bt.Used(), "usage never decreases")
}

func TestAddUsage_Monotonic(t *testing.T) {
	bt := newTestTracker(50)
	costs := []int64{10, 0, 25, 30, 1, 100}

	var sum, prev int64
	for _, c := range costs {
		bt.AddUsage(c)
		sum += c
		require.GreaterOrEqual(t, bt.Used(), prev)
		prev = bt.Used()
	}
	assert.Equal(t, sum, bt.Used())
}

func TestAddUsage_Concurrent(t *testing.T) {
	bt := newTestTracker(1_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bt.AddUsage(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), bt.Used())
}

func TestStatus_SideEffectFree(t *testing.T) {
	bt := newTestTracker(1000)
	bt.AddUsage(250)

	first := bt.Status()
	assert.Equal(t, first, bt.Status())
	assert.Equal(t, "📊 Token Usage: 250/1000 (25.0%)", first)
	assert.Equal(t, int64(250), bt.Used(), "Status must not charge")
}

func TestSnapshot(t *testing.T) {
	bt := newTestTracker(1000)
	bt.AddUsage(900)

	s := bt.Snapshot()
	assert.Equal(t, dombudget.LevelWarning, s.Level())
	assert.Equal(t, int64(100), s.Remaining())
}

func TestNewTracker_DefaultWarningFraction(t *testing.T) {
	bt := NewTracker("test", 100, 0, nil, zap.NewNop())
	assert.InDelta(t, dombudget.DefaultWarningFraction, bt.Snapshot().WarningFraction(), 1e-9)
	assert.Equal(t, ModeNaive, bt.EstimatorMode(), "nil estimator defaults to naive")
}

// --- Mock Ledger ---

type mockLedger struct {
	mu     sync.Mutex
	data   map[string]int64
	setErr error
}

func newMockLedger() *mockLedger {
	return &mockLedger{data: make(map[string]int64)}
}

func (m *mockLedger) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func TestWithLedger_WritesBehind(t *testing.T) {
	ledger := newMockLedger()
	bt := newTestTracker(1000).WithLedger(ledger)

	bt.AddUsage(300)
	bt.AddUsage(1000)

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	require.Len(t, ledger.data, 1, "one daily key")
	for key, val := range ledger.data {
		assert.Regexp(t, `^readdigest:budget:test:daily:`, key)
		assert.Equal(t, int64(1300), val, "exceeded charges are kept")
	}
}

func TestWithLedger_ErrorDoesNotAffectOutcome(t *testing.T) {
	ledger := newMockLedger()
	ledger.setErr = errors.New("connection refused")
	bt := newTestTracker(1000).WithLedger(ledger)

	ok, msg := bt.AddUsage(10)
	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, int64(10), bt.Used())
}
