package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/domain"
	dombudget "github.com/kailas-cloud/readdigest/internal/domain/budget"
)

// Ledger is the persistence interface for the audit trail of charged usage.
// Implementations must tolerate repeated IncrBy calls on the same key.
type Ledger interface {
	IncrBy(ctx context.Context, key string, val int64) error
}

// Tracker accumulates cost units against a ceiling.
// Usage is recorded before the ceiling is checked, so every charge is kept
// even when the call reports the budget as exceeded.
// Safe for concurrent use; one Tracker is one BudgetState.
type Tracker struct {
	mu              sync.Mutex
	used            int64
	ceiling         int64
	warningFraction float64
	scope           string
	estimator       Estimator
	ledger          Ledger
	ledgerTimeout   time.Duration
	logger          *zap.Logger
}

// NewTracker creates a tracker. warningFraction outside (0,1] selects the default.
func NewTracker(
	scope string, ceiling int64, warningFraction float64,
	estimator Estimator, logger *zap.Logger,
) *Tracker {
	if warningFraction <= 0 || warningFraction > 1 {
		warningFraction = dombudget.DefaultWarningFraction
	}
	if estimator == nil {
		estimator = NewNaiveEstimator(DefaultNaiveDivisor)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		ceiling:         ceiling,
		warningFraction: warningFraction,
		scope:           scope,
		estimator:       estimator,
		ledgerTimeout:   2 * time.Second,
		logger:          logger,
	}
}

// WithLedger attaches a write-behind audit ledger.
func (t *Tracker) WithLedger(l Ledger) *Tracker {
	t.ledger = l
	return t
}

// Estimate returns the cost of text using the configured strategy.
func (t *Tracker) Estimate(text string) int64 {
	return t.estimator.Estimate(text)
}

// EstimatorMode names the active estimation strategy.
func (t *Tracker) EstimatorMode() string {
	return t.estimator.Mode()
}

// AddUsage charges cost and reports whether work may proceed.
// The message is empty below the warning fraction, a warning at or above it,
// and the exceeded notice once the ceiling is reached.
func (t *Tracker) AddUsage(cost int64) (bool, string) {
	if cost <= 0 {
		if cost < 0 {
			t.logger.Warn("Ignoring negative cost", zap.Int64("cost", cost))
		}
		return true, ""
	}

	t.mu.Lock()
	t.used += cost
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.persist(cost)

	switch snap.Level() {
	case dombudget.LevelExceeded:
		t.logger.Warn("Token budget exceeded",
			zap.String("scope", t.scope),
			zap.Int64("used", snap.Used()),
			zap.Int64("ceiling", snap.Ceiling()),
		)
		return false, ExceededMessage(snap)
	case dombudget.LevelWarning:
		return true, WarningMessage(snap)
	default:
		return true, ""
	}
}

// Status renders the current usage. It has no side effects.
func (t *Tracker) Status() string {
	return StatusMessage(t.Snapshot())
}

// Snapshot returns the current usage state.
func (t *Tracker) Snapshot() dombudget.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Used returns cumulative cost units charged.
func (t *Tracker) Used() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

// Ceiling returns the configured ceiling.
func (t *Tracker) Ceiling() int64 { return t.ceiling }

func (t *Tracker) snapshotLocked() dombudget.Snapshot {
	return dombudget.New(t.used, t.ceiling, t.warningFraction)
}

// persist writes the charge behind to the ledger. Failures are logged only.
func (t *Tracker) persist(cost int64) {
	if t.ledger == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.ledgerTimeout)
	defer cancel()

	key := t.dailyKey(time.Now().UTC())
	if err := t.ledger.IncrBy(ctx, key, cost); err != nil {
		t.logger.Warn("Failed to persist budget charge", zap.String("key", key), zap.Error(err))
	}
}

func (t *Tracker) dailyKey(now time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, t.scope, now.Format("2006-01-02"))
}

// ExceededMessage is the notice returned when the ceiling is reached.
func ExceededMessage(s dombudget.Snapshot) string {
	return fmt.Sprintf("⛔ BUDGET EXCEEDED: %d/%d tokens used. Task stopped.", s.Used(), s.Ceiling())
}

// WarningMessage is the notice returned past the warning fraction.
func WarningMessage(s dombudget.Snapshot) string {
	return fmt.Sprintf("⚠️ WARNING: %.1f%% of token budget used (%d/%d)",
		s.Ratio()*100, s.Used(), s.Ceiling())
}

// StatusMessage renders a usage snapshot.
func StatusMessage(s dombudget.Snapshot) string {
	return "📊 Token Usage: " + s.String()
}
