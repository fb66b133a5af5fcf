package budget

import "fmt"

// DefaultWarningFraction is the usage ratio at which warnings start.
const DefaultWarningFraction = 0.8

// Level classifies a usage ratio against the ceiling.
type Level string

// Budget levels.
const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelExceeded Level = "exceeded"
)

// Snapshot is a point-in-time view of cost-unit consumption (immutable value object).
type Snapshot struct {
	used            int64
	ceiling         int64
	warningFraction float64
}

// New creates a Snapshot.
func New(used, ceiling int64, warningFraction float64) Snapshot {
	return Snapshot{used: used, ceiling: ceiling, warningFraction: warningFraction}
}

// Used returns cumulative cost units consumed.
func (s Snapshot) Used() int64 { return s.used }

// Ceiling returns the cost-unit ceiling.
func (s Snapshot) Ceiling() int64 { return s.ceiling }

// WarningFraction returns the ratio at which warnings start.
func (s Snapshot) WarningFraction() float64 { return s.warningFraction }

// Ratio returns used/ceiling. A ceiling of zero or less is always exhausted (1.0).
func (s Snapshot) Ratio() float64 {
	if s.ceiling <= 0 {
		return 1
	}
	return float64(s.used) / float64(s.ceiling)
}

// Remaining returns cost units left before the ceiling, never negative.
func (s Snapshot) Remaining() int64 {
	if s.used >= s.ceiling {
		return 0
	}
	return s.ceiling - s.used
}

// Level classifies the snapshot.
func (s Snapshot) Level() Level {
	r := s.Ratio()
	switch {
	case r >= 1:
		return LevelExceeded
	case r >= s.warningFraction:
		return LevelWarning
	default:
		return LevelOK
	}
}

// String renders "used/ceiling (pct%)".
func (s Snapshot) String() string {
	return fmt.Sprintf("%d/%d (%.1f%%)", s.used, s.ceiling, s.Ratio()*100)
}
