package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
	Budget string                 `json:"budget,omitempty"`
}

// BudgetStatus reports the tracker snapshot line.
type BudgetStatus interface {
	Status() string
}

// Service coordinates health checks.
type Service struct {
	store       StorePinger
	categorizer CategorizerChecker
	budget      BudgetStatus
}

// New creates a Service. Any argument can be nil; nil components are not checked.
func New(store StorePinger, categorizer CategorizerChecker, budget BudgetStatus) *Service {
	return &Service{store: store, categorizer: categorizer, budget: budget}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		checks["store"] = result(s.store.Ping(ctx))
	}
	if s.categorizer != nil {
		checks["categorizer"] = result(s.categorizer.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	r := Report{Status: status, Checks: checks}
	if s.budget != nil {
		r.Budget = s.budget.Status()
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
