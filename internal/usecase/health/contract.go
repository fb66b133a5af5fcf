package health

import "context"

// StorePinger checks record store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// CategorizerChecker checks categorizer provider availability.
type CategorizerChecker interface {
	HealthCheck(ctx context.Context) error
}
