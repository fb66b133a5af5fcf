package digest

import (
	"context"

	dombudget "github.com/kailas-cloud/readdigest/internal/domain/budget"
	"github.com/kailas-cloud/readdigest/internal/domain/notify"
	"github.com/kailas-cloud/readdigest/internal/domain/record"
)

// Parser extracts plain text from a document.
type Parser interface {
	Parse(path string) (string, error)
}

// RecordStore is the cross-run dedup authority.
type RecordStore interface {
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	// Append skips records whose ID is already stored and returns how many it wrote.
	Append(ctx context.Context, recs []record.Record) (int, error)
	// Locator is a human-facing link to the stored records, or "".
	Locator() string
}

// HeaderEnsurer is implemented by stores with a schema row.
type HeaderEnsurer interface {
	EnsureHeader(ctx context.Context) error
}

// Notifier delivers progress and summary messages. It never returns an error;
// the outcome is in the Delivery.
type Notifier interface {
	Send(ctx context.Context, ch notify.Channel, msg notify.Message) notify.Delivery
}

// Categorizer names a category for a keyword.
type Categorizer interface {
	Categorize(ctx context.Context, keyword string) (string, error)
}

// BudgetTracker estimates and charges cost units.
type BudgetTracker interface {
	Estimate(text string) int64
	EstimatorMode() string
	AddUsage(cost int64) (bool, string)
	Status() string
	Snapshot() dombudget.Snapshot
}

// Extractor turns text into records.
type Extractor interface {
	ExtractCategorized(text string, keywords []string, source, author string, categories map[string]string) []record.Record
}
