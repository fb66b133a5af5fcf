package digest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/domain"
	domdigest "github.com/kailas-cloud/readdigest/internal/domain/digest"
	"github.com/kailas-cloud/readdigest/internal/domain/notify"
	"github.com/kailas-cloud/readdigest/internal/domain/record"
	"github.com/kailas-cloud/readdigest/internal/logger"
	"github.com/kailas-cloud/readdigest/internal/metrics"
)

// DefaultStoreTimeout bounds each record store call.
const DefaultStoreTimeout = 15 * time.Second

// Service runs documents through the digest pipeline.
// Runs are sequential per call; the tracker is the only state shared between calls.
type Service struct {
	parser       Parser
	tracker      BudgetTracker
	extractor    Extractor
	store        RecordStore
	notifier     Notifier
	categorizer  Categorizer
	storeTimeout time.Duration
	logger       *zap.Logger
}

// New creates a digest service.
func New(
	parser Parser, tracker BudgetTracker, extractor Extractor,
	store RecordStore, notifier Notifier, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		parser:       parser,
		tracker:      tracker,
		extractor:    extractor,
		store:        store,
		notifier:     notifier,
		storeTimeout: DefaultStoreTimeout,
		logger:       logger,
	}
}

// WithCategorizer enables per-keyword categories.
func (s *Service) WithCategorizer(c Categorizer) *Service {
	s.categorizer = c
	return s
}

// WithStoreTimeout overrides the per-call store timeout.
func (s *Service) WithStoreTimeout(d time.Duration) *Service {
	if d > 0 {
		s.storeTimeout = d
	}
	return s
}

// Run processes one document. A non-nil error means the request was invalid and
// nothing ran; every other outcome, aborted runs included, is in the Result.
func (s *Service) Run(ctx context.Context, req domdigest.Request) (*domdigest.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	res := &domdigest.Result{
		RunID: uuid.NewString(),
		File:  filepath.Base(req.Path),
	}
	log := s.logger.With(zap.String("run_id", res.RunID), zap.String("file", res.File))
	ctx = logger.ContextWithLogger(ctx, log)
	defer s.observe(res, started)

	res.Advance(domdigest.StateStart)
	s.send(ctx, notify.ChannelResults, notify.Text(StartMessage(res.File, req.Keywords)))

	text, err := s.parser.Parse(req.Path)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
		return s.abort(ctx, res, ParseFailedMessage(err)), nil
	}
	res.Advance(domdigest.StateParsed)
	log.Debug("parsed", zap.Int("chars", len(text)))

	res.Cost = s.tracker.Estimate(text)
	permitted, budgetMsg := s.tracker.AddUsage(res.Cost)
	res.Budget = s.tracker.Snapshot()
	if budgetMsg != "" {
		s.send(ctx, notify.ChannelToken, notify.Text(budgetMsg))
	}
	res.Advance(domdigest.StateBudgetChecked)
	log.Debug("budget checked", zap.Int64("cost", res.Cost), zap.Stringer("budget", res.Budget))
	if !permitted {
		res.Err = fmt.Errorf("%s: %w", res.Budget, domain.ErrBudgetExceeded)
		return s.abort(ctx, res, BudgetAbortMessage(res.File, budgetMsg)), nil
	}

	source := req.Source
	if source == "" {
		source = res.File
	}
	recs := s.extractor.ExtractCategorized(text, req.Keywords, source, req.Author, s.categorize(ctx, req.Keywords))
	res.Found = len(recs)
	res.Advance(domdigest.StateExtracted)
	s.send(ctx, notify.ChannelResults, notify.Text(FoundMessage(res.Found)))

	s.write(ctx, res, recs)
	res.Advance(domdigest.StateWritten)
	log.Debug("written", zap.Int("found", res.Found), zap.Int("added", res.Added))

	summary := SummaryMessage(res, s.tracker.Status(), s.store.Locator())
	res.Message = summary.Content
	s.send(ctx, notify.ChannelResults, summary)
	s.send(ctx, notify.ChannelToken, notify.Text(s.tracker.Status()))
	res.Advance(domdigest.StateReported)

	return res, nil
}

// Estimate parses a document and compares its cost with the remaining budget.
// Nothing is charged.
func (s *Service) Estimate(ctx context.Context, path string) (*domdigest.Estimate, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required: %w", domain.ErrInvalidRequest)
	}

	est := &domdigest.Estimate{File: filepath.Base(path)}
	text, err := s.parser.Parse(path)
	if err != nil {
		est.Err = fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
		est.Message = EstimateFailedMessage(err)
		s.send(ctx, notify.ChannelToken, notify.Text(est.Message))
		return est, nil
	}

	if info, statErr := os.Stat(path); statErr == nil {
		est.SizeKB = float64(info.Size()) / 1024
	}
	est.Cost = s.tracker.Estimate(text)
	est.Budget = s.tracker.Snapshot()
	est.Ceiling = est.Budget.Ceiling()
	est.WithinBudget = est.Cost < est.Budget.Remaining()
	est.Message = EstimateMessage(est, s.tracker.EstimatorMode())

	s.send(ctx, notify.ChannelToken, notify.Text(est.Message))
	return est, nil
}

func (s *Service) abort(ctx context.Context, res *domdigest.Result, summary string) *domdigest.Result {
	res.Advance(domdigest.StateAborted)
	res.Message = summary
	logger.FromContext(ctx).Warn("run aborted", zap.Error(res.Err))
	s.send(ctx, notify.ChannelResults, AbortMessage(res, summary))
	return res
}

// write dedups recs against the store and appends the rest.
// Store failures degrade the result, never abort it.
func (s *Service) write(ctx context.Context, res *domdigest.Result, recs []record.Record) {
	if len(recs) == 0 {
		return
	}
	log := logger.FromContext(ctx)

	if h, ok := s.store.(HeaderEnsurer); ok {
		if err := s.withTimeout(ctx, h.EnsureHeader); err != nil {
			res.StoreErr = fmt.Errorf("ensure header: %w: %w", domain.ErrStoreWriteFailure, err)
			res.Unwritten = len(recs)
			log.Warn("store header failed", zap.Error(err))
			return
		}
	}

	var existing map[string]struct{}
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		existing, err = s.store.ExistingIDs(ctx)
		return err
	})
	if err != nil {
		res.LookupErr = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		existing = nil
		log.Warn("existing id lookup failed, treating all records as new", zap.Error(err))
	}

	fresh := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		if _, dup := existing[r.UniqueID()]; !dup {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		res.Duplicates = res.Found
		return
	}

	var added int
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		added, err = s.store.Append(ctx, fresh)
		return err
	})
	res.Added = added
	if err != nil {
		res.StoreErr = fmt.Errorf("%w: %w", domain.ErrStoreWriteFailure, err)
		res.Unwritten = len(fresh) - added
		res.Duplicates = res.Found - len(fresh)
		log.Warn("store append failed", zap.Int("unwritten", res.Unwritten), zap.Error(err))
		return
	}
	res.Duplicates = res.Found - added
}

// categorize asks the categorizer once per distinct keyword. Failures fall back to the placeholder.
func (s *Service) categorize(ctx context.Context, keywords []string) map[string]string {
	if s.categorizer == nil {
		return nil
	}
	out := make(map[string]string, len(keywords))
	for _, kw := range keywords {
		if _, done := out[kw]; done {
			continue
		}
		var category string
		err := s.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			category, err = s.categorizer.Categorize(ctx, kw)
			return err
		})
		if err != nil {
			logger.FromContext(ctx).Warn("categorize failed", zap.String("keyword", kw), zap.Error(err))
		}
		out[kw] = category
	}
	return out
}

func (s *Service) send(ctx context.Context, ch notify.Channel, msg notify.Message) {
	if d := s.notifier.Send(ctx, ch, msg); d.Status == notify.StatusFailed {
		logger.FromContext(ctx).Warn("notification not delivered",
			zap.String("channel", string(ch)), zap.Error(d.Err))
	}
}

func (s *Service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) observe(res *domdigest.Result, started time.Time) {
	state := string(res.State)
	metrics.RunsTotal.WithLabelValues(state).Inc()
	metrics.RunDuration.WithLabelValues(state).Observe(time.Since(started).Seconds())
	metrics.RecordsTotal.WithLabelValues("found").Add(float64(res.Found))
	metrics.RecordsTotal.WithLabelValues("added").Add(float64(res.Added))
	metrics.RecordsTotal.WithLabelValues("duplicate").Add(float64(res.Duplicates))

	snap := s.tracker.Snapshot()
	metrics.BudgetTokensUsed.Set(float64(snap.Used()))
	metrics.BudgetRatio.Set(snap.Ratio())
}
