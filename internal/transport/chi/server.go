package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/domain"
	dombudget "github.com/kailas-cloud/readdigest/internal/domain/budget"
	domdigest "github.com/kailas-cloud/readdigest/internal/domain/digest"
	domrec "github.com/kailas-cloud/readdigest/internal/domain/record"
	"github.com/kailas-cloud/readdigest/internal/metrics"
	healthuc "github.com/kailas-cloud/readdigest/internal/usecase/health"
)

// maxBodyBytes bounds request bodies; requests carry a path and keywords only.
const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest     = "bad_request"
	codeValidation     = "validation_failed"
	codeUnauthorized   = "unauthorized"
	codeForbiddenPath  = "forbidden_path"
	codeNotFound       = "not_found"
	codeNotSupported   = "not_supported"
	codeParseFailure   = "parse_failure"
	codeBudgetExceeded = "budget_exceeded"
	codeInternal       = "internal_error"
)

// DigestRunner runs and estimates documents.
type DigestRunner interface {
	Run(ctx context.Context, req domdigest.Request) (*domdigest.Result, error)
	Estimate(ctx context.Context, path string) (*domdigest.Estimate, error)
}

// BudgetReader exposes the shared tracker state.
type BudgetReader interface {
	Snapshot() dombudget.Snapshot
	EstimatorMode() string
}

// RecordReader loads a stored record by fingerprint.
type RecordReader interface {
	Get(ctx context.Context, id string) (domrec.Record, error)
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EstimateRequest is the body of POST /v1/estimates.
type EstimateRequest struct {
	Path string `json:"path"`
}

// ResultResponse is the JSON form of a digest result.
type ResultResponse struct {
	*domdigest.Result
	Error      string `json:"error,omitempty"`
	StoreError string `json:"store_error,omitempty"`
	Budget     string `json:"budget"`
}

// EstimateResponse is the JSON form of an estimate.
type EstimateResponse struct {
	*domdigest.Estimate
	Error string `json:"error,omitempty"`
}

// BudgetResponse is the body of GET /v1/budget.
type BudgetResponse struct {
	Used            int64   `json:"used"`
	Ceiling         int64   `json:"ceiling"`
	Remaining       int64   `json:"remaining"`
	Ratio           float64 `json:"ratio"`
	WarningFraction float64 `json:"warning_fraction"`
	Level           string  `json:"level"`
	Estimator       string  `json:"estimator"`
}

// RecordResponse is the body of GET /v1/records/{id}.
type RecordResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Tags      string `json:"tags"`
	Content   string `json:"content"`
	Source    string `json:"source"`
	Author    string `json:"author"`
	DateAdded string `json:"date_added"`
	Notes     string `json:"notes"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Budget string            `json:"budget,omitempty"`
}

// Server serves the digest HTTP API.
type Server struct {
	digests DigestRunner
	budget  BudgetReader
	health  *healthuc.Service
	records RecordReader
	apiKeys []string
	docRoot string
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(digests DigestRunner, budget BudgetReader, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{digests: digests, budget: budget, health: health, logger: logger}
}

// WithRecords enables GET /v1/records/{id}.
func (s *Server) WithRecords(r RecordReader) *Server {
	s.records = r
	return s
}

// WithAPIKeys requires one of keys as a Bearer token. No keys disables auth.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// WithDocumentRoot confines document paths to root. Relative paths resolve against it.
func (s *Server) WithDocumentRoot(root string) *Server {
	s.docRoot = root
	return s
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Post("/v1/digests", s.CreateDigest)
	r.Post("/v1/estimates", s.CreateEstimate)
	r.Get("/v1/records/{id}", s.GetRecord)
	r.Get("/v1/budget", s.GetBudget)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// CreateDigest handles POST /v1/digests.
func (s *Server) CreateDigest(w http.ResponseWriter, r *http.Request) {
	var req domdigest.Request
	if !decode(w, r, &req) {
		return
	}
	if !s.confine(w, &req.Path) {
		return
	}

	res, err := s.digests.Run(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := ResultResponse{Result: res, Budget: res.Budget.String()}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	if res.StoreErr != nil {
		resp.StoreError = res.StoreErr.Error()
	}
	writeJSON(w, resultStatus(res.Err), resp)
}

// CreateEstimate handles POST /v1/estimates.
func (s *Server) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.confine(w, &req.Path) {
		return
	}

	est, err := s.digests.Estimate(r.Context(), req.Path)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := EstimateResponse{Estimate: est}
	if est.Err != nil {
		resp.Error = est.Err.Error()
	}
	writeJSON(w, resultStatus(est.Err), resp)
}

// GetRecord handles GET /v1/records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, codeNotSupported, "record lookup is not supported by the configured store")
		return
	}

	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{
		ID:        rec.UniqueID(),
		Title:     rec.Title(),
		Category:  rec.Category(),
		Tags:      rec.Tags(),
		Content:   rec.Content(),
		Source:    rec.Source(),
		Author:    rec.Author(),
		DateAdded: rec.DateAdded(),
		Notes:     rec.Notes(),
	})
}

// GetBudget handles GET /v1/budget.
func (s *Server) GetBudget(w http.ResponseWriter, _ *http.Request) {
	snap := s.budget.Snapshot()
	writeJSON(w, http.StatusOK, BudgetResponse{
		Used:            snap.Used(),
		Ceiling:         snap.Ceiling(),
		Remaining:       snap.Remaining(),
		Ratio:           snap.Ratio(),
		WarningFraction: snap.WarningFraction(),
		Level:           string(snap.Level()),
		Estimator:       s.budget.EstimatorMode(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Budget: report.Budget,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// resultStatus maps an abort cause to a status. Runs that complete are 200.
func resultStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrBudgetExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrParseFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// confine rewrites *path to its location under the document root, or answers 403.
// Empty paths pass through to request validation.
func (s *Server) confine(w http.ResponseWriter, path *string) bool {
	if s.docRoot == "" || *path == "" {
		return true
	}
	resolved, err := resolveUnder(s.docRoot, *path)
	if err != nil {
		s.logger.Warn("document path rejected", zap.String("path", *path), zap.Error(err))
		writeError(w, http.StatusForbidden, codeForbiddenPath, "path is outside the document root")
		return false
	}
	*path = resolved
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		s.logger.Warn("invalid request", zap.Error(err))
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
