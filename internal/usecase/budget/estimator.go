package budget

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Estimator modes.
const (
	ModeTiktoken = "tiktoken"
	ModeNaive    = "naive"
)

// DefaultEncoding is the BPE encoding used by the tokenizer-backed estimator.
const DefaultEncoding = "cl100k_base"

// DefaultNaiveDivisor is characters per cost unit for the length heuristic.
// Two is a compromise between English (~4) and CJK (~1.5) text.
const DefaultNaiveDivisor = 2

// Estimator turns a body of text into a non-negative cost estimate.
type Estimator interface {
	Estimate(text string) int64
	// Mode names the strategy in effect, for logs and reports.
	Mode() string
}

// NaiveEstimator divides the character count by a fixed divisor.
type NaiveEstimator struct {
	divisor int
}

// NewNaiveEstimator creates a length-based estimator. divisor <= 0 selects DefaultNaiveDivisor.
func NewNaiveEstimator(divisor int) *NaiveEstimator {
	if divisor <= 0 {
		divisor = DefaultNaiveDivisor
	}
	return &NaiveEstimator{divisor: divisor}
}

// Estimate implements Estimator.
func (e *NaiveEstimator) Estimate(text string) int64 {
	return int64(utf8.RuneCountInString(text) / e.divisor)
}

// Mode implements Estimator.
func (e *NaiveEstimator) Mode() string { return ModeNaive }

// TiktokenEstimator counts BPE tokens.
type TiktokenEstimator struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// NewTiktokenEstimator loads the named encoding. Loading may need network access
// on first use, so callers should be ready to fall back.
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenEstimator{enc: enc, encoding: encoding}, nil
}

// Estimate implements Estimator.
func (e *TiktokenEstimator) Estimate(text string) int64 {
	if text == "" {
		return 0
	}
	return int64(len(e.enc.Encode(text, nil, nil)))
}

// Mode implements Estimator.
func (e *TiktokenEstimator) Mode() string { return ModeTiktoken + ":" + e.encoding }

// NewEstimator selects a strategy at construction time. A tiktoken request that
// cannot load its encoding degrades to the naive heuristic.
func NewEstimator(mode, encoding string, logger *zap.Logger) Estimator {
	if mode == ModeNaive {
		return NewNaiveEstimator(DefaultNaiveDivisor)
	}

	est, err := NewTiktokenEstimator(encoding)
	if err != nil {
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Warn("Tokenizer unavailable, falling back to length heuristic",
			zap.String("encoding", encoding),
			zap.Int("divisor", DefaultNaiveDivisor),
			zap.Error(err),
		)
		return NewNaiveEstimator(DefaultNaiveDivisor)
	}
	return est
}
