package extract

import (
	"time"
	"unicode"

	"github.com/kailas-cloud/readdigest/internal/domain/record"
)

// Defaults for Config.
const (
	DefaultContextChars       = 200
	DefaultSentenceSearchSpan = 50
	DefaultCategory           = "Extracted"
)

// sentenceBoundaries end a sentence in Latin and CJK text.
var sentenceBoundaries = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// IsSentenceBoundary reports whether r ends a sentence.
func IsSentenceBoundary(r rune) bool { return sentenceBoundaries[r] }

// Config holds extraction parameters. Lengths are in characters (runes).
type Config struct {
	// ContextChars is the half-width of the window around each match.
	ContextChars int
	// SentenceSearchSpan bounds the leading-boundary search in a cleaned window.
	SentenceSearchSpan int
	// Category is the placeholder category for records without a resolved one.
	Category string
}

// Extractor turns document text into pass-deduplicated records.
// It is stateless between calls and safe for concurrent use.
type Extractor struct {
	cfg Config
	now func() time.Time
}

// New creates an Extractor. Zero config fields take the defaults.
func New(cfg Config) *Extractor {
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = DefaultContextChars
	}
	if cfg.SentenceSearchSpan <= 0 {
		cfg.SentenceSearchSpan = DefaultSentenceSearchSpan
	}
	if cfg.Category == "" {
		cfg.Category = DefaultCategory
	}
	return &Extractor{cfg: cfg, now: time.Now}
}

// WithClock overrides the time source for DateAdded.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract scans text for every keyword and returns one record per distinct
// cleaned window, in keyword order then match position order.
func (e *Extractor) Extract(text string, keywords []string, source, author string) []record.Record {
	return e.ExtractCategorized(text, keywords, source, author, nil)
}

// ExtractCategorized is Extract with per-keyword categories. Keywords missing
// from categories use the configured placeholder.
func (e *Extractor) ExtractCategorized(
	text string, keywords []string, source, author string, categories map[string]string,
) []record.Record {
	if text == "" || len(keywords) == 0 {
		return nil
	}

	orig := []rune(text)
	folded := foldRunes(orig)
	today := e.now()
	seen := make(map[string]struct{})
	var out []record.Record

	for _, keyword := range keywords {
		kw := foldRunes([]rune(keyword))
		if len(kw) == 0 {
			continue
		}
		category := e.cfg.Category
		if c, ok := categories[keyword]; ok && c != "" {
			category = c
		}

		for start := 0; ; {
			pos := indexRunes(folded, kw, start)
			if pos < 0 {
				break
			}
			start = pos + 1

			content := e.window(orig, pos, len(kw))
			id := record.Fingerprint(content)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			out = append(out, record.New(string(kw), category, content, source, author, today))
		}
	}

	return out
}

// window cuts the context around text[pos:pos+n], clipped to text bounds, and cleans it.
func (e *Extractor) window(text []rune, pos, n int) string {
	lo := max(0, pos-e.cfg.ContextChars)
	hi := min(len(text), pos+n+e.cfg.ContextChars)
	return clean(text[lo:hi], pos-lo, e.cfg.SentenceSearchSpan)
}

// clean collapses whitespace runs, trims, and drops a partial leading sentence.
// matchAt is the offset of the match in w; the leading cut never reaches it.
func clean(w []rune, matchAt, span int) string {
	out := make([]rune, 0, len(w))
	match := -1
	inSpace := false
	for i, r := range w {
		if i == matchAt {
			match = len(out)
		}
		if unicode.IsSpace(r) {
			if !inSpace {
				out = append(out, ' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		out = append(out, r)
	}

	lead := 0
	for lead < len(out) && out[lead] == ' ' {
		lead++
	}
	trail := len(out)
	for trail > lead && out[trail-1] == ' ' {
		trail--
	}
	out = out[lead:trail]
	match = max(0, match-lead)
	if len(out) == 0 || IsSentenceBoundary(out[0]) {
		return string(out)
	}

	limit := min(span, match, len(out))
	for i := 0; i < limit; i++ {
		if IsSentenceBoundary(out[i]) {
			return trimLeft(out[i+1:])
		}
	}
	return string(out)
}

func trimLeft(r []rune) string {
	for len(r) > 0 && r[0] == ' ' {
		r = r[1:]
	}
	return string(r)
}

// foldRunes lower-cases rune by rune so offsets stay aligned with the input.
func foldRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToLower(c)
	}
	return out
}

// indexRunes returns the first index >= from where sub occurs in s, or -1.
func indexRunes(s, sub []rune, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
