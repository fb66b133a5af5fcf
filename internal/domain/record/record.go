package record

import (
	"crypto/md5" //nolint:gosec // fingerprint, not a security boundary
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// FingerprintLen is the number of hex characters kept from the content hash.
const FingerprintLen = 12

// DateLayout is the day-granularity layout of DateAdded.
const DateLayout = "2006-01-02"

// Column names of the tabular store, in column order (A..I).
const (
	ColTitle     = "Title"
	ColCategory  = "Category"
	ColTags      = "Tags"
	ColContent   = "Content"
	ColSource    = "Source"
	ColAuthor    = "Author"
	ColDateAdded = "Date Added"
	ColUniqueID  = "Unique ID"
	ColNotes     = "Notes"
)

// Header returns the header row of the tabular store.
func Header() []string {
	return []string{
		ColTitle, ColCategory, ColTags, ColContent, ColSource,
		ColAuthor, ColDateAdded, ColUniqueID, ColNotes,
	}
}

// Fingerprint returns the dedup key of cleaned content: the first
// FingerprintLen hex characters of its MD5 digest.
func Fingerprint(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}

// Record is one deduplicated extraction result (immutable value object).
type Record struct {
	title     string
	category  string
	tags      string
	content   string
	source    string
	author    string
	dateAdded string
	uniqueID  string
	notes     string
}

// New creates a Record for a keyword match. The unique ID is derived from content.
func New(keyword, category, content, source, author string, now time.Time) Record {
	kw := strings.ToLower(keyword)
	return Record{
		title:     TitleCase(kw),
		category:  category,
		tags:      kw,
		content:   content,
		source:    source,
		author:    author,
		dateAdded: now.Format(DateLayout),
		uniqueID:  Fingerprint(content),
	}
}

// Reconstruct creates a Record without deriving any field (storage hydration).
func Reconstruct(title, category, tags, content, source, author, dateAdded, uniqueID, notes string) Record {
	return Record{
		title:     title,
		category:  category,
		tags:      tags,
		content:   content,
		source:    source,
		author:    author,
		dateAdded: dateAdded,
		uniqueID:  uniqueID,
		notes:     notes,
	}
}

// Title returns the display form of the matched keyword.
func (r Record) Title() string { return r.title }

// Category returns the classification tag.
func (r Record) Category() string { return r.category }

// Tags returns the originating keyword, lowercase.
func (r Record) Tags() string { return r.tags }

// Content returns the cleaned context window.
func (r Record) Content() string { return r.content }

// Source returns the provenance source.
func (r Record) Source() string { return r.source }

// Author returns the provenance author.
func (r Record) Author() string { return r.author }

// DateAdded returns the creation date (YYYY-MM-DD).
func (r Record) DateAdded() string { return r.dateAdded }

// UniqueID returns the content fingerprint.
func (r Record) UniqueID() string { return r.uniqueID }

// Notes returns the free-text notes (empty at creation).
func (r Record) Notes() string { return r.notes }

// Row projects the record onto the Header column order.
func (r Record) Row() []string {
	return []string{
		r.title, r.category, r.tags, r.content, r.source,
		r.author, r.dateAdded, r.uniqueID, r.notes,
	}
}

// Fields returns the record as a column-name keyed map.
func (r Record) Fields() map[string]string {
	row := r.Row()
	out := make(map[string]string, len(row))
	for i, col := range Header() {
		out[col] = row[i]
	}
	return out
}

// FromFields hydrates a Record from a column-name keyed map. Missing columns are empty.
func FromFields(m map[string]string) Record {
	return Reconstruct(
		m[ColTitle], m[ColCategory], m[ColTags], m[ColContent], m[ColSource],
		m[ColAuthor], m[ColDateAdded], m[ColUniqueID], m[ColNotes],
	)
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
