package sheets

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	domrec "github.com/kailas-cloud/readdigest/internal/domain/record"
)

const (
	// DefaultSheetName is the tab used when none is configured.
	DefaultSheetName = "Sheet1"

	valueInputRaw = "RAW"
	insertRows    = "INSERT_ROWS"
)

// Config identifies the target spreadsheet.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
}

// Repo stores records as rows of a Google Sheets tab.
type Repo struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	sheet         string
	lastCol       string
	idCol         string
}

// New creates a repository authenticated with a service account credentials file.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Repo, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheets.Service, cfg Config) *Repo {
	sheet := cfg.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}
	header := domrec.Header()
	return &Repo{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         sheet,
		lastCol:       columnLetter(len(header) - 1),
		idCol:         columnLetter(slices.Index(header, domrec.ColUniqueID)),
	}
}

// EnsureHeader writes the header row when row 1 is missing or differs.
func (r *Repo) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:%s1", r.sheet, r.lastCol)
	resp, err := r.values.Get(r.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	header := domrec.Header()
	if len(resp.Values) > 0 && slices.Equal(toStrings(resp.Values[0]), header) {
		return nil
	}

	vr := &gsheets.ValueRange{Values: [][]any{toAny(header)}}
	if _, err := r.values.Update(r.spreadsheetID, rng, vr).
		ValueInputOption(valueInputRaw).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// ExistingIDs reads the Unique ID column, skipping the header row.
func (r *Repo) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rng := fmt.Sprintf("%s!%s:%s", r.sheet, r.idCol, r.idCol)
	resp, err := r.values.Get(r.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}

	ids := make(map[string]struct{}, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := fmt.Sprint(row[0]); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// Append adds one row per record whose ID is not already in the sheet,
// after the last non-empty row. Returns how many rows it wrote.
func (r *Repo) Append(ctx context.Context, recs []domrec.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	seen, err := r.ExistingIDs(ctx)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.UniqueID()]; ok {
			continue
		}
		seen[rec.UniqueID()] = struct{}{}
		rows = append(rows, toAny(rec.Row()))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	rng := fmt.Sprintf("%s!A:%s", r.sheet, r.lastCol)
	_, err = r.values.Append(r.spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append rows: %w", err)
	}
	return len(rows), nil
}

// Locator returns the browser link of the spreadsheet.
func (r *Repo) Locator() string {
	return "https://docs.google.com/spreadsheets/d/" + r.spreadsheetID
}

// columnLetter maps a zero-based index to A..Z, AA.. notation.
func columnLetter(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
