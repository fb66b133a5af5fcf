package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"

	domrec "github.com/kailas-cloud/readdigest/internal/domain/record"
)

// fakeSheet emulates the subset of the Sheets values API the repo calls.
type fakeSheet struct {
	mu       sync.Mutex
	rows     [][]string
	appends  int
	updates  int
	failGets bool

	lastQuery string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case r.Method == http.MethodGet:
		if f.failGets {
			http.Error(w, `{"error":{"code":500,"message":"backend"}}`, http.StatusInternalServerError)
			return
		}
		writeValues(w, f.read(rng))
	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]string `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updates++
		if len(f.rows) == 0 {
			f.rows = append(f.rows, vr.Values[0])
		} else {
			f.rows[0] = vr.Values[0]
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		var vr struct {
			Values [][]string `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.lastQuery = r.URL.Query().Get("valueInputOption") + "/" + r.URL.Query().Get("insertDataOption")
		f.appends++
		f.rows = append(f.rows, vr.Values...)
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func (f *fakeSheet) read(rng string) [][]string {
	if strings.HasSuffix(rng, "A1:I1") {
		if len(f.rows) == 0 {
			return nil
		}
		return f.rows[:1]
	}
	if strings.HasSuffix(rng, "H:H") {
		out := make([][]string, 0, len(f.rows))
		for _, row := range f.rows {
			if len(row) > 7 {
				out = append(out, []string{row[7]})
			} else {
				out = append(out, []string{})
			}
		}
		return out
	}
	return f.rows
}

func writeValues(w http.ResponseWriter, rows [][]string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"values": rows})
}

func newTestRepo(t *testing.T, f *fakeSheet) *Repo {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	repo, err := New(context.Background(), Config{SpreadsheetID: "sid"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return repo
}

func rec(content string) domrec.Record {
	return domrec.New("cat", "Extracted", content, "book", "", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestEnsureHeader_WritesOnEmptySheet(t *testing.T) {
	f := &fakeSheet{}
	repo := newTestRepo(t, f)

	if err := repo.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if f.updates != 1 {
		t.Errorf("updates = %d, want 1", f.updates)
	}
	if !slices.Equal(f.rows[0], domrec.Header()) {
		t.Errorf("header = %v, want %v", f.rows[0], domrec.Header())
	}

	if err := repo.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if f.updates != 1 {
		t.Errorf("matching header rewritten: updates = %d", f.updates)
	}
}

func TestEnsureHeader_RewritesMismatch(t *testing.T) {
	f := &fakeSheet{rows: [][]string{{"Name", "Value"}}}
	repo := newTestRepo(t, f)

	if err := repo.EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if !slices.Equal(f.rows[0], domrec.Header()) {
		t.Errorf("header = %v, want %v", f.rows[0], domrec.Header())
	}
}

func TestAppendAndExistingIDs(t *testing.T) {
	f := &fakeSheet{}
	repo := newTestRepo(t, f)
	ctx := context.Background()

	if err := repo.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	ids, err := repo.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("header row counted as id: %v", ids)
	}

	n, err := repo.Append(ctx, []domrec.Record{rec("The cat sat."), rec("The cat ran.")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 2 {
		t.Errorf("added = %d, want 2", n)
	}
	if f.appends != 1 {
		t.Errorf("appends = %d, want 1", f.appends)
	}
	if f.lastQuery != "RAW/INSERT_ROWS" {
		t.Errorf("query = %q, want RAW/INSERT_ROWS", f.lastQuery)
	}

	ids, err = repo.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %d, want 2", len(ids))
	}
	if _, ok := ids[domrec.Fingerprint("The cat sat.")]; !ok {
		t.Error("expected fingerprint of first record")
	}
	if !slices.Equal(f.rows[2], rec("The cat ran.").Row()) {
		t.Errorf("row 2 = %v", f.rows[2])
	}
}

func TestAppend_SkipsStoredIDs(t *testing.T) {
	stored := rec("The cat sat.")
	f := &fakeSheet{rows: [][]string{domrec.Header(), stored.Row()}}
	repo := newTestRepo(t, f)

	n, err := repo.Append(context.Background(), []domrec.Record{stored, rec("The cat ran."), rec("The cat ran.")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 1 {
		t.Errorf("added = %d, want 1", n)
	}
	if len(f.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(f.rows))
	}
	if !slices.Equal(f.rows[2], rec("The cat ran.").Row()) {
		t.Errorf("row 2 = %v", f.rows[2])
	}
}

func TestAppend_AllStoredMakesNoCall(t *testing.T) {
	stored := rec("The cat sat.")
	f := &fakeSheet{rows: [][]string{domrec.Header(), stored.Row()}}
	repo := newTestRepo(t, f)

	n, err := repo.Append(context.Background(), []domrec.Record{stored})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 0 || f.appends != 0 {
		t.Errorf("added = %d, appends = %d, want 0/0", n, f.appends)
	}
}

func TestAppend_ReadIDsError(t *testing.T) {
	f := &fakeSheet{failGets: true}
	repo := newTestRepo(t, f)

	if _, err := repo.Append(context.Background(), []domrec.Record{rec("a")}); err == nil {
		t.Fatal("expected error when ids cannot be read")
	}
	if f.appends != 0 {
		t.Errorf("appends = %d, want 0", f.appends)
	}
}

func TestAppend_EmptyMakesNoCall(t *testing.T) {
	f := &fakeSheet{}
	repo := newTestRepo(t, f)

	n, err := repo.Append(context.Background(), nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 0 || f.appends != 0 {
		t.Errorf("added = %d, appends = %d, want 0/0", n, f.appends)
	}
}

func TestExistingIDs_Error(t *testing.T) {
	repo := newTestRepo(t, &fakeSheet{failGets: true})
	if _, err := repo.ExistingIDs(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLocator(t *testing.T) {
	repo := newTestRepo(t, &fakeSheet{})
	if got := repo.Locator(); got != "https://docs.google.com/spreadsheets/d/sid" {
		t.Errorf("Locator = %q", got)
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{0: "A", 7: "H", 8: "I", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for in, want := range tests {
		if got := columnLetter(in); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", in, got, want)
		}
	}
}
