package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand_MemoryStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "test.yaml", "budget: { estimator: naive, max_tokens: 1000 }\nstore: { driver: memory }\n")
	doc := writeFile(t, dir, "cats.txt", "The cat sat. The cat ran.")

	out, err := execute(t, "--config", cfgPath, "--log-level", "error", "run", doc, "-k", "cat")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "New entries added: 2") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunCommand_BudgetExceeded(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "test.yaml", "budget: { estimator: naive, max_tokens: 5 }\n")
	doc := writeFile(t, dir, "cats.txt", "The cat sat. The cat ran.")

	out, err := execute(t, "--config", cfgPath, "--log-level", "error", "run", doc, "-k", "cat")
	if err == nil {
		t.Fatalf("expected error, got output:\n%s", out)
	}
	if !strings.Contains(out, "BUDGET EXCEEDED") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunCommand_RequiresKeywords(t *testing.T) {
	if _, err := execute(t, "run", "book.txt"); err == nil {
		t.Fatal("expected missing keywords error")
	}
}

func TestEstimateCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "test.yaml", "budget: { estimator: naive, max_tokens: 1000 }\n")
	doc := writeFile(t, dir, "book.txt", strings.Repeat("word ", 100))

	out, err := execute(t, "--config", cfgPath, "--log-level", "error", "estimate", doc)
	if err != nil {
		t.Fatalf("estimate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Estimated tokens: 250") || !strings.Contains(out, "Within budget") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "readdigest ") {
		t.Errorf("unexpected output %q", out)
	}
}
