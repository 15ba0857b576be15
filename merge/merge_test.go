package merge

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhalm/logos/quote"
)

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func quotesJSON(prefix string, n int) string {
	items := make([]string, n)
	for i := range n {
		items[i] = fmt.Sprintf(`{"text": "%s %d", "author": "Author %d"}`, prefix, i, i)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestRun_Counts(t *testing.T) {
	dir := t.TempDir()
	dataset := writeJSON(t, dir, "quotes.json", quotesJSON("Existing", 10))
	input := writeJSON(t, dir, "new.json", `[
		{"text": "Existing 1", "author": "AUTHOR 1"},
		{"text": "existing 2", "author": "Author 2"},
		{"text": "Fresh 1", "author": "A"},
		{"text": "Fresh 2", "author": "B"},
		{"text": "Fresh 3", "author": "C"}
	]`)

	report, err := Run(Options{Dataset: dataset, Inputs: []string{input}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := Report{Existing: 10, Incoming: 5, Duplicates: 2, Final: 13}
	if report.Existing != want.Existing || report.Incoming != want.Incoming ||
		report.Duplicates != want.Duplicates || report.Final != want.Final {
		t.Errorf("got %+v, want counts %+v", report, want)
	}
	if report.Written {
		t.Error("expected dry run")
	}
	if report.Quotes[1].Author != "Author 1" {
		t.Errorf("expected existing record to win, got %q", report.Quotes[1].Author)
	}
}

func TestRun_DryRunLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	original := "[\n{\"text\":\"Know thyself.\",\"author\":\"Socrates\"}]"
	dataset := writeJSON(t, dir, "quotes.json", original)
	input := writeJSON(t, dir, "new.json", quotesJSON("New", 3))

	if _, err := Run(Options{Dataset: dataset, Inputs: []string{input}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got, err := os.ReadFile(dataset)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != original {
		t.Errorf("expected dataset unchanged, got %s", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected no extra files, got %d entries", len(entries))
	}
}

func TestRun_Write(t *testing.T) {
	dir := t.TempDir()
	dataset := writeJSON(t, dir, "quotes.json", `[{"text": "Know thyself.", "author": "Socrates", "category": "Platonic"}]`)
	input := writeJSON(t, dir, "new.json", `[{"quote": "“Be   brief” — & true…", "author": "Anon"}]`)

	report, err := Run(Options{Dataset: dataset, Inputs: []string{input}, Write: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Written {
		t.Error("expected Written")
	}

	got, err := os.ReadFile(dataset)
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "text": "Know thyself.",
    "author": "Socrates",
    "category": "Platonic"
  },
  {
    "text": "\"Be brief\" - & true...",
    "author": "Anon"
  }
]
`
	if string(got) != want {
		t.Errorf("unexpected file content:\n%s\nwant:\n%s", got, want)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected temp file to be renamed away, got %d entries", len(entries))
	}
}

func TestRun_WriteCreatesMissingDataset(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "quotes.json")
	input := writeJSON(t, dir, "new.json", quotesJSON("New", 2))

	report, err := Run(Options{Dataset: dataset, Inputs: []string{input}, Write: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Existing != 0 || report.Final != 2 {
		t.Errorf("unexpected report %+v", report)
	}

	records, err := ReadFile(dataset)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
	info, err := os.Stat(dataset)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestRun_BadInputAbortsBeforeWrite(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "malformed", content: `[{"text": `},
		{name: "object root", content: `{"text": "x"}`, wantErr: quote.ErrNotArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			original := quotesJSON("Existing", 2)
			dataset := writeJSON(t, dir, "quotes.json", original)
			good := writeJSON(t, dir, "good.json", quotesJSON("Good", 1))
			bad := writeJSON(t, dir, "bad.json", tt.content)

			_, err := Run(Options{Dataset: dataset, Inputs: []string{good, bad}, Write: true})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), bad) {
				t.Errorf("expected error to name %s, got %v", bad, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}

			got, _ := os.ReadFile(dataset)
			if string(got) != original {
				t.Error("expected dataset unchanged")
			}
		})
	}
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(Options{
		Dataset: filepath.Join(dir, "quotes.json"),
		Inputs:  []string{filepath.Join(dir, "missing.json")},
	})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestSort(t *testing.T) {
	quotes := []quote.Quote{
		{Text: "b", Author: "seneca"},
		{Text: "Z", Author: "Aristotle"},
		{Text: "a", Author: "Seneca"},
		{Text: "a", Author: "aristotle"},
	}

	Sort(quotes)

	want := []quote.Quote{
		{Text: "a", Author: "aristotle"},
		{Text: "Z", Author: "Aristotle"},
		{Text: "a", Author: "Seneca"},
		{Text: "b", Author: "seneca"},
	}
	for i := range want {
		if quotes[i] != want[i] {
			t.Errorf("position %d: got %+v, want %+v", i, quotes[i], want[i])
		}
	}
}

func TestEncode_Empty(t *testing.T) {
	got, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(got, []byte("[]\n")) {
		t.Errorf("expected empty array, got %q", got)
	}
}
