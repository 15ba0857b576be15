// Package merge folds new quote files into a dataset file, removing
// duplicates.
package merge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nhalm/logos/quote"
)

// Options describes one merge.
type Options struct {
	// Dataset is the file merged into and, with Write, rewritten.
	Dataset string

	// Inputs are read in order after the dataset.
	Inputs []string

	// Sort orders the result by author, then text, case-insensitively.
	Sort bool

	// Write persists the result. Without it nothing on disk changes.
	Write bool
}

// Report summarizes a merge.
type Report struct {
	Existing   int
	Incoming   int
	Duplicates int
	Final      int
	Written    bool
	Quotes     []quote.Quote
}

// ReadFile reads a quote file. Unlike the server's loader it fails on any
// read or parse error.
func ReadFile(path string) ([]quote.Quote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records, err := quote.Records(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// ReadDataset is ReadFile, except that a missing file is an empty dataset.
func ReadDataset(path string) ([]quote.Quote, error) {
	records, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []quote.Quote{}, nil
	}
	return records, err
}

// Merge returns existing followed by incoming with duplicates removed. The
// first occurrence wins, so records already in the dataset are never
// replaced.
func Merge(existing, incoming []quote.Quote) []quote.Quote {
	all := make([]quote.Quote, 0, len(existing)+len(incoming))
	all = append(all, existing...)
	all = append(all, incoming...)
	return quote.Dedupe(all)
}

// Sort orders quotes by lower-cased author, then lower-cased text. Equal
// keys keep their relative order.
func Sort(quotes []quote.Quote) {
	slices.SortStableFunc(quotes, func(a, b quote.Quote) int {
		if c := strings.Compare(strings.ToLower(a.Author), strings.ToLower(b.Author)); c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text))
	})
}

// Encode renders quotes as a two-space indented JSON array with a trailing
// newline. Non-ASCII and HTML characters are written literally.
func Encode(quotes []quote.Quote) ([]byte, error) {
	if quotes == nil {
		quotes = []quote.Quote{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(quotes); err != nil {
		return nil, fmt.Errorf("encode quotes: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile replaces path with quotes. The data goes to a temporary file in
// the same directory, which is synced and then renamed over path, so readers
// see either the old file or the new one.
func WriteFile(path string, quotes []quote.Quote) (err error) {
	data, err := Encode(quotes)
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Run reads the dataset and every input, merges them and, with opts.Write,
// rewrites the dataset. An unreadable input aborts the merge before anything
// is written.
func Run(opts Options) (Report, error) {
	existing, err := ReadDataset(opts.Dataset)
	if err != nil {
		return Report{}, err
	}

	var incoming []quote.Quote
	for _, path := range opts.Inputs {
		records, err := ReadFile(path)
		if err != nil {
			return Report{}, err
		}
		incoming = append(incoming, records...)
	}

	merged := Merge(existing, incoming)
	if opts.Sort {
		Sort(merged)
	}

	report := Report{
		Existing:   len(existing),
		Incoming:   len(incoming),
		Duplicates: len(existing) + len(incoming) - len(merged),
		Final:      len(merged),
		Quotes:     merged,
	}

	if opts.Write {
		if err := WriteFile(opts.Dataset, merged); err != nil {
			return report, err
		}
		report.Written = true
	}
	return report, nil
}
