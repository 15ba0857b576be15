package quote

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// builtin is served when the dataset file is missing or unusable.
var builtin = []Quote{
	{Text: "The impediment to action advances action. What stands in the way becomes the way.", Author: "Marcus Aurelius"},
	{Text: "We suffer more often in imagination than in reality.", Author: "Seneca"},
	{Text: "It's not what happens to you, but how you react to it that matters.", Author: "Epictetus"},
}

// Builtin returns the fallback dataset.
func Builtin() *Dataset {
	ds := NewDataset(builtin)
	ds.fallback = true
	return ds
}

// Load reads the dataset file at path. Any failure to read or parse it
// yields the built-in dataset; the cause is logged at warn level and never
// returned. A nil logger uses slog.Default().
func Load(path string, logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = slog.Default()
	}

	quotes, err := loadFile(path)
	if err != nil {
		logger.Warn("using built-in quotes", "path", path, "error", err)
		return Builtin()
	}

	logger.Info("loaded quotes", "path", path, "count", len(quotes))
	return NewDataset(quotes)
}

func loadFile(path string) ([]Quote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data)
}

// Loader loads a dataset file at most once and hands out the same Dataset
// on every call.
type Loader struct {
	path   string
	logger *slog.Logger

	once sync.Once
	ds   *Dataset
}

// NewLoader returns a Loader for the dataset file at path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Dataset loads the file on first use and returns the cached result after.
func (l *Loader) Dataset() *Dataset {
	l.once.Do(func() {
		l.ds = Load(l.path, l.logger)
	})
	return l.ds
}
