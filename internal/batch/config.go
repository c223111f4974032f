package batch

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/utils"
)

// Output formats understood by FormatResults.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Region is a named rectangle segmented on every image of a batch.
type Region struct {
	ID       int             `json:"id"`
	DrugName string          `json:"drug_name,omitempty"`
	Rect     image.Rectangle `json:"-"`
}

// Config holds all configuration for batch processing.
type Config struct {
	// Segmentation settings
	Pipeline pipeline.Config
	Regions  []Region

	// Output settings
	Format     string
	OutputFile string
	OverlayDir string

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer

	Logger zerolog.Logger
}

// DefaultConfig returns a batch configuration with the default pipeline.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		Format:           FormatText,
		ContinueOnError:  true,
		ProgressInterval: 100 * time.Millisecond,
		ProgressWriter:   os.Stderr,
		Logger:           zerolog.Nop(),
	}
}

// Validate checks the batch settings and the embedded pipeline config.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("batch config is nil")
	}
	switch c.Format {
	case "", FormatText, FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	for _, r := range c.Regions {
		if r.Rect.Empty() {
			return fmt.Errorf("region %d (%s) is empty", r.ID, utils.FormatRect(r.Rect))
		}
	}
	return c.Pipeline.Validate()
}

// Result holds the result of batch processing.
type Result struct {
	Entries     []Entry                `json:"entries"`
	ImagePaths  []string               `json:"-"`
	Duration    time.Duration          `json:"-"`
	WorkerCount int                    `json:"-"`
	Stats       pipeline.ParallelStats `json:"stats"`
	Profile     map[string]any         `json:"profile,omitempty"`
}

// Failed counts entries that carry an error.
func (r *Result) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}
