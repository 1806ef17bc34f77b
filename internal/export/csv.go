// Package export writes eigenray and propagation loss tables as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/fsutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/proploss"
)

// ErrFrequencyIndex is returned when the selected frequency does not exist.
var ErrFrequencyIndex = errors.New("frequency index out of range")

// EigenrayHeader is the column layout of an eigenray table.
var EigenrayHeader = []string{
	"time", "intensity", "phase",
	"source_de", "source_az", "target_de", "target_az",
	"surface_count", "bottom_count", "caustic_count",
}

// TotalHeader is the column layout of a propagation loss table.
var TotalHeader = []string{"target", "latitude", "longitude", "altitude", "intensity", "phase"}

// CSVWriter wraps csv.Writer with methods for eigenray output. Intensity
// and phase columns report a single frequency, selected by index.
type CSVWriter struct {
	w    *csv.Writer
	freq int
}

// NewCSVWriter creates a CSVWriter reporting frequency index freq.
func NewCSVWriter(w io.Writer, freq int) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), freq: freq}
}

// WriteHeader writes the eigenray column names.
func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(EigenrayHeader)
}

// WriteEigenray writes one eigenray row.
func (c *CSVWriter) WriteEigenray(ray proploss.Eigenray) error {
	if c.freq < 0 || c.freq >= len(ray.Intensity) || c.freq >= len(ray.Phase) {
		return fmt.Errorf("%w: %d of %d", ErrFrequencyIndex, c.freq, len(ray.Intensity))
	}
	return c.w.Write([]string{
		fmt.Sprintf("%.9f", ray.Time),
		fmt.Sprintf("%.4f", ray.Intensity[c.freq]),
		fmt.Sprintf("%.6f", ray.Phase[c.freq]),
		fmt.Sprintf("%.6f", ray.SourceDE),
		fmt.Sprintf("%.6f", ray.SourceAZ),
		fmt.Sprintf("%.6f", ray.TargetDE),
		fmt.Sprintf("%.6f", ray.TargetAZ),
		fmt.Sprintf("%d", ray.Surface),
		fmt.Sprintf("%d", ray.Bottom),
		fmt.Sprintf("%d", ray.Caustic),
	})
}

// WriteEigenrays writes a header followed by one row per eigenray and
// flushes.
func (c *CSVWriter) WriteEigenrays(rays []proploss.Eigenray) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, ray := range rays {
		if err := c.WriteEigenray(ray); err != nil {
			return err
		}
	}
	return c.Flush()
}

// WriteTotals writes a header followed by the summed loss of every target
// in p and flushes.
func (c *CSVWriter) WriteTotals(p *proploss.PropLoss) error {
	if c.freq < 0 || c.freq >= len(p.Frequencies()) {
		return fmt.Errorf("%w: %d of %d", ErrFrequencyIndex, c.freq, len(p.Frequencies()))
	}
	if err := c.w.Write(TotalHeader); err != nil {
		return err
	}
	for n, target := range p.Targets() {
		total := p.Total(n)[c.freq]
		if err := c.w.Write([]string{
			fmt.Sprintf("%d", n),
			fmt.Sprintf("%.6f", target.Latitude),
			fmt.Sprintf("%.6f", target.Longitude),
			fmt.Sprintf("%.2f", target.Altitude),
			fmt.Sprintf("%.4f", total.Intensity),
			fmt.Sprintf("%.6f", total.Phase),
		}); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush writes any buffered rows and reports the first write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteEigenrayFile writes the eigenray table of one target to path on fs,
// creating parent directories as needed.
func WriteEigenrayFile(fs fsutil.FileSystem, path string, rays []proploss.Eigenray, freq int) error {
	return writeFile(fs, path, func(w io.Writer) error {
		return NewCSVWriter(w, freq).WriteEigenrays(rays)
	})
}

// WriteTotalFile writes the propagation loss table of p to path on fs.
func WriteTotalFile(fs fsutil.FileSystem, path string, p *proploss.PropLoss, freq int) error {
	return writeFile(fs, path, func(w io.Writer) error {
		return NewCSVWriter(w, freq).WriteTotals(p)
	})
}

func writeFile(fs fsutil.FileSystem, path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
