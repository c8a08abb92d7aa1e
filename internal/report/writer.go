package report

import (
	"io"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

// Writer outputs a finished report.
type Writer interface {
	// Write renders the report to the configured destination and returns
	// the number of bytes written.
	Write(report *model.Report) (int, error)
}

// MultiWriter writes a report to several Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer and stops on the first error.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the output destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// isManifest reports whether the run reconciled a manifest.
func isManifest(r *model.Report) bool {
	return r.Config.Mode == config.ModeManifest
}

// modeFlag is the short dataset mode label used in fingerprints.
func modeFlag(r *model.Report) string {
	if isManifest(r) {
		return "B"
	}
	return "A"
}
