package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nao1215/datalens/internal/model"
)

// IssuesWriter exports the flat issue list as CSV with model.IssueColumns.
// The severity is not part of the export so the columns stay stable for
// spreadsheet users.
type IssuesWriter struct {
	baseWriter
}

// NewIssuesWriter creates an IssuesWriter that outputs to the given writer.
func NewIssuesWriter(output io.Writer) *IssuesWriter {
	return &IssuesWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one header row and one row per issue.
func (w *IssuesWriter) Write(report *model.Report) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)
	if err := out.Write(model.IssueColumns); err != nil {
		return cw.n, err
	}
	for _, is := range report.Issues {
		if err := out.Write(issueRecord(is)); err != nil {
			return cw.n, err
		}
	}
	out.Flush()
	return cw.n, out.Error()
}

func issueRecord(is model.Issue) []string {
	row := ""
	if is.RowIndex != nil {
		row = strconv.Itoa(*is.RowIndex)
	}
	group := ""
	if is.GroupID > 0 {
		group = strconv.Itoa(is.GroupID)
	}
	return []string{
		string(is.Type),
		is.Path,
		row,
		is.Reference,
		is.Error,
		group,
		is.Hash,
		is.Method,
	}
}

// countingWriter tracks bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
