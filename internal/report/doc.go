// Package report renders audit reports.
//
// Four formats are provided: a terminal summary built from go-pretty
// tables, a Markdown document, JSON for tooling, and a CSV export of the
// flat issue list. Every writer implements Writer, and MultiWriter fans a
// report out to several of them.
package report
