package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/nao1215/datalens/internal/model"
)

// SimpleWriter outputs human-readable reports for terminal display.
// Tables use rounded borders and severity labels are colored when the
// output is a terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose lists every finding instead of the first few.
	verbose bool

	color bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with every finding listed.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colored output on or off.
func WithColor(color bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.color = color
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// Color defaults to on when output is a terminal.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		color:      shouldColorize(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// listLimit is how many entries per finding list are shown without verbose.
const listLimit = 10

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Scan != nil && report.Check != nil {
		w.writeSummary(&sb, report)
		w.writeSeverities(&sb, report)
		w.writeWarnings(&sb, report)
		w.writeClasses(&sb, report)
		w.writeStats(&sb, report)
		w.writeFindings(&sb, report)
	}
	w.writeFooter(&sb, report)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, r *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         DATASET REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Dataset:   %s\n", r.Config.DatasetRoot)
	fmt.Fprintf(sb, "Mode:      %s\n", r.Config.Mode)
	fmt.Fprintf(sb, "Hash:      %s\n", r.Config.Hash)
	fmt.Fprintf(sb, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if r.Error != nil || r.ErrorMessage != "" {
		fmt.Fprintf(sb, "Status:    %s\n", w.paint(text.FgRed, "ERROR - "+r.ErrorMessage))
	} else {
		fmt.Fprintf(sb, "Status:    %s\n", w.paint(text.FgGreen, "Complete"))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, r *model.Report) {
	w.writeSection(sb, "SUMMARY")

	rows := [][]string{
		{"Total images", strconv.Itoa(len(r.Scan.Images))},
		{"Corrupted images", strconv.Itoa(len(r.Check.Corrupted))},
		{"Duplicate groups", strconv.Itoa(len(r.Check.Duplicates))},
	}
	if r.IsLabeled() {
		rows = append(rows, []string{"Missing labels", strconv.Itoa(r.Scan.MissingLabelCount)})
	} else {
		rows = append(rows, []string{"Unlabeled dataset", "yes"})
	}
	if isManifest(r) {
		sr := r.Scan
		rows = append(rows,
			[]string{"Missing images", strconv.Itoa(len(sr.MissingImages))},
			[]string{"Orphan images", strconv.Itoa(len(sr.OrphanImages))},
			[]string{"Coverage", fmt.Sprintf("%.1f%% (%d/%d)", sr.Coverage()*100, sr.ResolvedImages, sr.ManifestRowCount)},
			[]string{"Orphan rate", fmt.Sprintf("%.1f%% (%d/%d)", sr.OrphanRate()*100, len(sr.OrphanImages), sr.TotalImagesScanned)},
		)
	}
	sb.WriteString(RenderTable([]string{"Metric", "Value"}, rows, 2))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeSeverities(sb *strings.Builder, r *model.Report) {
	s := model.NewSummary(r)
	if s.TotalIssues() == 0 && !w.showEmpty {
		return
	}
	w.writeSection(sb, "ISSUE SEVERITY")
	fmt.Fprintf(sb, "  %s %d\n", w.severityLabel(model.SeverityHigh), s.HighCount)
	fmt.Fprintf(sb, "  %s %d\n", w.severityLabel(model.SeverityMedium), s.MediumCount)
	fmt.Fprintf(sb, "  %s %d\n", w.severityLabel(model.SeverityLow), s.LowCount)
	fmt.Fprintf(sb, "  %s %d\n", w.severityLabel(model.SeverityInfo), s.InfoCount)
	fmt.Fprintf(sb, "\n  TOTAL:   %d issues\n\n", s.TotalIssues())
}

func (w *SimpleWriter) writeWarnings(sb *strings.Builder, r *model.Report) {
	if r.Warnings.Count() == 0 && !w.showEmpty {
		return
	}
	w.writeSection(sb, "WARNINGS")
	if r.Warnings.Count() == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, g := range r.Warnings {
		if len(g.Messages) == 0 {
			continue
		}
		fmt.Fprintf(sb, "[%s]\n", w.paint(text.FgYellow, g.Category))
		for _, m := range g.Messages {
			fmt.Fprintf(sb, "  - %s\n", m)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeClasses(sb *strings.Builder, r *model.Report) {
	if len(r.Check.LabelCounts) == 0 {
		return
	}
	w.writeSection(sb, "CLASS DISTRIBUTION")
	rows := make([][]string, len(r.Check.LabelCounts))
	for i, lc := range r.Check.LabelCounts {
		rows[i] = []string{lc.Label, strconv.Itoa(lc.Count)}
	}
	sb.WriteString(RenderTable([]string{"Label", "Count"}, rows, 2))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, r *model.Report) {
	st := r.Check.Stats
	if st == nil {
		return
	}
	w.writeSection(sb, "RESOLUTION")
	sb.WriteString(RenderTable(
		[]string{"Dimension", "Min", "Median", "Max"},
		[][]string{
			{"Width", strconv.Itoa(st.WidthMin), strconv.Itoa(st.WidthMedian), strconv.Itoa(st.WidthMax)},
			{"Height", strconv.Itoa(st.HeightMin), strconv.Itoa(st.HeightMedian), strconv.Itoa(st.HeightMax)},
		},
		2, 3, 4,
	))
	sb.WriteString("\n\n")

	modes := make([]string, 0, len(st.ModeCounts))
	for m := range st.ModeCounts {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	rows := make([][]string, len(modes))
	for i, m := range modes {
		rows[i] = []string{m, strconv.Itoa(st.ModeCounts[m])}
	}
	sb.WriteString(RenderTable([]string{"Mode", "Count"}, rows, 2))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, r *model.Report) {
	if len(r.Check.Corrupted) > 0 || w.showEmpty {
		w.writeSection(sb, w.severityLabel(model.SeverityHigh)+" CORRUPTED IMAGES")
		lines := make([]string, len(r.Check.Corrupted))
		for i, c := range r.Check.Corrupted {
			lines[i] = c.Path + " | " + c.Error
		}
		w.writeList(sb, lines)
	}
	if isManifest(r) {
		if len(r.Scan.MissingImages) > 0 || w.showEmpty {
			w.writeSection(sb, w.severityLabel(model.SeverityMedium)+" MISSING IMAGES")
			lines := make([]string, len(r.Scan.MissingImages))
			for i, m := range r.Scan.MissingImages {
				lines[i] = fmt.Sprintf("%s | row %d", m.Reference, m.RowIndex)
			}
			w.writeList(sb, lines)
		}
		if len(r.Scan.OrphanImages) > 0 || w.showEmpty {
			w.writeSection(sb, w.severityLabel(model.SeverityLow)+" ORPHAN IMAGES")
			w.writeList(sb, r.Scan.OrphanImages)
		}
	}
	if len(r.Check.Duplicates) > 0 || w.showEmpty {
		w.writeSection(sb, fmt.Sprintf("%s DUPLICATE GROUPS (%s)", w.severityLabel(model.SeverityLow), r.Check.HashMethod))
		groups := r.Check.Duplicates
		if !w.verbose && len(groups) > listLimit {
			groups = groups[:listLimit]
		}
		if len(groups) == 0 {
			sb.WriteString("  None\n\n")
		}
		for i, g := range groups {
			fmt.Fprintf(sb, "  #%d %s\n", i+1, g.Hash)
			for _, p := range g.Paths {
				fmt.Fprintf(sb, "      %s\n", p)
			}
		}
		if hidden := len(r.Check.Duplicates) - len(groups); hidden > 0 {
			fmt.Fprintf(sb, "  ... %d more (use --verbose)\n", hidden)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeList(sb *strings.Builder, lines []string) {
	if len(lines) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	shown := lines
	if !w.verbose && len(shown) > listLimit {
		shown = shown[:listLimit]
	}
	for _, l := range shown {
		fmt.Fprintf(sb, "  - %s\n", l)
	}
	if hidden := len(lines) - len(shown); hidden > 0 {
		fmt.Fprintf(sb, "  ... %d more (use --verbose)\n", hidden)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, r *model.Report) {
	if len(r.Timings) > 0 {
		stages := make([]string, 0, len(r.Timings))
		for s := range r.Timings {
			stages = append(stages, s)
		}
		sort.Strings(stages)
		parts := make([]string, len(stages))
		for i, s := range stages {
			parts[i] = s + "=" + r.Timings[s].Round(time.Millisecond).String()
		}
		fmt.Fprintf(sb, "Timings: %s\n", strings.Join(parts, " "))
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func (w *SimpleWriter) severityLabel(s model.Severity) string {
	label := fmt.Sprintf("[%s]", s)
	switch s {
	case model.SeverityHigh:
		return w.paint(text.FgHiRed, label)
	case model.SeverityMedium:
		return w.paint(text.FgYellow, label)
	case model.SeverityLow:
		return w.paint(text.FgCyan, label)
	default:
		return label
	}
}

func (w *SimpleWriter) paint(c text.Color, s string) string {
	if !w.color {
		return s
	}
	return c.Sprint(s)
}

// RenderTable renders rows with rounded borders. rightCols are 1-based
// column numbers aligned right.
func RenderTable(headers []string, rows [][]string, rightCols ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightCols))
	for _, n := range rightCols {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
