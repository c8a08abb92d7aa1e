package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
)

// MarkdownWriter outputs reports as a Markdown document suitable for
// committing next to a dataset.
type MarkdownWriter struct {
	baseWriter

	topN int
}

// MarkdownOption configures a MarkdownWriter.
type MarkdownOption func(*MarkdownWriter)

// WithTopDuplicates limits the listed duplicate groups. Non-positive values
// keep the default.
func WithTopDuplicates(n int) MarkdownOption {
	return func(w *MarkdownWriter) {
		if n > 0 {
			w.topN = n
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		topN:       config.DefaultTopDuplicates,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Dataset Report")
	md.PlainText("")

	if report.Error != nil || report.Scan == nil || report.Check == nil {
		md.Cautionf("Audit failed: %s", report.ErrorMessage)
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	w.writeConfiguration(md, report)
	w.writeFingerprint(md, report)
	w.writeSummary(md, report)
	w.writeWarnings(md, report)
	if isManifest(report) {
		w.writeCoverage(md, report)
	}
	w.writeClassDistribution(md, report)
	w.writeCorrupted(md, report)
	if isManifest(report) {
		w.writeMissing(md, report)
		w.writeOrphans(md, report)
	}
	w.writeDuplicates(md, report)
	md.PlainText("")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeConfiguration(md *markdown.Markdown, r *model.Report) {
	cfg := r.Config
	md.H2("Configuration")
	md.PlainText("")
	md.BulletList(
		"Mode: "+string(cfg.Mode),
		"Dataset root: "+cfg.DatasetRoot,
		"Images folder: "+cfg.ImagesDir,
		"Allowed extensions: "+strings.Join(cfg.Extensions, " "),
		"Hashing method: "+cfg.Hash.String(),
		"Compute stats: "+yesNo(cfg.ComputeStats),
	)
	if isManifest(r) {
		md.BulletList(
			"CSV path: "+cfg.ManifestPath,
			"Filename column: "+r.Scan.FilenameColumn,
			"Label column: "+r.Scan.LabelColumn,
			"IDs without extension: "+yesNo(cfg.IDsWithoutExt),
			"Normalize labels: "+yesNo(cfg.NormalizeLabels),
		)
	} else {
		md.BulletList("Infer classes: " + yesNo(cfg.InferClasses))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFingerprint(md *markdown.Markdown, r *model.Report) {
	cfg := r.Config
	th := r.Check.Thresholds
	md.H2("Config Fingerprint")
	md.PlainText("")
	md.BulletList(
		"Mode: "+modeFlag(r),
		"Images path: "+cfg.ImagesDir,
	)
	if isManifest(r) {
		md.BulletList(
			"CSV path: "+cfg.ManifestPath,
			"Filename column: "+r.Scan.FilenameColumn,
			"Label column: "+r.Scan.LabelColumn,
		)
	}
	md.BulletList(
		"Normalize labels: "+yesNo(cfg.NormalizeLabels),
		"Extensions: "+strings.Join(cfg.Extensions, " "),
		"Duplicate method: "+cfg.Hash.String(),
		"IDs without extension: "+yesNo(cfg.IDsWithoutExt),
		fmt.Sprintf("Thresholds: small_res=%d, aspect_outlier=%.1f, rgba_share=%.2f",
			th.SmallResolution, th.AspectRatio, th.RGBAShare),
		"Key: `"+r.ConfigKey+"`",
	)
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, r *model.Report) {
	md.H2("Summary")
	md.PlainText("")
	md.BulletList(
		"Total images: "+strconv.Itoa(len(r.Scan.Images)),
		"Corrupted images: "+strconv.Itoa(len(r.Check.Corrupted)),
		"Duplicate groups: "+strconv.Itoa(len(r.Check.Duplicates)),
	)
	if r.IsLabeled() {
		md.BulletList("Missing labels: " + strconv.Itoa(r.Scan.MissingLabelCount))
	} else {
		md.BulletList("Unlabeled dataset: yes")
	}
	if isManifest(r) {
		md.BulletList(
			"Missing images: "+strconv.Itoa(len(r.Scan.MissingImages)),
			"Orphan images: "+strconv.Itoa(len(r.Scan.OrphanImages)),
		)
	}
	md.PlainText("")

	s := model.NewSummary(r)
	if s.TotalIssues() > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of issue severities.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Issue Severity Distribution"),
		piechart.WithShowData(true),
	)
	if s.HighCount > 0 {
		chart.LabelAndIntValue("High", uint64(s.HighCount))
	}
	if s.MediumCount > 0 {
		chart.LabelAndIntValue("Medium", uint64(s.MediumCount))
	}
	if s.LowCount > 0 {
		chart.LabelAndIntValue("Low", uint64(s.LowCount))
	}
	if s.InfoCount > 0 {
		chart.LabelAndIntValue("Info", uint64(s.InfoCount))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.Summary) {
	switch {
	case s.HighCount > 0:
		md.Cautionf("%d corrupted image(s) will break data loaders.", s.HighCount)
	case s.MediumCount > 0:
		md.Warningf("%d manifest row(s) point at no usable image.", s.MediumCount)
	case s.TotalIssues() > 0:
		md.Note("Only duplicate or orphan files were found.")
	default:
		md.Tip("No integrity issues detected.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, r *model.Report) {
	md.H2("Top Warnings")
	md.PlainText("")
	if r.Warnings.Count() == 0 {
		md.BulletList("None")
		md.PlainText("")
		return
	}
	for _, g := range r.Warnings {
		if len(g.Messages) == 0 {
			continue
		}
		md.H3(g.Category)
		md.BulletList(g.Messages...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, r *model.Report) {
	sr := r.Scan
	md.H2("Coverage / Orphans")
	md.PlainText("")
	md.BulletList(
		fmt.Sprintf("Coverage: %.1f%% (%d/%d)", sr.Coverage()*100, sr.ResolvedImages, sr.ManifestRowCount),
		fmt.Sprintf("Orphan rate: %.1f%% (%d/%d)", sr.OrphanRate()*100, len(sr.OrphanImages), sr.TotalImagesScanned),
	)
	md.PlainText("")
}

func (w *MarkdownWriter) writeClassDistribution(md *markdown.Markdown, r *model.Report) {
	if len(r.Check.LabelCounts) == 0 {
		return
	}
	rows := make([][]string, len(r.Check.LabelCounts))
	for i, lc := range r.Check.LabelCounts {
		rows[i] = []string{lc.Label, strconv.Itoa(lc.Count)}
	}
	md.H2("Class Distribution")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Label", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCorrupted(md *markdown.Markdown, r *model.Report) {
	md.H2("Corrupted Images")
	md.PlainText("")
	if len(r.Check.Corrupted) == 0 {
		md.BulletList("None")
	}
	for _, c := range r.Check.Corrupted {
		md.BulletList(c.Path + " | " + c.Error)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeMissing(md *markdown.Markdown, r *model.Report) {
	md.H2("Missing Images")
	md.PlainText("")
	if len(r.Scan.MissingImages) == 0 {
		md.BulletList("None")
	}
	for _, m := range r.Scan.MissingImages {
		md.BulletList(fmt.Sprintf("%s | row %d", m.Reference, m.RowIndex))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeOrphans(md *markdown.Markdown, r *model.Report) {
	md.H2("Orphan Images")
	md.PlainText("")
	if len(r.Scan.OrphanImages) == 0 {
		md.BulletList("None")
	}
	md.BulletList(r.Scan.OrphanImages...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeDuplicates(md *markdown.Markdown, r *model.Report) {
	md.H2f("Duplicate Groups (Method: %s, Top %d)", r.Check.HashMethod, w.topN)
	md.PlainText("")
	if len(r.Check.Duplicates) == 0 {
		md.BulletList("None")
		return
	}
	groups := r.Check.Duplicates
	if len(groups) > w.topN {
		groups = groups[:w.topN]
	}
	for _, g := range groups {
		md.BulletList("Hash: " + g.Hash)
		for _, p := range g.Paths {
			md.PlainText("  - " + p)
		}
	}
}
