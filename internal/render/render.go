package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"interlink/internal/content"
	"interlink/internal/core"
	"interlink/internal/linker"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// SpanDiff is one prose span whose text changed.
type SpanDiff struct {
	BlockID string `json:"block_id"`
	Before  string `json:"before"`
	After   string `json:"after"`
	Marked  string `json:"marked"` // Inline diff: [-removed-]{+added+}
}

// DiffSpans compares the prose spans of two versions of the same block tree.
// Block structure is assumed identical; only text is compared.
func DiffSpans(before, after []core.Block) []SpanDiff {
	old := content.Spans(before)
	updated := content.Spans(after)
	dmp := diffmatchpatch.New()

	var diffs []SpanDiff
	for i := 0; i < len(old) && i < len(updated); i++ {
		if old[i].Text == updated[i].Text {
			continue
		}
		d := dmp.DiffMain(old[i].Text, updated[i].Text, false)
		d = dmp.DiffCleanupSemantic(d)
		diffs = append(diffs, SpanDiff{
			BlockID: updated[i].BlockID,
			Before:  old[i].Text,
			After:   updated[i].Text,
			Marked:  markDiff(d),
		})
	}
	return diffs
}

func markDiff(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(d.Text)
			b.WriteString("+}")
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(d.Text)
			b.WriteString("-]")
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// FormatReport renders an apply report as markdown. diffs may be nil.
func FormatReport(title string, report *linker.Report, diffs []SpanDiff) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# Internal links - %s\n\n", title))
	if report.Persisted {
		md.WriteString(fmt.Sprintf("Saved. %d links tracked.\n\n", report.TotalTracked))
	} else {
		md.WriteString("Not saved.\n\n")
	}

	if len(report.Applied) > 0 {
		md.WriteString("## Applied\n\n")
		for _, a := range report.Applied {
			md.WriteString(fmt.Sprintf("- \"%s\" -> %s (block %s)\n", a.AnchorText, a.URL, a.BlockID))
		}
		md.WriteString("\n")
	}
	if len(report.Failed) > 0 {
		md.WriteString("## Failed\n\n")
		for _, f := range report.Failed {
			md.WriteString(fmt.Sprintf("- \"%s\": %s\n", f.AnchorText, f.Reason))
		}
		md.WriteString("\n")
	}
	if len(report.Rejected) > 0 {
		md.WriteString("## Rejected\n\n")
		for _, r := range report.Rejected {
			md.WriteString(fmt.Sprintf("- \"%s\" -> %s [%s] %s\n", r.AnchorText, r.Target, r.Stage, r.Reason))
		}
		md.WriteString("\n")
	}
	if len(report.Applied)+len(report.Failed)+len(report.Rejected) == 0 {
		md.WriteString("No insertions processed.\n\n")
	}

	if len(diffs) > 0 {
		md.WriteString("## Changes\n\n")
		for _, d := range diffs {
			md.WriteString(fmt.Sprintf("### %s\n\n```\n%s\n```\n\n", d.BlockID, d.Marked))
		}
	}
	return md.String()
}

// RenderMarkdownReport writes the report for one article to outputDir and
// returns the file path.
func RenderMarkdownReport(slug, title string, report *linker.Report, diffs []SpanDiff, outputDir string) (string, error) {
	dateStr := time.Now().UTC().Format("2006-01-02")
	filename := fmt.Sprintf("links_%s_%s.md", slug, dateStr)
	return WriteReportToFile(FormatReport(title, report, diffs), outputDir, filename)
}

// WriteReportToFile writes content to a file in the specified directory
func WriteReportToFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "reports" // Default output directory
	}

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	err = os.WriteFile(filePath, []byte(content), 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", filePath, err)
	}

	return filePath, nil
}
