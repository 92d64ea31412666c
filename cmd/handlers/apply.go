package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"interlink/internal/core"
	"interlink/internal/linker"
	"interlink/internal/render"

	"github.com/spf13/cobra"
)

// NewApplyCmd creates the apply command
func NewApplyCmd() *cobra.Command {
	var (
		links      []string
		file       string
		blockID    string
		dryRun     bool
		writeFile  bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "apply <post-id>",
		Short: "Insert internal links into an article",
		Long: `Wrap the first plain occurrence of each anchor phrase in a link.

Insertions come from repeated --link "anchor=url" flags or from a JSON file
holding an array of {"anchor_text", "url", "anti_patterns", "block_id"}.
Each insertion is checked against its anti-patterns, the anchor quality
rules and the surrounding text before it is applied. Content and the link
ledger are saved together.

Examples:
  interlink apply 6f1c2a9e-... --link "grip pressure mistakes=/blog/grip-pressure"
  interlink apply 6f1c2a9e-... --file insertions.json --dry-run
  interlink apply 6f1c2a9e-... --file insertions.json --report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			insertions, err := loadInsertions(links, file, blockID)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			id := args[0]
			before, err := a.linking.GetArticleForLinking(ctx, id)
			if err != nil {
				return err
			}

			var (
				report *linker.Report
				diffs  []render.SpanDiff
			)
			if dryRun {
				plan, err := a.linking.PreviewLinks(ctx, id, insertions)
				if err != nil {
					return err
				}
				report = &plan.Report
				diffs = render.DiffSpans(plan.Before, plan.After)
			} else {
				report, err = a.linking.ApplyLinks(ctx, id, insertions)
				if err != nil {
					return err
				}
				if report.Persisted {
					after, err := a.linking.GetArticleForLinking(ctx, id)
					if err != nil {
						return err
					}
					diffs = render.DiffSpans(before.Content, after.Content)
				}
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprint(cmd.OutOrStdout(), render.FormatReport(before.Title, report, diffs))

			if writeFile {
				path, err := render.RenderMarkdownReport(before.Slug, before.Title, report, diffs, a.cfg.App.ReportDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&links, "link", nil, `insertion as "anchor text=url" (repeatable)`)
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with an array of insertions")
	cmd.Flags().StringVar(&blockID, "block", "", "restrict --link insertions to this block id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without saving")
	cmd.Flags().BoolVar(&writeFile, "report", false, "write a markdown report to the report directory")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw report as JSON")

	return cmd
}

// loadInsertions merges --link flags and the optional insertions file
func loadInsertions(links []string, file, blockID string) ([]core.LinkInsertion, error) {
	var insertions []core.LinkInsertion

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := json.Unmarshal(data, &insertions); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
	}

	for _, raw := range links {
		ins, err := parseLinkFlag(raw)
		if err != nil {
			return nil, err
		}
		ins.BlockID = blockID
		insertions = append(insertions, ins)
	}

	if len(insertions) == 0 {
		return nil, fmt.Errorf("no insertions given. Use --link or --file")
	}
	return insertions, nil
}

// parseLinkFlag splits "anchor=url" on the first '='; URLs may carry their own.
func parseLinkFlag(raw string) (core.LinkInsertion, error) {
	anchor, url, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(anchor) == "" || strings.TrimSpace(url) == "" {
		return core.LinkInsertion{}, fmt.Errorf("invalid --link %q, expected \"anchor text=url\"", raw)
	}
	return core.LinkInsertion{
		AnchorText: strings.TrimSpace(anchor),
		URL:        strings.TrimSpace(url),
	}, nil
}
