package handlers

import (
	"fmt"
	"io"
	"strings"

	"interlink/internal/core"
	"interlink/internal/services"

	"github.com/spf13/cobra"
)

// NewSuggestCmd creates the suggest command
func NewSuggestCmd() *cobra.Command {
	var (
		req        services.SuggestRequest
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "suggest [post-id]",
		Short: "Suggest internal link targets and anchor phrases",
		Long: `Find published articles worth linking to and propose anchor phrases.

With a post id the stored title, excerpt and category are used; flags
override them. Without a post id --topic is required.

Examples:
  interlink suggest 6f1c2a9e-...
  interlink suggest --topic "Putting drills for beginners" --category cat-putting
  interlink suggest 6f1c2a9e-... --limit 5 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.ArticleID = args[0]
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.linking.SuggestLinks(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printSuggestions(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Topic, "topic", "", "article title or topic")
	cmd.Flags().StringVar(&req.Excerpt, "excerpt", "", "article excerpt")
	cmd.Flags().StringVar(&req.CategoryID, "category", "", "restrict candidates to this category id")
	cmd.Flags().StringVar(&req.ExcludeSlug, "exclude", "", "slug to leave out of the candidates")
	cmd.Flags().IntVarP(&req.Limit, "limit", "l", 0, "maximum number of suggestions (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw result as JSON")

	return cmd
}

func printSuggestions(w io.Writer, result *core.SuggestionResult) {
	if result.Skip {
		fmt.Fprintf(w, "Skipped: %s\n", result.Reason)
		return
	}

	fmt.Fprintf(w, "Catalog: %d published, %d candidates considered\n", result.TotalPublished, result.Candidates)
	if result.Guidance != "" {
		fmt.Fprintf(w, "Guidance: %s\n", result.Guidance)
	}
	if result.Fallback {
		fmt.Fprintln(w, "Anchors extracted from titles; relevance was not judged.")
	}
	if len(result.Suggestions) == 0 {
		fmt.Fprintln(w, "No relevant targets found.")
		return
	}

	fmt.Fprintln(w)
	for i, s := range result.Suggestions {
		fmt.Fprintf(w, "%d. [%d] %s\n   %s\n", i+1, s.RelevanceScore, s.Title, s.URL)
		if len(s.AnchorPatterns) > 0 {
			fmt.Fprintf(w, "   anchors: %s\n", strings.Join(s.AnchorPatterns, " | "))
		}
		if len(s.AntiPatterns) > 0 {
			fmt.Fprintf(w, "   avoid:   %s\n", strings.Join(s.AntiPatterns, " | "))
		}
		if s.SemanticIntent != "" {
			fmt.Fprintf(w, "   intent:  %s\n", s.SemanticIntent)
		}
	}
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Print an article with its content blocks as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.linking.GetArticleForLinking(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), article)
		},
	}
}
