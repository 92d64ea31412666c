package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"interlink/internal/core"
	"interlink/internal/logger"

	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "import <articles.json>",
		Short: "Load articles into the store",
		Long: `Insert articles from a JSON array of {"slug", "title", "excerpt",
"category_slug", "status", "reading_time", "content"} objects and build
their link ledgers. Mostly useful with the sqlite driver for local runs.

Example:
  interlink import fixtures/articles.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articles, err := readArticles(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			imported, err := importArticles(cmd.Context(), a, articles, !skipSync)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d articles\n", imported, len(articles))
			return err
		},
	}

	cmd.Flags().BoolVar(&skipSync, "no-sync", false, "do not build link ledgers after import")
	return cmd
}

func readArticles(path string) ([]core.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var articles []core.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return articles, nil
}

// importArticles stops at the first store error and reports how many made it
func importArticles(ctx context.Context, a *app, articles []core.Article, sync bool) (int, error) {
	for i := range articles {
		article := &articles[i]
		if article.Slug == "" || article.Title == "" {
			return i, fmt.Errorf("article %d: slug and title are required", i)
		}
		if err := a.db.Articles().Create(ctx, article); err != nil {
			return i, fmt.Errorf("article %s: %w", article.Slug, err)
		}
		if sync {
			if _, err := a.linking.SyncLedger(ctx, article.ID); err != nil {
				return i + 1, fmt.Errorf("article %s: %w", article.Slug, err)
			}
		}
		logger.Debug("Imported article", "slug", article.Slug, "id", article.ID)
	}
	return len(articles), nil
}
