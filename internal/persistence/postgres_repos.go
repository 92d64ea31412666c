package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"interlink/internal/core"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// postgresArticleRepo implements ArticleRepository for PostgreSQL
type postgresArticleRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresArticleRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const articleColumns = `
	a.id, a.slug, a.title, a.excerpt, COALESCE(a.category_id, ''), COALESCE(c.slug, ''),
	a.content, a.status, a.reading_time, a.created_at, a.updated_at`

const summaryColumns = `
	a.id, a.slug, a.title, COALESCE(a.category_id, ''), COALESCE(c.slug, ''),
	a.status, a.reading_time, a.created_at`

func (r *postgresArticleRepo) Create(ctx context.Context, article *core.Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	if article.UpdatedAt.IsZero() {
		article.UpdatedAt = now
	}
	if article.Status == "" {
		article.Status = core.StatusDraft
	}

	contentJSON, err := json.Marshal(article.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	if article.CategoryID == "" && article.CategorySlug != "" {
		err := r.query().QueryRowContext(ctx, `
			INSERT INTO categories (id, slug, name) VALUES ($1, $2, $2)
			ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			RETURNING id
		`, uuid.NewString(), article.CategorySlug).Scan(&article.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to upsert category: %w", err)
		}
	}

	query := `
		INSERT INTO articles (
			id, slug, title, excerpt, category_id, content, status,
			reading_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
	`
	_, err = r.query().ExecContext(ctx, query,
		article.ID, article.Slug, article.Title, article.Excerpt, article.CategoryID,
		contentJSON, article.Status, article.ReadingTime, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func (r *postgresArticleRepo) Get(ctx context.Context, id string) (*core.Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		WHERE a.id = $1`
	return scanArticle(r.query().QueryRowContext(ctx, query, id))
}

func (r *postgresArticleRepo) GetBySlug(ctx context.Context, slug string) (*core.Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		WHERE a.slug = $1`
	return scanArticle(r.query().QueryRowContext(ctx, query, slug))
}

func (r *postgresArticleRepo) GetBySlugs(ctx context.Context, slugs []string) (map[string]core.ArticleSummary, error) {
	result := make(map[string]core.ArticleSummary)
	if len(slugs) == 0 {
		return result, nil
	}

	query := `SELECT ` + summaryColumns + `
		FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		WHERE a.slug = ANY($1)`
	rows, err := r.query().QueryContext(ctx, query, pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("failed to look up slugs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result[s.Slug] = *s
	}
	return result, rows.Err()
}

func (r *postgresArticleRepo) CountPublished(ctx context.Context) (int, error) {
	var count int
	err := r.query().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE status = $1`, core.StatusPublished,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count published articles: %w", err)
	}
	return count, nil
}

func (r *postgresArticleRepo) ListPublished(ctx context.Context, filter ArticleFilter) ([]core.ArticleSummary, error) {
	where := []string{"a.status = $1"}
	args := []interface{}{core.StatusPublished}

	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("a.category_id = $%d", len(args)))
	}
	if filter.TitleContains != "" {
		args = append(args, "%"+escapeLike(filter.TitleContains)+"%")
		where = append(where, fmt.Sprintf("a.title ILIKE $%d", len(args)))
	}
	if filter.ExcludeSlug != "" {
		args = append(args, filter.ExcludeSlug)
		where = append(where, fmt.Sprintf("a.slug <> $%d", len(args)))
	}

	order := "DESC"
	if filter.OldestFirst {
		order = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s
		FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		WHERE %s
		ORDER BY a.created_at %s, a.id
		LIMIT $%d OFFSET $%d`,
		summaryColumns, strings.Join(where, " AND "), order, len(args)-1, len(args))

	rows, err := r.query().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list published articles: %w", err)
	}
	defer rows.Close()

	var summaries []core.ArticleSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, rows.Err()
}

func (r *postgresArticleRepo) UpdateContent(ctx context.Context, id string, content []core.Block, updatedAt time.Time) error {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	result, err := r.query().ExecContext(ctx,
		`UPDATE articles SET content = $1, updated_at = $2 WHERE id = $3`,
		contentJSON, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanArticle(row scanner) (*core.Article, error) {
	var article core.Article
	var contentJSON []byte

	err := row.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Excerpt,
		&article.CategoryID, &article.CategorySlug, &contentJSON, &article.Status,
		&article.ReadingTime, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article: %w", ErrNotFound)
		}
		return nil, err
	}

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &article.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content of %s: %w", article.ID, err)
		}
	}
	return &article, nil
}

func scanSummary(row scanner) (*core.ArticleSummary, error) {
	var s core.ArticleSummary
	err := row.Scan(
		&s.ID, &s.Slug, &s.Title, &s.CategoryID, &s.CategorySlug,
		&s.Status, &s.ReadingTime, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
