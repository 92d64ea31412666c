// Package store is the SQLite implementation of persistence.Database, used
// for local runs and tests.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"interlink/internal/core"
	"interlink/internal/persistence"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store represents the SQLite-based content store
type Store struct {
	db       *sql.DB
	path     string
	articles *articleRepo
	links    *linkRepo
}

// NewStore opens (creating if needed) the SQLite database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes transactions.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:       db,
		path:     dbPath,
		articles: &articleRepo{db: db},
		links:    &linkRepo{db: db},
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	categoriesTable := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	);`

	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		category_id TEXT REFERENCES categories (id) ON DELETE SET NULL,
		content TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'draft',
		reading_time INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	linksTable := `
	CREATE TABLE IF NOT EXISTS article_links (
		id TEXT PRIMARY KEY,
		article_id TEXT NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		anchor_text TEXT NOT NULL DEFAULT '',
		link_type TEXT NOT NULL,
		linked_article_id TEXT REFERENCES articles (id) ON DELETE SET NULL,
		domain TEXT,
		opens_new_tab INTEGER NOT NULL DEFAULT 0,
		is_nofollow INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_articles_status_created ON articles (status, created_at);
	CREATE INDEX IF NOT EXISTS idx_article_links_article ON article_links (article_id);`

	for _, stmt := range []string{categoriesTable, articlesTable, linksTable, indexes} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string { return s.path }

// DB exposes the connection for pool metrics
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Articles() persistence.ArticleRepository { return s.articles }
func (s *Store) Links() persistence.LinkRepository       { return s.links }

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &storeTx{
		tx:       tx,
		articles: &articleRepo{db: s.db, tx: tx},
		links:    &linkRepo{db: s.db, tx: tx},
	}, nil
}

type storeTx struct {
	tx       *sql.Tx
	articles *articleRepo
	links    *linkRepo
}

func (t *storeTx) Commit() error                           { return t.tx.Commit() }
func (t *storeTx) Rollback() error                         { return t.tx.Rollback() }
func (t *storeTx) Articles() persistence.ArticleRepository { return t.articles }
func (t *storeTx) Links() persistence.LinkRepository       { return t.links }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// articleRepo implements persistence.ArticleRepository on SQLite
type articleRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *articleRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const articleSelect = `
	SELECT a.id, a.slug, a.title, a.excerpt, IFNULL(a.category_id, ''), IFNULL(c.slug, ''),
		a.content, a.status, a.reading_time, a.created_at, a.updated_at
	FROM articles a LEFT JOIN categories c ON c.id = a.category_id`

const summarySelect = `
	SELECT a.id, a.slug, a.title, IFNULL(a.category_id, ''), IFNULL(c.slug, ''),
		a.status, a.reading_time, a.created_at
	FROM articles a LEFT JOIN categories c ON c.id = a.category_id`

func (r *articleRepo) Create(ctx context.Context, article *core.Article) error {
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

	if article.CategoryID == "" && article.CategorySlug != "" {
		_, err := r.query().ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (id, slug, name) VALUES (?, ?, ?)`,
			uuid.NewString(), article.CategorySlug, article.CategorySlug)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
		err = r.query().QueryRowContext(ctx,
			`SELECT id FROM categories WHERE slug = ?`, article.CategorySlug,
		).Scan(&article.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to resolve category: %w", err)
		}
	}

	contentJSON, err := json.Marshal(article.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}

	_, err = r.query().ExecContext(ctx, `
		INSERT INTO articles
		(id, slug, title, excerpt, category_id, content, status, reading_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)`,
		article.ID, article.Slug, article.Title, article.Excerpt, article.CategoryID,
		string(contentJSON), article.Status, article.ReadingTime, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func (r *articleRepo) Get(ctx context.Context, id string) (*core.Article, error) {
	return scanArticle(r.query().QueryRowContext(ctx, articleSelect+` WHERE a.id = ?`, id))
}

func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*core.Article, error) {
	return scanArticle(r.query().QueryRowContext(ctx, articleSelect+` WHERE a.slug = ?`, slug))
}

func (r *articleRepo) GetBySlugs(ctx context.Context, slugs []string) (map[string]core.ArticleSummary, error) {
	result := make(map[string]core.ArticleSummary)
	if len(slugs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slugs)), ",")
	args := make([]interface{}, len(slugs))
	for i, s := range slugs {
		args[i] = s
	}

	rows, err := r.query().QueryContext(ctx, summarySelect+` WHERE a.slug IN (`+placeholders+`)`, args...)
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

func (r *articleRepo) CountPublished(ctx context.Context) (int, error) {
	var count int
	err := r.query().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE status = ?`, core.StatusPublished,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count published articles: %w", err)
	}
	return count, nil
}

func (r *articleRepo) ListPublished(ctx context.Context, filter persistence.ArticleFilter) ([]core.ArticleSummary, error) {
	where := []string{"a.status = ?"}
	args := []interface{}{core.StatusPublished}

	if filter.CategoryID != "" {
		where = append(where, "a.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.TitleContains != "" {
		where = append(where, `LOWER(a.title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.TitleContains))+"%")
	}
	if filter.ExcludeSlug != "" {
		where = append(where, "a.slug <> ?")
		args = append(args, filter.ExcludeSlug)
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

	query := summarySelect + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY a.created_at ` + order + `, a.id LIMIT ? OFFSET ?`

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

func (r *articleRepo) UpdateContent(ctx context.Context, id string, content []core.Block, updatedAt time.Time) error {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content: %w", err)
	}
	result, err := r.query().ExecContext(ctx,
		`UPDATE articles SET content = ?, updated_at = ? WHERE id = ?`,
		string(contentJSON), updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("article %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

func scanArticle(row scanner) (*core.Article, error) {
	var article core.Article
	var contentJSON string

	err := row.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Excerpt,
		&article.CategoryID, &article.CategorySlug, &contentJSON, &article.Status,
		&article.ReadingTime, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article: %w", persistence.ErrNotFound)
		}
		return nil, err
	}

	if contentJSON != "" {
		if err := json.Unmarshal([]byte(contentJSON), &article.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content of %s: %w", article.ID, err)
		}
	}
	return &article, nil
}

func scanSummary(row scanner) (*core.ArticleSummary, error) {
	var s core.ArticleSummary
	if err := row.Scan(&s.ID, &s.Slug, &s.Title, &s.CategoryID, &s.CategorySlug, &s.Status, &s.ReadingTime, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
