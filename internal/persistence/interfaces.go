// Package persistence provides database abstraction interfaces for storing
// articles and their link ledger
package persistence

import (
	"context"
	"errors"
	"time"

	"interlink/internal/core"
)

// ErrNotFound is returned when a requested article or link does not exist.
var ErrNotFound = errors.New("not found")

// ArticleFilter narrows ListPublished
type ArticleFilter struct {
	CategoryID    string // Only articles in this category
	TitleContains string // Case-insensitive substring of the title
	ExcludeSlug   string // Never return this article
	Limit         int    // Maximum rows, 0 means 100
	Offset        int
	OldestFirst   bool // Default order is newest first
}

// ArticleRepository handles article persistence operations
type ArticleRepository interface {
	// Create inserts a new article, creating its category by slug if needed
	Create(ctx context.Context, article *core.Article) error

	// Get retrieves an article with its content by ID
	Get(ctx context.Context, id string) (*core.Article, error)

	// GetBySlug retrieves an article with its content by slug
	GetBySlug(ctx context.Context, slug string) (*core.Article, error)

	// GetBySlugs resolves many slugs in one query, keyed by slug.
	// Unknown slugs are simply absent from the result.
	GetBySlugs(ctx context.Context, slugs []string) (map[string]core.ArticleSummary, error)

	// CountPublished returns the number of published articles
	CountPublished(ctx context.Context) (int, error)

	// ListPublished returns published article summaries matching filter
	ListPublished(ctx context.Context, filter ArticleFilter) ([]core.ArticleSummary, error)

	// UpdateContent replaces the block tree and bumps updated_at
	UpdateContent(ctx context.Context, id string, content []core.Block, updatedAt time.Time) error
}

// LinkRepository handles link ledger persistence operations
type LinkRepository interface {
	// Get retrieves one ledger row by ID
	Get(ctx context.Context, id string) (*core.LinkRecord, error)

	// ListByArticle returns the ledger of one article
	ListByArticle(ctx context.Context, articleID string) ([]core.LinkRecord, error)

	// CountInternalByArticleIDs returns internal link counts keyed by article ID.
	// Articles without internal links are absent.
	CountInternalByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error)

	// ReplaceForArticle deletes the article's ledger and inserts links
	ReplaceForArticle(ctx context.Context, articleID string, links []core.LinkRecord) error

	// DeleteInternalByArticle removes the article's internal rows
	DeleteInternalByArticle(ctx context.Context, articleID string) (int, error)

	// Delete removes one ledger row
	Delete(ctx context.Context, id string) error
}

// Repositories is implemented by both Database and Transaction
type Repositories interface {
	// Articles returns the article repository
	Articles() ArticleRepository

	// Links returns the link ledger repository
	Links() LinkRepository
}

// Database represents the main database interface that aggregates all repositories
type Database interface {
	Repositories

	// Close closes the database connection
	Close() error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	Repositories

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error.
func WithTx(ctx context.Context, db Database, fn func(tx Transaction) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
