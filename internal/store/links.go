package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"interlink/internal/core"
	"interlink/internal/persistence"

	"github.com/google/uuid"
)

// linkRepo implements persistence.LinkRepository on SQLite
type linkRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *linkRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const linkSelect = `
	SELECT id, article_id, url, anchor_text, link_type, IFNULL(linked_article_id, ''),
		IFNULL(domain, ''), opens_new_tab, is_nofollow, created_at
	FROM article_links`

func (r *linkRepo) Get(ctx context.Context, id string) (*core.LinkRecord, error) {
	link, err := scanLink(r.query().QueryRowContext(ctx, linkSelect+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("link %s: %w", id, persistence.ErrNotFound)
		}
		return nil, err
	}
	return link, nil
}

func (r *linkRepo) ListByArticle(ctx context.Context, articleID string) ([]core.LinkRecord, error) {
	rows, err := r.query().QueryContext(ctx, linkSelect+` WHERE article_id = ? ORDER BY created_at, rowid`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []core.LinkRecord
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

func (r *linkRepo) CountInternalByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(articleIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(articleIDs)), ",")
	args := []interface{}{core.LinkInternal}
	for _, id := range articleIDs {
		args = append(args, id)
	}

	rows, err := r.query().QueryContext(ctx, `
		SELECT article_id, COUNT(*) FROM article_links
		WHERE link_type = ? AND article_id IN (`+placeholders+`)
		GROUP BY article_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count internal links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *linkRepo) ReplaceForArticle(ctx context.Context, articleID string, links []core.LinkRecord) error {
	if _, err := r.query().ExecContext(ctx, `DELETE FROM article_links WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}

	for i := range links {
		link := &links[i]
		if link.ID == "" {
			link.ID = uuid.NewString()
		}
		if link.CreatedAt.IsZero() {
			link.CreatedAt = time.Now().UTC()
		}
		_, err := r.query().ExecContext(ctx, `
			INSERT INTO article_links
			(id, article_id, url, anchor_text, link_type, linked_article_id, domain, opens_new_tab, is_nofollow, created_at)
			VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`,
			link.ID, articleID, link.URL, link.AnchorText, link.LinkType, link.LinkedArticleID,
			link.Domain, link.OpensNewTab, link.IsNofollow, link.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger row: %w", err)
		}
	}
	return nil
}

func (r *linkRepo) DeleteInternalByArticle(ctx context.Context, articleID string) (int, error) {
	result, err := r.query().ExecContext(ctx,
		`DELETE FROM article_links WHERE article_id = ? AND link_type = ?`, articleID, core.LinkInternal)
	if err != nil {
		return 0, fmt.Errorf("failed to delete internal links: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *linkRepo) Delete(ctx context.Context, id string) error {
	result, err := r.query().ExecContext(ctx, `DELETE FROM article_links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("link %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

func scanLink(row scanner) (*core.LinkRecord, error) {
	var link core.LinkRecord
	err := row.Scan(
		&link.ID, &link.ArticleID, &link.URL, &link.AnchorText, &link.LinkType,
		&link.LinkedArticleID, &link.Domain, &link.OpensNewTab, &link.IsNofollow, &link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}
