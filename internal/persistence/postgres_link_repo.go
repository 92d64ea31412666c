package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interlink/internal/core"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// postgresLinkRepo implements LinkRepository for PostgreSQL
type postgresLinkRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresLinkRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const linkColumns = `
	id, article_id, url, anchor_text, link_type, COALESCE(linked_article_id, ''),
	COALESCE(domain, ''), opens_new_tab, is_nofollow, created_at`

func (r *postgresLinkRepo) Get(ctx context.Context, id string) (*core.LinkRecord, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+linkColumns+` FROM article_links WHERE id = $1`, id)
	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("link %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return link, nil
}

func (r *postgresLinkRepo) ListByArticle(ctx context.Context, articleID string) ([]core.LinkRecord, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM article_links
		WHERE article_id = $1
		ORDER BY created_at, id
	`, articleID)
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

func (r *postgresLinkRepo) CountInternalByArticleIDs(ctx context.Context, articleIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(articleIDs) == 0 {
		return counts, nil
	}

	rows, err := r.query().QueryContext(ctx, `
		SELECT article_id, COUNT(*)
		FROM article_links
		WHERE link_type = $1 AND article_id = ANY($2)
		GROUP BY article_id
	`, core.LinkInternal, pq.Array(articleIDs))
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

func (r *postgresLinkRepo) ReplaceForArticle(ctx context.Context, articleID string, links []core.LinkRecord) error {
	if _, err := r.query().ExecContext(ctx, `DELETE FROM article_links WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}

	query := `
		INSERT INTO article_links (
			id, article_id, url, anchor_text, link_type, linked_article_id,
			domain, opens_new_tab, is_nofollow, created_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
	`
	for i := range links {
		link := &links[i]
		if link.ID == "" {
			link.ID = uuid.NewString()
		}
		if link.CreatedAt.IsZero() {
			link.CreatedAt = time.Now().UTC()
		}
		_, err := r.query().ExecContext(ctx, query,
			link.ID, articleID, link.URL, link.AnchorText, link.LinkType, link.LinkedArticleID,
			link.Domain, link.OpensNewTab, link.IsNofollow, link.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger row: %w", err)
		}
	}
	return nil
}

func (r *postgresLinkRepo) DeleteInternalByArticle(ctx context.Context, articleID string) (int, error) {
	result, err := r.query().ExecContext(ctx,
		`DELETE FROM article_links WHERE article_id = $1 AND link_type = $2`,
		articleID, core.LinkInternal,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete internal links: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *postgresLinkRepo) Delete(ctx context.Context, id string) error {
	result, err := r.query().ExecContext(ctx, `DELETE FROM article_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("link %s: %w", id, ErrNotFound)
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
