package story

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

type DraftRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
}

func NewDraftRepository(db *sql.DB, logger *logging.ChanneledLogger) *DraftRepository {
	return &DraftRepository{db: db, logger: logger}
}

func (r *DraftRepository) Get(ctx context.Context, owner, key string) (*story.Draft, error) {
	query := `SELECT owner, draft_key, content, updated_at FROM drafts WHERE owner = ? AND draft_key = ?`

	var d story.Draft
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query, owner, key).Scan(&d.Owner, &d.Key, &d.Content, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Draft query failed", "error", err.Error(), "key", key)
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// Put inserts or replaces a draft.
func (r *DraftRepository) Put(ctx context.Context, d *story.Draft) error {
	query := `INSERT INTO drafts (owner, draft_key, content, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, draft_key) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`

	start := time.Now()
	if _, err := r.db.ExecContext(ctx, query, d.Owner, d.Key, d.Content, formatTime(d.UpdatedAt)); err != nil {
		r.logger.Database().Error("Draft upsert failed", "error", err.Error(), "key", d.Key)
		return fmt.Errorf("failed to save draft: %w", err)
	}
	observe(r.logger, query, start)
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, owner, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE owner = ? AND draft_key = ?`, owner, key); err != nil {
		r.logger.Database().Error("Draft delete failed", "error", err.Error(), "key", key)
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) List(ctx context.Context, owner string) ([]*story.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner, draft_key, content, updated_at FROM drafts WHERE owner = ? ORDER BY draft_key`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer rows.Close()

	result := []*story.Draft{}
	for rows.Next() {
		var d story.Draft
		var updatedAt string
		if err := rows.Scan(&d.Owner, &d.Key, &d.Content, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		d.UpdatedAt = parseTime(updatedAt)
		result = append(result, &d)
	}
	return result, rows.Err()
}
