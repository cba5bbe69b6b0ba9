package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const broadcasterColumns = `broadcaster_id, display_name, webhook_url, required_title_keyword, username, avatar_url, created_at, updated_at`

type BroadcasterRepo struct {
	pool *pgxpool.Pool
}

func NewBroadcasterRepo(pool *pgxpool.Pool) *BroadcasterRepo {
	return &BroadcasterRepo{pool: pool}
}

func scanBroadcaster(row pgx.Row) (*domain.BroadcasterEntry, error) {
	var e domain.BroadcasterEntry
	err := row.Scan(&e.BroadcasterID, &e.DisplayName, &e.WebhookURL, &e.RequiredTitleKeyword, &e.Username, &e.AvatarURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *BroadcasterRepo) Lookup(ctx context.Context, broadcasterID string) (*domain.BroadcasterEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+broadcasterColumns+` FROM broadcasters WHERE broadcaster_id = $1`, broadcasterID)
	entry, err := scanBroadcaster(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBroadcasterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broadcaster: %w", err)
	}
	return entry, nil
}

func (r *BroadcasterRepo) List(ctx context.Context) ([]domain.BroadcasterEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+broadcasterColumns+` FROM broadcasters ORDER BY broadcaster_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasters: %w", err)
	}
	defer rows.Close()

	entries := []domain.BroadcasterEntry{}
	for rows.Next() {
		entry, err := scanBroadcaster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broadcaster: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list broadcasters: %w", err)
	}
	return entries, nil
}

func (r *BroadcasterRepo) Upsert(ctx context.Context, e domain.BroadcasterEntry) (*domain.BroadcasterEntry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO broadcasters (broadcaster_id, display_name, webhook_url, required_title_keyword, username, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (broadcaster_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			webhook_url = EXCLUDED.webhook_url,
			required_title_keyword = EXCLUDED.required_title_keyword,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()
		RETURNING `+broadcasterColumns,
		e.BroadcasterID, e.DisplayName, e.WebhookURL, e.RequiredTitleKeyword, e.Username, e.AvatarURL)

	entry, err := scanBroadcaster(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert broadcaster: %w", err)
	}
	return entry, nil
}

func (r *BroadcasterRepo) Delete(ctx context.Context, broadcasterID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM broadcasters WHERE broadcaster_id = $1`, broadcasterID)
	if err != nil {
		return fmt.Errorf("failed to delete broadcaster: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBroadcasterNotFound
	}
	return nil
}
