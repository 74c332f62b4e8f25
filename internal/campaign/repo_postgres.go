package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepo reads campaigns from Postgres.
//
// Steps and stop keywords are stored as jsonb. They are validated at write
// time by the dashboard; rows that fail to decode are surfaced as errors, not
// silently skipped, so a corrupt row is visible in pass results.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

const campaignColumns = `id, assistant_id, name, kind, active, steps, prompt, delay_minutes,
       max_attempts, stop_on_reply, stop_keywords, created_at, updated_at`

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Campaign, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) ListActive(ctx context.Context) ([]Campaign, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var c Campaign
	var steps, keywords []byte
	err := row.Scan(
		&c.ID, &c.AssistantID, &c.Name, &c.Kind, &c.Active,
		&steps, &c.Prompt, &c.DelayMinutes,
		&c.MaxAttempts, &c.StopOnReply, &keywords,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Campaign{}, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &c.Steps); err != nil {
			return Campaign{}, fmt.Errorf("campaign %s: decode steps: %w", c.ID, err)
		}
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &c.StopKeywords); err != nil {
			return Campaign{}, fmt.Errorf("campaign %s: decode stop_keywords: %w", c.ID, err)
		}
	}
	return c, nil
}
