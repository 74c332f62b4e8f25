package billing

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo reads subscriptions from Postgres.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) FindByAssistant(ctx context.Context, assistantID string) (Subscription, bool, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, assistant_id, status, trial_ends_at, current_period_end, created_at, updated_at
		FROM subscriptions WHERE assistant_id = $1`, assistantID)

	var s Subscription
	err := row.Scan(&s.ID, &s.AssistantID, &s.Status, &s.TrialEndsAt, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, false, nil
	}
	if err != nil {
		return Subscription{}, false, err
	}
	return s, true, nil
}
