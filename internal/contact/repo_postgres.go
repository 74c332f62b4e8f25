package contact

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PostgresRepo implements Repository on Postgres.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) ListEligible(ctx context.Context, assistantID string) ([]Contact, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, assistant_id, phone, name, last_inbound_at, created_at, updated_at
		FROM contacts
		WHERE assistant_id = $1 AND last_inbound_at IS NOT NULL
		ORDER BY last_inbound_at DESC`, assistantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Contact{}
	for rows.Next() {
		var c Contact
		var name sql.NullString
		if err := rows.Scan(&c.ID, &c.AssistantID, &c.Phone, &name, &c.LastInboundAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Name = name.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) RecordInbound(ctx context.Context, assistantID, phone string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO contacts (id, assistant_id, phone, last_inbound_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, $4)
		ON CONFLICT (assistant_id, phone)
		DO UPDATE SET last_inbound_at = EXCLUDED.last_inbound_at, updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), assistantID, phone, at,
	)
	return err
}
