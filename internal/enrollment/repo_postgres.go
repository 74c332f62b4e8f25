package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgresRepo implements Repository on Postgres.
//
// Uniqueness of open enrollments relies on a partial unique index over
// (campaign_id, phone) WHERE status IN ('pending','active'). Conditional
// updates guard on the version column.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

const enrollmentColumns = `id, campaign_id, assistant_id, phone, status, current_step,
       last_event_at, attempts_made, stopped_reason, version, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, e *Enrollment) error {
	e.Version = 1
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO enrollments
			(id, campaign_id, assistant_id, phone, status, current_step,
			 last_event_at, attempts_made, stopped_reason, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		e.ID, e.CampaignID, e.AssistantID, e.Phone, e.Status, e.CurrentStep,
		e.LastEventAt, e.AttemptsMade, nullableReason(e.StoppedReason), e.Version, e.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEnrollment
	}
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Enrollment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return e, err
}

// Update writes the row only if the stored version still matches the version
// the caller read. Zero rows affected means another pass got there first.
func (r *PostgresRepo) Update(ctx context.Context, e *Enrollment) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE enrollments
		SET status = $1, current_step = $2, last_event_at = $3, attempts_made = $4,
		    stopped_reason = $5, version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7`,
		e.Status, e.CurrentStep, e.LastEventAt, e.AttemptsMade,
		nullableReason(e.StoppedReason), e.ID, e.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	e.Version++
	return nil
}

func (r *PostgresRepo) ListActive(ctx context.Context) ([]Enrollment, error) {
	return r.list(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE status = 'active' ORDER BY last_event_at`)
}

func (r *PostgresRepo) ListOpenByContact(ctx context.Context, assistantID, phone string) ([]Enrollment, error) {
	return r.list(ctx, `
		SELECT `+enrollmentColumns+` FROM enrollments
		WHERE assistant_id = $1 AND phone = $2 AND status IN ('pending','active')`,
		assistantID, phone)
}

func (r *PostgresRepo) ListOpenByCampaign(ctx context.Context, campaignID string) ([]Enrollment, error) {
	return r.list(ctx, `
		SELECT `+enrollmentColumns+` FROM enrollments
		WHERE campaign_id = $1 AND status IN ('pending','active')`,
		campaignID)
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, campaignID string) (map[Status]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM enrollments WHERE campaign_id = $1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Status]int{}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]Enrollment, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row rowScanner) (Enrollment, error) {
	var e Enrollment
	var reason sql.NullString
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.AssistantID, &e.Phone, &e.Status, &e.CurrentStep,
		&e.LastEventAt, &e.AttemptsMade, &reason, &e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return Enrollment{}, err
	}
	if reason.Valid {
		e.StoppedReason = StopReason(reason.String)
	}
	return e, nil
}

func nullableReason(r StopReason) any {
	if r == "" {
		return nil
	}
	return string(r)
}

// PostgresAttemptRepo is the append-only attempt store.
type PostgresAttemptRepo struct {
	DB *sql.DB
}

func NewPostgresAttemptRepo(db *sql.DB) *PostgresAttemptRepo { return &PostgresAttemptRepo{DB: db} }

func (r *PostgresAttemptRepo) Append(ctx context.Context, a DeliveryAttempt) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO delivery_attempts (id, enrollment_id, campaign_id, step_index, outcome, error_detail, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.EnrollmentID, a.CampaignID, a.StepIndex, a.Outcome, a.ErrorDetail, a.SentAt,
	)
	return err
}

func (r *PostgresAttemptRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]DeliveryAttempt, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, enrollment_id, campaign_id, step_index, outcome, error_detail, sent_at
		FROM delivery_attempts WHERE enrollment_id = $1 ORDER BY sent_at`, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DeliveryAttempt{}
	for rows.Next() {
		var a DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.EnrollmentID, &a.CampaignID, &a.StepIndex, &a.Outcome, &a.ErrorDetail, &a.SentAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresAttemptRepo) CountOutcomes(ctx context.Context, campaignID string, since time.Time) (map[AttemptOutcome]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM delivery_attempts
		WHERE campaign_id = $1 AND sent_at >= $2 GROUP BY outcome`, campaignID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[AttemptOutcome]int{}
	for rows.Next() {
		var o AttemptOutcome
		var n int
		if err := rows.Scan(&o, &n); err != nil {
			return nil, err
		}
		out[o] = n
	}
	return out, rows.Err()
}

// PostgresInboundRepo persists inbound events; the unique index on
// provider_message_id provides dedup.
type PostgresInboundRepo struct {
	DB *sql.DB
}

func NewPostgresInboundRepo(db *sql.DB) *PostgresInboundRepo { return &PostgresInboundRepo{DB: db} }

func (r *PostgresInboundRepo) Insert(ctx context.Context, ev InboundEvent) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO inbound_events (id, provider_message_id, assistant_id, phone, text, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.ProviderMessageID, ev.AssistantID, ev.Phone, ev.Text, ev.ReceivedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEvent
	}
	return err
}
