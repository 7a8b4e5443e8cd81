package transfer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pflege/pflege/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const requestCols = `id, requester_id, patient_id, COALESCE(current_location, ''), desired_location,
	reason, status, decided_by, COALESCE(decision_note, ''), created_at, decided_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var t Request
	err := row.Scan(&t.ID, &t.RequesterID, &t.PatientID, &t.CurrentLocation, &t.DesiredLocation,
		&t.Reason, &t.Status, &t.DecidedBy, &t.DecisionNote, &t.CreatedAt, &t.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *Request) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO transfer_requests (id, requester_id, patient_id, current_location, desired_location, reason, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.RequesterID, t.PatientID, t.CurrentLocation, t.DesiredLocation, t.Reason, t.Status,
	).Scan(&t.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		if pgErr.ConstraintName == "transfer_requests_patient_id_fkey" {
			return ErrPatientNotFound
		}
		return ErrInvalidInput
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	t, err := scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM transfer_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM transfer_requests WHERE $1 = '' OR status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM transfer_requests
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Request
	for rows.Next() {
		t, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Decide(ctx context.Context, id uuid.UUID, status string, d Decision) (*Request, error) {
	t, err := scanRequest(r.conn(ctx).QueryRow(ctx, `
		UPDATE transfer_requests
		SET status = $2, decided_by = $3, decision_note = NULLIF($4, ''), decided_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestCols, id, status, d.DecidedBy, d.Note))
	if !errors.Is(err, pgx.ErrNoRows) {
		return t, err
	}

	// Nothing updated: either unknown or already decided.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrNotPending
}

func (r *repoPG) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM transfer_requests WHERE status = 'pending'`).Scan(&n)
	return n, err
}
