package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pflege/pflege/internal/platform/db"
)

type taskRepoPG struct{ pool *pgxpool.Pool }

func NewTaskRepoPG(pool *pgxpool.Pool) TaskRepository {
	return &taskRepoPG{pool: pool}
}

func (r *taskRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const taskCols = `id, mitarbeiter_id, patient_id, title, COALESCE(description, ''),
	priority, due_at, status, created_at, updated_at`

func (r *taskRepoPG) scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.MitarbeiterID, &t.PatientID, &t.Title, &t.Description,
		&t.Priority, &t.DueAt, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *taskRepoPG) Create(ctx context.Context, t *Task) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO aufgaben (id, mitarbeiter_id, patient_id, title, description, priority, due_at, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING created_at, updated_at`,
		t.ID, t.MitarbeiterID, t.PatientID, t.Title, t.Description, t.Priority, t.DueAt, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *taskRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return r.scanTask(r.conn(ctx).QueryRow(ctx, `SELECT `+taskCols+` FROM aufgaben WHERE id = $1`, id))
}

func (r *taskRepoPG) ListByMitarbeiter(ctx context.Context, mitarbeiterID uuid.UUID, status string) ([]*Task, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+taskCols+` FROM aufgaben
		WHERE mitarbeiter_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY status IN ('done', 'cancelled'), due_at ASC NULLS LAST, created_at, id`,
		mitarbeiterID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *taskRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Task, error) {
	return r.scanTask(r.conn(ctx).QueryRow(ctx, `
		UPDATE aufgaben SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+taskCols, id, status))
}

func (r *taskRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM aufgaben WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
