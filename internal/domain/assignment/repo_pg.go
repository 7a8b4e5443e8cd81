package assignment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pflege/pflege/internal/platform/db"
)

const foreignKeyViolation = "23503"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const assignmentCols = `id, mitarbeiter_id, patient_id, status, assigned_at, ended_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	if err := row.Scan(&a.ID, &a.MitarbeiterID, &a.PatientID, &a.Status, &a.AssignedAt, &a.EndedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Workload(ctx context.Context) ([]Workload, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.username, m.name, COUNT(z.id) AS active_count
		FROM mitarbeiter m
		LEFT JOIN patient_zuweisung z ON z.mitarbeiter_id = m.id AND z.status = 'active'
		GROUP BY m.id, m.username, m.name
		ORDER BY active_count ASC, m.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Workload
	for rows.Next() {
		var w Workload
		if err := rows.Scan(&w.MitarbeiterID, &w.Username, &w.Name, &w.ActiveCount); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (r *repoPG) PatientExists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM patienten WHERE id = $1)`, patientID).Scan(&exists)
	return exists, err
}

func (r *repoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM patient_zuweisung WHERE patient_id = $1 AND status = 'active'`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveAssignment
	}
	return a, err
}

// InsertIfCapacity locks the caregiver row so that concurrent inserts for
// the same caregiver serialize, then inserts only while the active count is
// below capacity. The partial unique index on patient_id resolves races for
// the same patient.
func (r *repoPG) InsertIfCapacity(ctx context.Context, mitarbeiterID, patientID uuid.UUID, capacity int) (*Assignment, error) {
	var created *Assignment
	err := db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)

		var locked uuid.UUID
		if err := q.QueryRow(ctx, `SELECT id FROM mitarbeiter WHERE id = $1 FOR UPDATE`, mitarbeiterID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrMitarbeiterNotFound
			}
			return err
		}

		a, err := scanAssignment(q.QueryRow(ctx, `
			INSERT INTO patient_zuweisung (id, mitarbeiter_id, patient_id, status)
			SELECT $1, $2, $3, 'active'
			WHERE (SELECT COUNT(*) FROM patient_zuweisung
			       WHERE mitarbeiter_id = $2 AND status = 'active') < $4
			ON CONFLICT (patient_id) WHERE status = 'active' DO NOTHING
			RETURNING `+assignmentCols,
			uuid.New(), mitarbeiterID, patientID, capacity))
		if err == nil {
			created = a
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrPatientNotFound
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		// Nothing inserted: either the patient got an active row or the
		// capacity predicate failed.
		var active bool
		if err := q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM patient_zuweisung WHERE patient_id = $1 AND status = 'active')`,
			patientID).Scan(&active); err != nil {
			return err
		}
		if active {
			return ErrAlreadyAssigned
		}
		return ErrCaregiverFull
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repoPG) EndActive(ctx context.Context, patientID uuid.UUID, status string) (*Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx, `
		UPDATE patient_zuweisung SET status = $2, ended_at = NOW()
		WHERE patient_id = $1 AND status = 'active'
		RETURNING `+assignmentCols, patientID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveAssignment
	}
	return a, err
}

func (r *repoPG) UnassignedPatients(ctx context.Context, exclude uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id FROM patienten p
		WHERE p.id <> $1
		  AND NOT EXISTS (
		      SELECT 1 FROM patient_zuweisung z
		      WHERE z.patient_id = p.id AND z.status = 'active')
		ORDER BY p.created_at ASC, p.id ASC`, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) AssignedPatients(ctx context.Context, mitarbeiterID uuid.UUID) ([]AssignedPatient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT z.id, p.id, p.username, p.name, COALESCE(p.room, ''), COALESCE(p.location, ''), z.assigned_at
		FROM patient_zuweisung z
		JOIN patienten p ON p.id = z.patient_id
		WHERE z.mitarbeiter_id = $1 AND z.status = 'active'
		ORDER BY p.room NULLS LAST, p.name, p.id`, mitarbeiterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AssignedPatient
	for rows.Next() {
		var ap AssignedPatient
		if err := rows.Scan(&ap.AssignmentID, &ap.PatientID, &ap.Username, &ap.Name, &ap.Room, &ap.Location, &ap.AssignedAt); err != nil {
			return nil, err
		}
		items = append(items, ap)
	}
	return items, rows.Err()
}
