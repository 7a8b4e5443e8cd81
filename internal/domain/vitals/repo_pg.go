package vitals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

const vitalCols = `id, patient_id, mitarbeiter_id, recorded_at, systolic, diastolic, pulse,
	temperature::float8, oxygen_saturation, weight::float8, glucose, COALESCE(remarks, ''), critical, severity`

func scanVital(row pgx.Row) (*Vital, error) {
	var v Vital
	var severity string
	if err := row.Scan(&v.ID, &v.PatientID, &v.MitarbeiterID, &v.RecordedAt,
		&v.Systolic, &v.Diastolic, &v.Pulse, &v.Temperature, &v.OxygenSaturation,
		&v.Weight, &v.Glucose, &v.Remarks, &v.Critical, &severity); err != nil {
		return nil, err
	}
	v.Severity = Severity(severity)
	return &v, nil
}

func collect(rows pgx.Rows) ([]*Vital, error) {
	defer rows.Close()
	var items []*Vital
	for rows.Next() {
		v, err := scanVital(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, v *Vital) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitaldaten (id, patient_id, mitarbeiter_id, recorded_at, systolic, diastolic, pulse,
			temperature, oxygen_saturation, weight, glucose, remarks, critical, severity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14)`,
		v.ID, v.PatientID, v.MitarbeiterID, v.RecordedAt, v.Systolic, v.Diastolic, v.Pulse,
		v.Temperature, v.OxygenSaturation, v.Weight, v.Glucose, v.Remarks, v.Critical, string(v.Severity))
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vitalCols+` FROM vitaldaten
		WHERE patient_id = $1
		ORDER BY recorded_at DESC, id
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) LatestForPatients(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]*Vital, error) {
	out := make(map[uuid.UUID]*Vital, len(patientIDs))
	if len(patientIDs) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT ON (patient_id) `+vitalCols+` FROM vitaldaten
		WHERE patient_id = ANY($1)
		ORDER BY patient_id, recorded_at DESC, id`, patientIDs)
	if err != nil {
		return nil, err
	}
	items, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for _, v := range items {
		out[v.PatientID] = v
	}
	return out, nil
}

func (r *repoPG) RecentForPatients(ctx context.Context, patientIDs []uuid.UUID, limit int) ([]*Vital, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vitalCols+` FROM vitaldaten
		WHERE patient_id = ANY($1)
		ORDER BY recorded_at DESC, id
		LIMIT $2`, patientIDs, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) CriticalForPatientsSince(ctx context.Context, patientIDs []uuid.UUID, since time.Time, limit int) ([]*Vital, error) {
	if len(patientIDs) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+vitalCols+` FROM vitaldaten
		WHERE critical AND patient_id = ANY($1) AND recorded_at >= $2
		ORDER BY recorded_at DESC, id
		LIMIT $3`, patientIDs, since, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) CountCriticalSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM vitaldaten WHERE critical AND recorded_at >= $1`, since).Scan(&n)
	return n, err
}
