package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pflege/pflege/internal/platform/db"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// -- Mitarbeiter --

type mitarbeiterRepoPG struct{ pool *pgxpool.Pool }

func NewMitarbeiterRepoPG(pool *pgxpool.Pool) MitarbeiterRepository {
	return &mitarbeiterRepoPG{pool: pool}
}

func (r *mitarbeiterRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const mitarbeiterCols = `id, username, name, birthdate::text, created_at`

func (r *mitarbeiterRepoPG) scan(row pgx.Row) (*Mitarbeiter, error) {
	var m Mitarbeiter
	if err := row.Scan(&m.ID, &m.Username, &m.Name, &m.Birthdate, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMitarbeiterNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *mitarbeiterRepoPG) Create(ctx context.Context, m *Mitarbeiter) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO mitarbeiter (id, username, name, birthdate)
		VALUES ($1, $2, $3, $4::date)
		RETURNING created_at`,
		m.ID, m.Username, m.Name, m.Birthdate).Scan(&m.CreatedAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *mitarbeiterRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Mitarbeiter, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+mitarbeiterCols+` FROM mitarbeiter WHERE id = $1`, id))
}

func (r *mitarbeiterRepoPG) GetByUsername(ctx context.Context, username string) (*Mitarbeiter, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+mitarbeiterCols+` FROM mitarbeiter WHERE username = $1`, username))
}

func (r *mitarbeiterRepoPG) List(ctx context.Context) ([]*Mitarbeiter, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+mitarbeiterCols+` FROM mitarbeiter ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Mitarbeiter
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *mitarbeiterRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM mitarbeiter`).Scan(&n)
	return n, err
}

// -- Patient --

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, username, name, birthdate::text, COALESCE(room, ''), COALESCE(location, ''), created_at`

func (r *patientRepoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Username, &p.Name, &p.Birthdate, &p.Room, &p.Location, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patienten (id, username, name, birthdate, room, location)
		VALUES ($1, $2, $3, $4::date, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING created_at`,
		p.ID, p.Username, p.Name, p.Birthdate, p.Room, p.Location).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patienten WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByUsername(ctx context.Context, username string) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patienten WHERE username = $1`, username))
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patienten`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patienten ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) UpdateLocation(ctx context.Context, id uuid.UUID, location string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE patienten SET location = $2 WHERE id = $1`, id, location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// -- Admin --

type adminRepoPG struct{ pool *pgxpool.Pool }

func NewAdminRepoPG(pool *pgxpool.Pool) AdminRepository {
	return &adminRepoPG{pool: pool}
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO admins (id, username, name, birthdate)
		VALUES ($1, $2, $3, $4::date)
		RETURNING created_at`,
		a.ID, a.Username, a.Name, a.Birthdate).Scan(&a.CreatedAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *adminRepoPG) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, username, name, birthdate::text, created_at FROM admins WHERE username = $1`, username).
		Scan(&a.ID, &a.Username, &a.Name, &a.Birthdate, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
