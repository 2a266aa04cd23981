package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainalyze/brainalyze/internal/platform/db"
)

type radiologistRepoPG struct{ pool *pgxpool.Pool }

func NewRadiologistRepoPG(pool *pgxpool.Pool) RadiologistRepository {
	return &radiologistRepoPG{pool: pool}
}

func (r *radiologistRepoPG) conn(ctx context.Context) db.Queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const radiologistCols = `id, full_name, email, contact_number, specialty,
	profile_picture, status, created_at, updated_at`

func scanRadiologist(row pgx.Row) (*Radiologist, error) {
	var rad Radiologist
	err := row.Scan(&rad.ID, &rad.FullName, &rad.Email, &rad.ContactNumber,
		&rad.Specialty, &rad.ProfilePicture, &rad.Status, &rad.CreatedAt, &rad.UpdatedAt)
	return &rad, err
}

func (r *radiologistRepoPG) Create(ctx context.Context, rad *Radiologist) error {
	rad.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO radiologist (id, full_name, email, contact_number, specialty, profile_picture, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rad.ID, rad.FullName, rad.Email, rad.ContactNumber, rad.Specialty,
		rad.ProfilePicture, rad.Status)
	return err
}

func (r *radiologistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Radiologist, error) {
	return scanRadiologist(r.conn(ctx).QueryRow(ctx,
		`SELECT `+radiologistCols+` FROM radiologist WHERE id = $1`, id))
}

func (r *radiologistRepoPG) GetByEmail(ctx context.Context, email string) (*Radiologist, error) {
	return scanRadiologist(r.conn(ctx).QueryRow(ctx,
		`SELECT `+radiologistCols+` FROM radiologist WHERE email = $1`, email))
}

func (r *radiologistRepoPG) Update(ctx context.Context, rad *Radiologist) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE radiologist SET full_name=$2, contact_number=$3, specialty=$4,
			profile_picture=$5, status=$6, updated_at=NOW()
		WHERE id = $1`,
		rad.ID, rad.FullName, rad.ContactNumber, rad.Specialty,
		rad.ProfilePicture, rad.Status)
	return err
}

func (r *radiologistRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM radiologist WHERE id = $1`, id)
	return err
}

func (r *radiologistRepoPG) List(ctx context.Context, limit, offset int) ([]*Radiologist, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM radiologist`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+radiologistCols+` FROM radiologist ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Radiologist
	for rows.Next() {
		rad, err := scanRadiologist(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rad)
	}
	return items, total, rows.Err()
}
