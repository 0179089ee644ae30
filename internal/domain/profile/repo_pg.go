package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resqnow/resqnow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const profileCols = `id, user_id, full_name, phone, email, national_id, age, gender,
	blood_type, weight_kg, height_cm, allergies, medications, medical_conditions, sensitive_notes,
	emergency_contacts, auto_share_location, role, approved, created_at, updated_at`

func (r *repoPG) scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var contacts []byte
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Phone, &p.Email, &p.NationalID, &p.Age, &p.Gender,
		&p.BloodType, &p.WeightKg, &p.HeightCm, &p.Allergies, &p.Medications, &p.MedicalConditions, &p.SensitiveNotes,
		&contacts, &p.AutoShareLocationToContacts, &p.Role, &p.Approved, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &p.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("decode emergency contacts: %w", err)
		}
	}
	return &p, nil
}

func (r *repoPG) Upsert(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	var contacts []byte
	if p.EmergencyContacts != nil {
		var err error
		contacts, err = json.Marshal(p.EmergencyContacts)
		if err != nil {
			return fmt.Errorf("encode emergency contacts: %w", err)
		}
	}

	// COALESCE keeps stored values for fields the caller left nil, matching
	// the merge-write contract.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO profiles (id, user_id, full_name, phone, email, national_id, age, gender,
			blood_type, weight_kg, height_cm, allergies, medications, medical_conditions, sensitive_notes,
			emergency_contacts, role)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,COALESCE($16, '[]'::jsonb),COALESCE(NULLIF($17,''), 'user'))
		ON CONFLICT (user_id) DO UPDATE SET
			full_name          = COALESCE(EXCLUDED.full_name, profiles.full_name),
			phone              = COALESCE(EXCLUDED.phone, profiles.phone),
			email              = COALESCE(EXCLUDED.email, profiles.email),
			national_id        = COALESCE(EXCLUDED.national_id, profiles.national_id),
			age                = COALESCE(EXCLUDED.age, profiles.age),
			gender             = COALESCE(EXCLUDED.gender, profiles.gender),
			blood_type         = COALESCE(EXCLUDED.blood_type, profiles.blood_type),
			weight_kg          = COALESCE(EXCLUDED.weight_kg, profiles.weight_kg),
			height_cm          = COALESCE(EXCLUDED.height_cm, profiles.height_cm),
			allergies          = COALESCE(EXCLUDED.allergies, profiles.allergies),
			medications        = COALESCE(EXCLUDED.medications, profiles.medications),
			medical_conditions = COALESCE(EXCLUDED.medical_conditions, profiles.medical_conditions),
			sensitive_notes    = COALESCE(EXCLUDED.sensitive_notes, profiles.sensitive_notes),
			emergency_contacts = COALESCE($16, profiles.emergency_contacts),
			updated_at         = NOW()`,
		p.ID, p.UserID, p.FullName, p.Phone, p.Email, p.NationalID, p.Age, p.Gender,
		p.BloodType, p.WeightKg, p.HeightCm, p.Allergies, p.Medications, p.MedicalConditions, p.SensitiveNotes,
		contacts, p.Role)
	return err
}

func (r *repoPG) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	p, err := r.scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+profileCols+` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Profile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) SetAutoShare(ctx context.Context, userID string, enabled bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE profiles SET auto_share_location = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *repoPG) SetApproval(ctx context.Context, userID string, approved bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE profiles SET approved = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *repoPG) SetRole(ctx context.Context, userID string, role string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
