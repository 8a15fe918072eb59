package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agenda/internal/domain"
	"agenda/internal/models"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetProfileByUserID(ctx context.Context, userID string) (*models.ClientProfile, error) {
	var p models.ClientProfile
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, phone, created_at
		FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile returns the profile for the user, creating it on first use.
// The no-op update makes RETURNING yield the existing row on conflict.
func (s *Store) UpsertProfile(ctx context.Context, profile *models.ClientProfile) (*models.ClientProfile, error) {
	var p models.ClientProfile
	err := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (user_id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, name, email, phone, created_at`,
		profile.UserID, profile.Name, profile.Email, profile.Phone).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: upsert profile: %w", err)
	}
	return &p, nil
}

func (s *Store) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (client_id, professional_id, service_id, date, time_slot, notes, created_at)
		VALUES ($1, $2, $3, $4::date, $5, NULLIF($6, ''), $7)
		RETURNING id`,
		appt.ClientID, appt.ProfessionalID, appt.ServiceID, appt.Date.String(),
		appt.TimeSlot, appt.NotesText(), appt.CreatedAt).
		Scan(&appt.ID)
	if err != nil {
		return fmt.Errorf("postgres: create appointment: %w", err)
	}
	return nil
}

func (s *Store) ListAppointmentsByClient(ctx context.Context, clientID int64) ([]models.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, professional_id, service_id, to_char(date, 'YYYY-MM-DD'),
		       time_slot, COALESCE(notes, ''), created_at
		FROM appointments
		WHERE client_id = $1
		ORDER BY date DESC, time_slot DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var (
			a     models.Appointment
			date  string
			notes string
		)
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ProfessionalID, &a.ServiceID,
			&date, &a.TimeSlot, &notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan appointment: %w", err)
		}
		if a.Date, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("postgres: appointment %d: %w", a.ID, err)
		}
		if notes != "" {
			a.Notes = &notes
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateCredential(ctx context.Context, cred *models.Credential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_users (id, email, password_hash, name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		cred.UserID, cred.Email, cred.PasswordHash, cred.Name, cred.Phone, cred.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("postgres: create credential: %w", err)
	}
	return nil
}

func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, phone, created_at
		FROM auth_users WHERE email = $1`, email).
		Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.Name, &c.Phone, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get credential: %w", err)
	}
	return &c, nil
}
