package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agenda/internal/domain"
	"agenda/internal/models"
)

func (db *DB) GetProfileByUserID(ctx context.Context, userID string) (*models.ClientProfile, error) {
	return scanProfile(db.QueryRowContext(ctx, `
        SELECT id, user_id, name, email, phone, created_at
        FROM profiles WHERE user_id = ?`, userID))
}

// UpsertProfile inserts the profile unless one exists for the user, then
// returns the stored row. Concurrent callers for one user get the same row.
func (db *DB) UpsertProfile(ctx context.Context, profile *models.ClientProfile) (*models.ClientProfile, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin profile upsert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO profiles (user_id, name, email, phone, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO NOTHING`,
		profile.UserID, profile.Name, profile.Email, profile.Phone, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	stored, err := scanProfile(tx.QueryRowContext(ctx, `
        SELECT id, user_id, name, email, phone, created_at
        FROM profiles WHERE user_id = ?`, profile.UserID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile upsert: %w", err)
	}
	return stored, nil
}

func scanProfile(row *sql.Row) (*models.ClientProfile, error) {
	var p models.ClientProfile
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}
