package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agenda/internal/domain"
	"agenda/internal/models"
)

func (db *DB) CreateCredential(ctx context.Context, cred *models.Credential) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO auth_users (id, email, password_hash, name, phone, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		cred.UserID, cred.Email, cred.PasswordHash, cred.Name, cred.Phone, cred.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("credential %s: %w", cred.Email, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (db *DB) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	err := db.QueryRowContext(ctx, `
        SELECT id, email, password_hash, name, phone, created_at
        FROM auth_users WHERE email = ?`, email).
		Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.Name, &c.Phone, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &c, nil
}
