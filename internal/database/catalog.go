package database

import (
	"context"
	"fmt"

	"agenda/internal/models"
)

func (db *DB) ListActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, name, specialty, avatar_url, is_active
        FROM professionals
        WHERE is_active = 1
        ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	defer rows.Close()

	var out []models.Professional
	for rows.Next() {
		var p models.Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.AvatarURL, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan professional: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) ListActiveServices(ctx context.Context, professionalID int64) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, professional_id, name, description, duration_minutes, price_cents, is_active
        FROM services
        WHERE is_active = 1 AND professional_id = ?
        ORDER BY name ASC`, professionalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var out []models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.ProfessionalID, &s.Name, &s.Description,
			&s.DurationMinutes, &s.PriceCents, &s.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SyncCatalog upserts every professional and service of the catalog in one
// transaction. Rows missing from the catalog are left as they are.
func (db *DB) SyncCatalog(ctx context.Context, catalog *models.Catalog) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog sync: %w", err)
	}
	defer tx.Rollback()

	for _, p := range catalog.Professionals {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO professionals (id, name, specialty, avatar_url, is_active)
            VALUES (?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                specialty = excluded.specialty,
                avatar_url = excluded.avatar_url,
                is_active = excluded.is_active`,
			p.ID, p.Name, p.Specialty, p.AvatarURL, p.IsActive)
		if err != nil {
			return fmt.Errorf("failed to upsert professional %d: %w", p.ID, err)
		}
	}

	for _, s := range catalog.Services {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO services (id, professional_id, name, description, duration_minutes, price_cents, is_active)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                professional_id = excluded.professional_id,
                name = excluded.name,
                description = excluded.description,
                duration_minutes = excluded.duration_minutes,
                price_cents = excluded.price_cents,
                is_active = excluded.is_active`,
			s.ID, s.ProfessionalID, s.Name, s.Description, s.DurationMinutes, s.PriceCents, s.IsActive)
		if err != nil {
			return fmt.Errorf("failed to upsert service %d: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog sync: %w", err)
	}
	db.logger.Info().
		Int("professionals", len(catalog.Professionals)).
		Int("services", len(catalog.Services)).
		Msg("Catalog synchronized")
	return nil
}
