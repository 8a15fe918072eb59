package postgres

import (
	"context"
	"fmt"

	"agenda/internal/models"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, specialty, avatar_url, is_active
		FROM professionals
		WHERE is_active
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list professionals: %w", err)
	}
	defer rows.Close()

	var out []models.Professional
	for rows.Next() {
		var p models.Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.AvatarURL, &p.IsActive); err != nil {
			return nil, fmt.Errorf("postgres: scan professional: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListActiveServices(ctx context.Context, professionalID int64) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, professional_id, name, description, duration_minutes, price_cents, is_active
		FROM services
		WHERE is_active AND professional_id = $1
		ORDER BY name ASC`, professionalID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list services: %w", err)
	}
	defer rows.Close()

	var out []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.ProfessionalID, &svc.Name, &svc.Description,
			&svc.DurationMinutes, &svc.PriceCents, &svc.IsActive); err != nil {
			return nil, fmt.Errorf("postgres: scan service: %w", err)
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) SyncCatalog(ctx context.Context, catalog *models.Catalog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin catalog sync: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := syncCatalogTx(ctx, tx, catalog); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit catalog sync: %w", err)
	}
	s.logger.Info().
		Int("professionals", len(catalog.Professionals)).
		Int("services", len(catalog.Services)).
		Msg("Catalog synchronized")
	return nil
}

func syncCatalogTx(ctx context.Context, tx pgx.Tx, catalog *models.Catalog) error {
	for _, p := range catalog.Professionals {
		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, specialty, avatar_url, is_active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				specialty = EXCLUDED.specialty,
				avatar_url = EXCLUDED.avatar_url,
				is_active = EXCLUDED.is_active`,
			p.ID, p.Name, p.Specialty, p.AvatarURL, p.IsActive)
		if err != nil {
			return fmt.Errorf("postgres: upsert professional %d: %w", p.ID, err)
		}
	}
	for _, svc := range catalog.Services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, professional_id, name, description, duration_minutes, price_cents, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				professional_id = EXCLUDED.professional_id,
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				duration_minutes = EXCLUDED.duration_minutes,
				price_cents = EXCLUDED.price_cents,
				is_active = EXCLUDED.is_active`,
			svc.ID, svc.ProfessionalID, svc.Name, svc.Description, svc.DurationMinutes, svc.PriceCents, svc.IsActive)
		if err != nil {
			return fmt.Errorf("postgres: upsert service %d: %w", svc.ID, err)
		}
	}
	return nil
}
