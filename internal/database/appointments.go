package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"agenda/internal/models"
)

func (db *DB) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	now := time.Now().UTC()
	var notes sql.NullString
	if appt.Notes != nil {
		notes = sql.NullString{String: *appt.Notes, Valid: true}
	}

	result, err := db.ExecContext(ctx, `
        INSERT INTO appointments (client_id, professional_id, service_id, date, time_slot, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		appt.ClientID, appt.ProfessionalID, appt.ServiceID, appt.Date.String(), appt.TimeSlot, notes, now)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	appt.ID = id
	appt.CreatedAt = now
	return nil
}

// ListAppointmentsByClient returns the client's appointments, newest date first.
func (db *DB) ListAppointmentsByClient(ctx context.Context, clientID int64) ([]models.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT id, client_id, professional_id, service_id, date, time_slot, notes, created_at
        FROM appointments
        WHERE client_id = ?
        ORDER BY date DESC, time_slot DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var (
			a     models.Appointment
			date  string
			notes sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ProfessionalID, &a.ServiceID,
			&date, &a.TimeSlot, &notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		if a.Date, err = models.ParseDate(date); err != nil {
			return nil, err
		}
		if notes.Valid {
			n := notes.String
			a.Notes = &n
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
