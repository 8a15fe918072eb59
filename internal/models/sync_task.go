package models

import "time"

// MirrorTask is a queued copy of an appointment bound for the spreadsheet.
type MirrorTask struct {
	AppointmentID    int64     `json:"appointment_id"`
	ClientName       string    `json:"client_name"`
	ClientEmail      string    `json:"client_email"`
	ProfessionalName string    `json:"professional_name"`
	ServiceName      string    `json:"service_name"`
	Date             Date      `json:"date"`
	TimeSlot         string    `json:"time_slot"`
	Notes            string    `json:"notes"`
	RetryCount       int       `json:"retry_count"`
	LastError        string    `json:"last_error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Row is the spreadsheet representation of the task.
func (t *MirrorTask) Row() []interface{} {
	return []interface{}{
		t.AppointmentID,
		t.Date.String(),
		t.TimeSlot,
		t.ProfessionalName,
		t.ServiceName,
		t.ClientName,
		t.ClientEmail,
		t.Notes,
		t.CreatedAt.Format(time.RFC3339),
	}
}
