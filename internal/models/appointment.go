package models

import "time"

type ClientProfile struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type Appointment struct {
	ID             int64     `json:"id"`
	ClientID       int64     `json:"client_id"`
	ProfessionalID int64     `json:"professional_id"`
	ServiceID      int64     `json:"service_id"`
	Date           Date      `json:"date"`
	TimeSlot       string    `json:"time_slot"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotesText returns the notes or an empty string when none were given.
func (a *Appointment) NotesText() string {
	if a == nil || a.Notes == nil {
		return ""
	}
	return *a.Notes
}
