package wizard

import (
	"fmt"
	"strings"

	"agenda/internal/models"
)

// Session is the accumulating selection of one booking attempt.
// It is a value: every With method returns a new Session and leaves the
// receiver untouched.
type Session struct {
	professional    models.Professional
	hasProfessional bool
	service         models.Service
	hasService      bool
	date            models.Date
	timeSlot        string
	notes           string
}

func (s Session) Professional() (models.Professional, bool) {
	return s.professional, s.hasProfessional
}

func (s Session) Service() (models.Service, bool) {
	return s.service, s.hasService
}

func (s Session) Date() (models.Date, bool) {
	return s.date, !s.date.IsZero()
}

func (s Session) TimeSlot() (string, bool) {
	return s.timeSlot, s.timeSlot != ""
}

// Notes returns the trimmed notes; ok is false when none were given.
func (s Session) Notes() (string, bool) {
	return s.notes, s.notes != ""
}

func (s Session) IsEmpty() bool {
	return s == Session{}
}

// WithProfessional selects p. Choosing a different professional drops the
// selected service.
func (s Session) WithProfessional(p models.Professional) Session {
	if !s.hasProfessional || s.professional.ID != p.ID {
		s.service = models.Service{}
		s.hasService = false
	}
	s.professional = p
	s.hasProfessional = true
	return s
}

func (s Session) WithService(svc models.Service) (Session, error) {
	if !s.hasProfessional {
		return s, fmt.Errorf("%w: professional", ErrIncompleteSession)
	}
	if svc.ProfessionalID != s.professional.ID {
		return s, fmt.Errorf("%w: service %d belongs to professional %d, not %d",
			ErrServiceMismatch, svc.ID, svc.ProfessionalID, s.professional.ID)
	}
	s.service = svc
	s.hasService = true
	return s, nil
}

func (s Session) WithDate(d models.Date) Session {
	s.date = d
	return s
}

func (s Session) WithTimeSlot(slot string) (Session, error) {
	if !models.IsValidTimeSlot(slot) {
		return s, fmt.Errorf("%w: %q", ErrInvalidTimeSlot, slot)
	}
	s.timeSlot = slot
	return s, nil
}

// WithNotes stores notes; blank input means no notes.
func (s Session) WithNotes(notes string) Session {
	s.notes = strings.TrimSpace(notes)
	return s
}

// Missing lists the required selections not yet made.
func (s Session) Missing() []string {
	var missing []string
	if !s.hasProfessional {
		missing = append(missing, "professional")
	}
	if !s.hasService {
		missing = append(missing, "service")
	}
	if s.date.IsZero() {
		missing = append(missing, "date")
	}
	if s.timeSlot == "" {
		missing = append(missing, "time")
	}
	return missing
}

// Complete reports whether the session can be submitted.
func (s Session) Complete() bool {
	return len(s.Missing()) == 0
}

// Appointment builds the row to insert for clientID.
func (s Session) Appointment(clientID int64) (*models.Appointment, error) {
	if missing := s.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteSession, strings.Join(missing, ", "))
	}
	appt := &models.Appointment{
		ClientID:       clientID,
		ProfessionalID: s.professional.ID,
		ServiceID:      s.service.ID,
		Date:           s.date,
		TimeSlot:       s.timeSlot,
	}
	if s.notes != "" {
		notes := s.notes
		appt.Notes = &notes
	}
	return appt, nil
}
