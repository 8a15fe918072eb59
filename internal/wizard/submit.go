package wizard

import (
	"context"
	"fmt"
	"strings"

	"agenda/internal/domain"
	"agenda/internal/models"
)

// Receipt is the outcome of a successful submission.
type Receipt struct {
	Appointment *models.Appointment
	Profile     *models.ClientProfile
}

// Submitter is the single write path: resolve the client profile, then
// insert the appointment.
type Submitter struct {
	profiles     domain.ProfileStore
	appointments domain.AppointmentStore
}

func NewSubmitter(profiles domain.ProfileStore, appointments domain.AppointmentStore) *Submitter {
	return &Submitter{profiles: profiles, appointments: appointments}
}

func (s *Submitter) Submit(ctx context.Context, identity *models.Identity, session Session) (*Receipt, error) {
	if identity == nil || identity.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	if missing := session.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteSession, strings.Join(missing, ", "))
	}

	profile, err := s.profiles.UpsertProfile(ctx, &models.ClientProfile{
		UserID: identity.UserID,
		Name:   identity.DisplayName(),
		Email:  identity.Email,
		Phone:  identity.Phone,
	})
	if err != nil {
		return nil, &ProfileResolutionError{Op: "upsert profile", UserID: identity.UserID, Err: err}
	}

	appt, err := session.Appointment(profile.ID)
	if err != nil {
		return nil, err
	}
	if err := s.appointments.CreateAppointment(ctx, appt); err != nil {
		return nil, &SubmissionError{Op: "create appointment", Err: err}
	}

	return &Receipt{Appointment: appt, Profile: profile}, nil
}
