package wizard

import "agenda/internal/models"

// View is a point-in-time copy of a Controller's state.
type View struct {
	Step                Step
	Session             Session
	Identity            *models.Identity
	Professionals       []models.Professional
	ProfessionalsLoaded bool
	Services            []models.Service
	ServicesLoaded      bool
	Appointment         *models.Appointment
	History             []models.Appointment
	HistoryLoaded       bool
	Submitting          bool
	Today               models.Date
	Calendar            Calendar
}

func (v View) Progress() int {
	return v.Step.Progress()
}

func (v View) Authenticated() bool {
	return v.Identity != nil
}

// Upcoming returns appointments dated today or later.
func (v View) Upcoming() []models.Appointment {
	var out []models.Appointment
	for _, a := range v.History {
		if !a.Date.Before(v.Today) {
			out = append(out, a)
		}
	}
	return out
}

// Past returns appointments dated before today.
func (v View) Past() []models.Appointment {
	var out []models.Appointment
	for _, a := range v.History {
		if a.Date.Before(v.Today) {
			out = append(out, a)
		}
	}
	return out
}

func (v View) ProfessionalByID(id int64) (models.Professional, bool) {
	return findProfessional(v.Professionals, id)
}

func (v View) ServiceByID(id int64) (models.Service, bool) {
	return findService(v.Services, id)
}
