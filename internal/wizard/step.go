package wizard

import "fmt"

// Step is one screen of the booking wizard.
type Step int

const (
	StepWelcome Step = iota
	StepLogin
	StepProfessionals
	StepServices
	StepDateTime
	StepNotes
	StepConfirmation
	StepMyBookings
)

var stepNames = [...]string{
	StepWelcome:       "welcome",
	StepLogin:         "login",
	StepProfessionals: "professionals",
	StepServices:      "services",
	StepDateTime:      "datetime",
	StepNotes:         "notes",
	StepConfirmation:  "confirmation",
	StepMyBookings:    "myBookings",
}

func (s Step) Valid() bool {
	return s >= StepWelcome && s <= StepMyBookings
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// Progress is the completion percentage shown for the step.
func (s Step) Progress() int {
	switch s {
	case StepLogin:
		return 20
	case StepProfessionals:
		return 40
	case StepServices:
		return 60
	case StepDateTime:
		return 80
	case StepNotes, StepConfirmation, StepMyBookings:
		return 100
	default:
		return 0
	}
}

// backTargets maps each step that offers a back action to its predecessor.
var backTargets = map[Step]Step{
	StepLogin:         StepWelcome,
	StepProfessionals: StepLogin,
	StepServices:      StepProfessionals,
	StepDateTime:      StepServices,
	StepNotes:         StepDateTime,
}

// forward lists the only non-back transitions.
var forward = map[Step][]Step{
	StepWelcome:       {StepLogin},
	StepLogin:         {StepProfessionals},
	StepProfessionals: {StepServices},
	StepServices:      {StepDateTime},
	StepDateTime:      {StepNotes},
	StepNotes:         {StepConfirmation},
	StepConfirmation:  {StepMyBookings, StepWelcome},
	StepMyBookings:    {StepWelcome},
}

// SignOutTarget is the step a sign-out leaves the wizard on. Sign-out is
// accepted from every step and is the one move outside CanTransition.
func SignOutTarget(Step) Step {
	return StepWelcome
}

// BackTarget returns the step reached by going back from s.
func BackTarget(s Step) (Step, bool) {
	to, ok := backTargets[s]
	return to, ok
}

// CanTransition reports whether the wizard may move from one step to another.
func CanTransition(from, to Step) bool {
	if back, ok := backTargets[from]; ok && back == to {
		return true
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AuthAdvances reports whether an external sign-in event moves the wizard
// from s straight to the professionals step.
func AuthAdvances(s Step) bool {
	return s == StepWelcome || s == StepLogin
}
