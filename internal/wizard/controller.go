package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/models"

	"github.com/rs/zerolog"
)

// Store is what the wizard reads and writes.
type Store interface {
	domain.CatalogReader
	domain.ProfileStore
	domain.AppointmentStore
}

// Recorder receives wizard metrics.
type Recorder interface {
	Transition(from, to string)
	LoaderError(loader string)
	Submission(professional string, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string)               {}
func (nopRecorder) LoaderError(string)                      {}
func (nopRecorder) Submission(string, time.Duration, error) {}

// Options wires a Controller. Store and Auth are required.
type Options struct {
	Key      string
	Store    Store
	Auth     domain.AuthProvider
	Events   domain.EventPublisher
	Notifier Notifier
	Metrics  Recorder
	Calendar Calendar
	Logger   *zerolog.Logger
}

// Controller drives one user's booking wizard. It is safe for concurrent
// use; its lock is never held while talking to the store or auth provider.
type Controller struct {
	key       string
	store     Store
	auth      domain.AuthProvider
	events    domain.EventPublisher
	notifier  Notifier
	metrics   Recorder
	calendar  Calendar
	submitter *Submitter
	logger    zerolog.Logger

	mu                  sync.Mutex
	step                Step
	session             Session
	identity            *models.Identity
	professionals       []models.Professional
	professionalsLoaded bool
	services            []models.Service
	servicesFor         int64
	servicesLoaded      bool
	serviceGen          uint64
	receipt             *Receipt
	history             []models.Appointment
	historyLoaded       bool
	submitting          bool
}

func NewController(opts Options) *Controller {
	c := &Controller{
		key:       opts.Key,
		store:     opts.Store,
		auth:      opts.Auth,
		events:    opts.Events,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		calendar:  opts.Calendar,
		submitter: NewSubmitter(opts.Store, opts.Store),
		step:      StepWelcome,
	}
	if c.notifier == nil {
		c.notifier = NopNotifier{}
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str("session_key", opts.Key).Logger()
	} else {
		c.logger = zerolog.Nop()
	}
	return c
}

func (c *Controller) Key() string { return c.key }

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Snapshot returns a copy of everything a view needs.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Step:                c.step,
		Session:             c.session,
		ProfessionalsLoaded: c.professionalsLoaded,
		ServicesLoaded:      c.servicesLoaded,
		HistoryLoaded:       c.historyLoaded,
		Submitting:          c.submitting,
		Today:               c.calendar.Today(),
		Calendar:            c.calendar,
	}
	if c.identity != nil {
		id := *c.identity
		v.Identity = &id
	}
	v.Professionals = append([]models.Professional(nil), c.professionals...)
	v.Services = append([]models.Service(nil), c.services...)
	v.History = append([]models.Appointment(nil), c.history...)
	if c.receipt != nil {
		appt := *c.receipt.Appointment
		v.Appointment = &appt
	}
	return v
}

// Start picks the initial step: professionals when a session already
// exists, welcome otherwise.
func (c *Controller) Start(ctx context.Context) error {
	identity, err := c.auth.GetSession(ctx, c.key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to restore auth session")
		identity = nil
	}

	c.mu.Lock()
	c.identity = identity
	if identity != nil {
		c.step = StepProfessionals
	} else {
		c.step = StepWelcome
	}
	needLoad := identity != nil && !c.professionalsLoaded
	c.mu.Unlock()

	c.logger.Debug().Bool("authenticated", identity != nil).Msg("Wizard started")
	if needLoad {
		c.loadProfessionals(ctx)
	}
	return nil
}

// Begin leaves the welcome screen for login. An identity that is already
// present counts as a successful login.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if err := c.moveLocked(StepLogin); err != nil {
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	identity := c.identity
	c.mu.Unlock()

	if identity != nil {
		c.authenticated(ctx, identity)
	}
	return nil
}

// SignIn authenticates with email and password from the login step.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	if err := c.requireStep("sign in", StepLogin); err != nil {
		return c.fail(ctx, err)
	}
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return c.fail(ctx, &AuthError{Op: "sign in", Err: err})
	}

	identity, err := c.auth.SignInWithPassword(ctx, c.key, email, password)
	if err != nil {
		return c.fail(ctx, &AuthError{Op: "sign in", Err: err})
	}
	c.authenticated(ctx, identity)
	return nil
}

// SignUpForm is the registration input.
type SignUpForm struct {
	Name     string
	Phone    string
	Email    string
	Password string
}

func (c *Controller) SignUp(ctx context.Context, form SignUpForm) error {
	if err := c.requireStep("sign up", StepLogin); err != nil {
		return c.fail(ctx, err)
	}
	form.Email = normalizeEmail(form.Email)
	form.Name = strings.TrimSpace(form.Name)
	form.Phone = strings.TrimSpace(form.Phone)
	if err := validateSignUp(form); err != nil {
		return c.fail(ctx, &AuthError{Op: "sign up", Err: err})
	}

	identity, err := c.auth.SignUp(ctx, c.key, form.Email, form.Password, domain.SignUpMetadata{
		Name:  form.Name,
		Phone: form.Phone,
	})
	if err != nil {
		return c.fail(ctx, &AuthError{Op: "sign up", Err: err})
	}
	c.authenticated(ctx, identity)
	return nil
}

// HandleAuthEvent applies an auth state change. It reports whether the step
// changed.
func (c *Controller) HandleAuthEvent(ctx context.Context, event domain.AuthEvent, identity *models.Identity) bool {
	switch event {
	case domain.AuthSignedIn:
		if identity == nil {
			return false
		}
		return c.authenticated(ctx, identity)
	case domain.AuthSignedOut:
		c.mu.Lock()
		c.identity = nil
		c.mu.Unlock()
		c.logger.Info().Msg("Signed out")
		return false
	default:
		return false
	}
}

// SignOut ends the auth session and returns to SignOutTarget from any step,
// unless a submission is in flight.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return c.fail(ctx, ErrSubmissionInFlight)
	}
	c.mu.Unlock()

	if err := c.auth.SignOut(ctx, c.key); err != nil {
		return c.fail(ctx, &AuthError{Op: "sign out", Err: err})
	}

	c.mu.Lock()
	c.identity = nil
	c.resetLocked()
	from := c.step
	to := SignOutTarget(from)
	c.step = to
	c.mu.Unlock()

	c.metrics.Transition(from.String(), to.String())
	return nil
}

// Back moves to the previous step without touching the session.
func (c *Controller) Back(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return c.fail(ctx, ErrSubmissionInFlight)
	}
	to, ok := BackTarget(c.step)
	if !ok {
		err := wrongStep("back", c.step)
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	if err := c.moveLocked(to); err != nil {
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	needLoad := to == StepProfessionals && !c.professionalsLoaded
	c.mu.Unlock()

	if needLoad {
		c.loadProfessionals(ctx)
	}
	return nil
}

// SelectProfessional records the professional and moves to services,
// loading that professional's services. ErrSuperseded means a newer
// selection won while the load was in flight.
func (c *Controller) SelectProfessional(ctx context.Context, id int64) error {
	c.mu.Lock()
	if c.step != StepProfessionals {
		err := wrongStep("select professional", c.step)
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	p, ok := findProfessional(c.professionals, id)
	if !ok {
		c.mu.Unlock()
		return c.fail(ctx, fmt.Errorf("%w: %d", ErrUnknownProfessional, id))
	}

	c.session = c.session.WithProfessional(p)
	if c.servicesFor != id {
		c.services = nil
		c.servicesLoaded = false
	}
	c.servicesFor = id
	c.serviceGen++
	gen := c.serviceGen
	if err := c.moveLocked(StepServices); err != nil {
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	c.mu.Unlock()

	return c.loadServices(ctx, id, gen)
}

// SelectService records the service and moves to date/time selection.
func (c *Controller) SelectService(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepServices {
		return c.failLocked(ctx, wrongStep("select service", c.step))
	}
	p, _ := c.session.Professional()
	if !c.servicesLoaded || c.servicesFor != p.ID {
		return c.failLocked(ctx, fmt.Errorf("%w: %d", ErrUnknownService, id))
	}
	svc, ok := findService(c.services, id)
	if !ok {
		return c.failLocked(ctx, fmt.Errorf("%w: %d", ErrUnknownService, id))
	}
	next, err := c.session.WithService(svc)
	if err != nil {
		return c.failLocked(ctx, err)
	}
	c.session = next
	if err := c.moveLocked(StepDateTime); err != nil {
		return c.failLocked(ctx, err)
	}
	return nil
}

// SelectDate records the date. It never changes the step.
func (c *Controller) SelectDate(ctx context.Context, d models.Date) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepDateTime {
		return c.failLocked(ctx, wrongStep("select date", c.step))
	}
	if err := c.calendar.Check(d); err != nil {
		return c.failLocked(ctx, err)
	}
	c.session = c.session.WithDate(d)
	return nil
}

// SelectTime records the slot and, with a date already chosen, moves to notes.
func (c *Controller) SelectTime(ctx context.Context, slot string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepDateTime {
		return c.failLocked(ctx, wrongStep("select time", c.step))
	}
	if _, ok := c.session.Date(); !ok {
		return c.failLocked(ctx, fmt.Errorf("%w: date", ErrIncompleteSession))
	}
	next, err := c.session.WithTimeSlot(slot)
	if err != nil {
		return c.failLocked(ctx, err)
	}
	c.session = next
	if err := c.moveLocked(StepNotes); err != nil {
		return c.failLocked(ctx, err)
	}
	return nil
}

// Submit stores the appointment with notes and moves to confirmation. On any
// failure the step and the session stay as they were.
func (c *Controller) Submit(ctx context.Context, notes string) error {
	c.mu.Lock()
	if c.step != StepNotes {
		err := wrongStep("submit", c.step)
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	if c.submitting {
		c.mu.Unlock()
		return c.fail(ctx, ErrSubmissionInFlight)
	}
	if c.identity == nil {
		c.mu.Unlock()
		return c.fail(ctx, ErrNotAuthenticated)
	}
	candidate := c.session.WithNotes(notes)
	if !candidate.Complete() {
		c.mu.Unlock()
		return c.fail(ctx, fmt.Errorf("%w: missing %s", ErrIncompleteSession, strings.Join(candidate.Missing(), ", ")))
	}
	identity := *c.identity
	c.submitting = true
	c.mu.Unlock()

	professional, _ := candidate.Professional()
	started := time.Now()
	receipt, err := c.submitter.Submit(ctx, &identity, candidate)
	c.metrics.Submission(professional.Name, time.Since(started), err)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("Submission failed")
		return c.fail(ctx, err)
	}
	c.session = candidate
	c.receipt = receipt
	c.history = nil
	c.historyLoaded = false
	moveErr := c.moveLocked(StepConfirmation)
	c.mu.Unlock()

	if moveErr != nil {
		// The row exists; the wizard can only have left notes through a bug.
		c.logger.Error().Err(moveErr).Int64("appointment_id", receipt.Appointment.ID).Msg("Appointment stored off-step")
	}

	c.logger.Info().
		Int64("appointment_id", receipt.Appointment.ID).
		Int64("client_id", receipt.Profile.ID).
		Msg("Appointment created")
	c.publishCreated(candidate, receipt)
	c.notifier.Notify(ctx, Notification{Kind: KindBooked, Appointment: receipt.Appointment})
	return nil
}

// SkipNotes submits without notes.
func (c *Controller) SkipNotes(ctx context.Context) error {
	return c.Submit(ctx, "")
}

// ViewBookings moves from confirmation to the booking list and loads the
// client's appointments.
func (c *Controller) ViewBookings(ctx context.Context) error {
	c.mu.Lock()
	if err := c.moveLocked(StepMyBookings); err != nil {
		c.mu.Unlock()
		return c.fail(ctx, err)
	}
	clientID := int64(0)
	if c.receipt != nil {
		clientID = c.receipt.Profile.ID
	}
	c.mu.Unlock()

	if clientID != 0 {
		c.loadHistory(ctx, clientID)
	}
	return nil
}

// Restart returns to welcome with an empty session.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.moveLocked(StepWelcome); err != nil {
		return c.failLocked(ctx, err)
	}
	c.resetLocked()
	return nil
}

// Reload re-runs the loader behind the current step.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	step := c.step
	profID := c.servicesFor
	gen := c.serviceGen
	clientID := int64(0)
	if c.receipt != nil {
		clientID = c.receipt.Profile.ID
	}
	c.mu.Unlock()

	switch step {
	case StepProfessionals:
		c.loadProfessionals(ctx)
	case StepServices:
		return c.loadServices(ctx, profID, gen)
	case StepMyBookings:
		if clientID != 0 {
			c.loadHistory(ctx, clientID)
		}
	}
	return nil
}

// authenticated stores the identity and advances welcome/login to
// professionals. The booking session is left alone. Only the call that moves
// the wizard runs the professionals loader.
func (c *Controller) authenticated(ctx context.Context, identity *models.Identity) bool {
	c.mu.Lock()
	id := *identity
	c.identity = &id
	moved := false
	if AuthAdvances(c.step) {
		from := c.step
		c.step = StepProfessionals
		c.metrics.Transition(from.String(), StepProfessionals.String())
		c.logger.Debug().Str("from", from.String()).Msg("Authenticated, advancing to professionals")
		moved = true
	}
	needLoad := moved && !c.professionalsLoaded
	c.mu.Unlock()

	if needLoad {
		c.loadProfessionals(ctx)
	}
	return moved
}

func (c *Controller) requireStep(op string, want Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != want {
		return wrongStep(op, c.step)
	}
	return nil
}

func (c *Controller) moveLocked(to Step) error {
	from := c.step
	if !CanTransition(from, to) {
		return illegal(from, to)
	}
	c.step = to
	c.metrics.Transition(from.String(), to.String())
	c.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Step transition")
	return nil
}

func (c *Controller) resetLocked() {
	c.session = Session{}
	c.services = nil
	c.servicesFor = 0
	c.servicesLoaded = false
	c.serviceGen++
	c.receipt = nil
	c.history = nil
	c.historyLoaded = false
}

func (c *Controller) fail(ctx context.Context, err error) error {
	c.notifier.Notify(ctx, Notification{Kind: KindError, Err: err})
	return err
}

// failLocked releases the lock around the notification and takes it back.
func (c *Controller) failLocked(ctx context.Context, err error) error {
	c.mu.Unlock()
	defer c.mu.Lock()
	return c.fail(ctx, err)
}

func (c *Controller) publishCreated(session Session, receipt *Receipt) {
	if c.events == nil {
		return
	}
	p, _ := session.Professional()
	svc, _ := session.Service()
	appt := receipt.Appointment
	payload := events.AppointmentCreatedPayload{
		AppointmentID:    appt.ID,
		ClientID:         receipt.Profile.ID,
		ClientName:       receipt.Profile.Name,
		ClientEmail:      receipt.Profile.Email,
		ProfessionalID:   p.ID,
		ProfessionalName: p.Name,
		ServiceID:        svc.ID,
		ServiceName:      svc.Name,
		Date:             appt.Date,
		TimeSlot:         appt.TimeSlot,
		Notes:            appt.NotesText(),
		CreatedAt:        appt.CreatedAt,
	}
	if err := c.events.PublishJSON(events.EventAppointmentCreated, payload); err != nil {
		c.logger.Warn().Err(err).Int64("appointment_id", appt.ID).Msg("Failed to publish appointment event")
	}
}

func findProfessional(list []models.Professional, id int64) (models.Professional, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return models.Professional{}, false
}

func findService(list []models.Service, id int64) (models.Service, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if !looksLikeEmail(email) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return nil
}

func validateSignUp(form SignUpForm) error {
	if form.Name == "" || form.Phone == "" {
		return fmt.Errorf("%w: name and phone are required", ErrInvalidInput)
	}
	if err := validateCredentials(form.Email, form.Password); err != nil {
		return err
	}
	if len(form.Password) < models.MinPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, models.MinPasswordLength)
	}
	return nil
}

func looksLikeEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return strings.Contains(s[at+1:], ".") && !strings.ContainsAny(s, " \t")
}

// IsUserError reports whether err comes from the user's input rather than
// from the store or the auth provider.
func IsUserError(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return errors.Is(err, ErrInvalidInput)
	}
	return errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrIncompleteSession) ||
		errors.Is(err, ErrInvalidTimeSlot) ||
		errors.Is(err, ErrDateNotSelectable) ||
		errors.Is(err, ErrUnknownProfessional) ||
		errors.Is(err, ErrUnknownService) ||
		errors.Is(err, ErrInvalidInput)
}
