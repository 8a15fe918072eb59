package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agenda/internal/domain"
	"agenda/internal/models"
)

var (
	p1 = models.Professional{ID: 1, Name: "Ana Souza", Specialty: "Cabeleireira", IsActive: true}
	p2 = models.Professional{ID: 2, Name: "Bruno Lima", Specialty: "Barbeiro", IsActive: true}

	s1 = models.Service{ID: 11, Name: "Corte", DurationMinutes: 60, PriceCents: 4500, ProfessionalID: 1, IsActive: true}
	s2 = models.Service{ID: 12, Name: "Escova", DurationMinutes: 45, PriceCents: 6000, ProfessionalID: 1, IsActive: true}
	s3 = models.Service{ID: 21, Name: "Barba", DurationMinutes: 30, PriceCents: 3000, ProfessionalID: 2, IsActive: true}

	march10 = models.Date{Year: 2025, Month: time.March, Day: 10}
)

// fixedCalendar is anchored on Saturday 2025-03-01.
func fixedCalendar() Calendar {
	cal := DefaultCalendar()
	cal.Now = func() time.Time { return time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC) }
	return cal
}

type fakeStore struct {
	mu sync.Mutex

	professionals []models.Professional
	services      map[int64][]models.Service

	professionalsErr error
	servicesErr      error
	upsertErr        error
	createErr        error
	historyErr       error

	// serviceGates blocks ListActiveServices for a professional until closed.
	serviceGates   map[int64]chan struct{}
	serviceStarted chan int64
	// createGate blocks CreateAppointment until closed.
	createGate    chan struct{}
	createStarted chan struct{}

	profiles      map[string]*models.ClientProfile
	appointments  []*models.Appointment
	upsertCalls   int
	createCalls   int
	servicesCalls int

	professionalsCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		professionals: []models.Professional{p1, p2},
		services: map[int64][]models.Service{
			1: {s1, s2},
			2: {s3},
		},
		serviceGates:   map[int64]chan struct{}{},
		serviceStarted: make(chan int64, 100),
		profiles:       map[string]*models.ClientProfile{},
	}
}

func (f *fakeStore) ListActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.professionalsCalls++
	if f.professionalsErr != nil {
		return nil, f.professionalsErr
	}
	return append([]models.Professional(nil), f.professionals...), nil
}

func (f *fakeStore) ListActiveServices(ctx context.Context, professionalID int64) ([]models.Service, error) {
	f.mu.Lock()
	f.servicesCalls++
	gate := f.serviceGates[professionalID]
	f.mu.Unlock()

	f.serviceStarted <- professionalID
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.servicesErr != nil {
		return nil, f.servicesErr
	}
	return append([]models.Service(nil), f.services[professionalID]...), nil
}

func (f *fakeStore) GetProfileByUserID(ctx context.Context, userID string) (*models.ClientProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpsertProfile(ctx context.Context, profile *models.ClientProfile) (*models.ClientProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if existing, ok := f.profiles[profile.UserID]; ok {
		return existing, nil
	}
	created := *profile
	created.ID = int64(100 + len(f.profiles))
	f.profiles[profile.UserID] = &created
	return &created, nil
}

func (f *fakeStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	f.mu.Lock()
	f.createCalls++
	gate := f.createGate
	started := f.createStarted
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	appt.ID = int64(len(f.appointments) + 1)
	appt.CreatedAt = time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	stored := *appt
	f.appointments = append(f.appointments, &stored)
	return nil
}

func (f *fakeStore) ListAppointmentsByClient(ctx context.Context, clientID int64) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.ClientID == clientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeAuth struct {
	mu        sync.Mutex
	session   *models.Identity
	identity  *models.Identity
	signInErr error
	signUpErr error
	calls     int
	listeners []domain.AuthListener

	onSignedIn func(ctx context.Context, identity *models.Identity)
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{identity: &models.Identity{
		UserID: "user-1",
		Email:  "ana@example.com",
		Name:   "Ana Cliente",
		Phone:  "+55 11 99999-0000",
	}}
}

func (a *fakeAuth) SignUp(ctx context.Context, key, email, password string, meta domain.SignUpMetadata) (*models.Identity, error) {
	a.mu.Lock()
	a.calls++
	if a.signUpErr != nil {
		defer a.mu.Unlock()
		return nil, a.signUpErr
	}
	id := &models.Identity{UserID: "user-new", Email: email, Name: meta.Name, Phone: meta.Phone}
	a.session = id
	a.mu.Unlock()

	a.emitSignedIn(ctx, id)
	return id, nil
}

func (a *fakeAuth) SignInWithPassword(ctx context.Context, key, email, password string) (*models.Identity, error) {
	a.mu.Lock()
	a.calls++
	if a.signInErr != nil {
		defer a.mu.Unlock()
		return nil, a.signInErr
	}
	a.session = a.identity
	id := a.identity
	a.mu.Unlock()

	a.emitSignedIn(ctx, id)
	return id, nil
}

// emitSignedIn runs onSignedIn on the caller's goroutine, the way the real
// provider notifies its listeners before returning.
func (a *fakeAuth) emitSignedIn(ctx context.Context, id *models.Identity) {
	a.mu.Lock()
	hook := a.onSignedIn
	a.mu.Unlock()
	if hook != nil {
		hook(ctx, id)
	}
}

func (a *fakeAuth) GetSession(ctx context.Context, key string) (*models.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session, nil
}

func (a *fakeAuth) SignOut(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
	return nil
}

func (a *fakeAuth) OnAuthStateChange(listener domain.AuthListener) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, listener)
	return func() {}
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []error
	for _, n := range r.items {
		if n.Kind == KindError {
			out = append(out, n.Err)
		}
	}
	return out
}

func (r *recordingNotifier) booked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.Kind == KindBooked {
			count++
		}
	}
	return count
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	last   interface{}
}

func (p *recordingPublisher) PublishJSON(eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	p.last = payload
	return nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []string
	loaderErrs  []string
	submissions int
}

func (m *recordingMetrics) Transition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, fmt.Sprintf("%s->%s", from, to))
}

func (m *recordingMetrics) LoaderError(loader string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaderErrs = append(m.loaderErrs, loader)
}

func (m *recordingMetrics) Submission(string, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions++
}

type harness struct {
	ctrl     *Controller
	store    *fakeStore
	auth     *fakeAuth
	notifier *recordingNotifier
	events   *recordingPublisher
	metrics  *recordingMetrics
}

func newHarness() *harness {
	h := &harness{
		store:    newFakeStore(),
		auth:     newFakeAuth(),
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
		metrics:  &recordingMetrics{},
	}
	h.ctrl = NewController(Options{
		Key:      "tg:1",
		Store:    h.store,
		Auth:     h.auth,
		Events:   h.events,
		Notifier: h.notifier,
		Metrics:  h.metrics,
		Calendar: fixedCalendar(),
	})
	return h
}
