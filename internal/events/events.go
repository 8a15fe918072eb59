package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"agenda/internal/models"
)

const (
	EventAppointmentCreated = "appointment_created"
	EventUserSignedIn       = "user_signed_in"
	EventUserSignedOut      = "user_signed_out"
)

// AppointmentCreatedPayload is the snapshot published after a booking is stored.
type AppointmentCreatedPayload struct {
	AppointmentID    int64       `json:"appointment_id"`
	ClientID         int64       `json:"client_id"`
	ClientName       string      `json:"client_name"`
	ClientEmail      string      `json:"client_email"`
	ProfessionalID   int64       `json:"professional_id"`
	ProfessionalName string      `json:"professional_name"`
	ServiceID        int64       `json:"service_id"`
	ServiceName      string      `json:"service_name"`
	Date             models.Date `json:"date"`
	TimeSlot         string      `json:"time_slot"`
	Notes            string      `json:"notes,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// AuthPayload accompanies sign-in and sign-out events.
type AuthPayload struct {
	Key    string `json:"key"`
	UserID string `json:"user_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every handler of the event type in order and joins their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
