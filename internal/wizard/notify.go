package wizard

import (
	"context"

	"agenda/internal/models"
)

type Kind int

const (
	KindError Kind = iota
	KindBooked
)

// Notification is a transient message for the user.
type Notification struct {
	Kind        Kind
	Err         error
	Appointment *models.Appointment
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}
