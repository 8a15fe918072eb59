package domain

import (
	"context"
	"time"

	"agenda/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CatalogReader lists what can be booked.
type CatalogReader interface {
	ListActiveProfessionals(ctx context.Context) ([]models.Professional, error)
	ListActiveServices(ctx context.Context, professionalID int64) ([]models.Service, error)
}

type CatalogWriter interface {
	SyncCatalog(ctx context.Context, catalog *models.Catalog) error
}

type ProfileStore interface {
	GetProfileByUserID(ctx context.Context, userID string) (*models.ClientProfile, error)
	// UpsertProfile creates the profile for profile.UserID or returns the
	// existing one. It is atomic per user.
	UpsertProfile(ctx context.Context, profile *models.ClientProfile) (*models.ClientProfile, error)
}

type AppointmentStore interface {
	// CreateAppointment inserts the appointment and fills ID and CreatedAt.
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	ListAppointmentsByClient(ctx context.Context, clientID int64) ([]models.Appointment, error)
}

type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *models.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
}

// Store is the remote data store behind the booking wizard.
type Store interface {
	CatalogReader
	CatalogWriter
	ProfileStore
	AppointmentStore
	CredentialStore
	Ping(ctx context.Context) error
	Close() error
}

// AuthEvent is the kind of an auth state change.
type AuthEvent string

const (
	AuthSignedIn  AuthEvent = "SIGNED_IN"
	AuthSignedOut AuthEvent = "SIGNED_OUT"
)

// AuthListener receives auth state changes for the session key that caused them.
type AuthListener func(ctx context.Context, key string, event AuthEvent, identity *models.Identity)

// SignUpMetadata is stored alongside a new account.
type SignUpMetadata struct {
	Name  string
	Phone string
}

// AuthProvider authenticates users. Sessions are scoped by a key, one per chat.
type AuthProvider interface {
	SignUp(ctx context.Context, key, email, password string, meta SignUpMetadata) (*models.Identity, error)
	SignInWithPassword(ctx context.Context, key, email, password string) (*models.Identity, error)
	GetSession(ctx context.Context, key string) (*models.Identity, error)
	SignOut(ctx context.Context, key string) error
	OnAuthStateChange(listener AuthListener) (unsubscribe func())
}

type SessionRepository interface {
	GetSession(ctx context.Context, key string) (*models.AuthSession, error)
	SetSession(ctx context.Context, session *models.AuthSession) error
	ClearSession(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type TelegramService interface {
	TelegramSender
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	DeleteMessage(chatID int64, messageID int) error
	SendDocument(chatID int64, name string, data []byte) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
}

// SheetsWriter mirrors stored appointments to a spreadsheet.
type SheetsWriter interface {
	// AppendAppointment adds the task's row unless the appointment is
	// already in the sheet.
	AppendAppointment(ctx context.Context, task *models.MirrorTask) error
	TestConnection(ctx context.Context) error
}
