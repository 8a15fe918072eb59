// Package auth is the email/password authentication provider behind the
// booking wizard. Credentials live in the booking store, sessions in the
// session repository keyed by chat.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agenda/internal/config"
	"agenda/internal/domain"
	"agenda/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Provider struct {
	credentials domain.CredentialStore
	sessions    domain.SessionRepository
	secret      []byte
	ttl         time.Duration
	cost        int
	logger      *zerolog.Logger
	now         func() time.Time

	mu        sync.RWMutex
	listeners map[int]domain.AuthListener
	nextID    int
}

var _ domain.AuthProvider = (*Provider)(nil)

func NewProvider(cfg config.AuthConfig, credentials domain.CredentialStore, sessions domain.SessionRepository, logger *zerolog.Logger) *Provider {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Provider{
		credentials: credentials,
		sessions:    sessions,
		secret:      []byte(cfg.JWTSecret),
		ttl:         ttl,
		cost:        cost,
		logger:      logger,
		now:         time.Now,
		listeners:   make(map[int]domain.AuthListener),
	}
}

func (p *Provider) SignUp(ctx context.Context, key, email, password string, meta domain.SignUpMetadata) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || len(password) < models.MinPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := &models.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(meta.Name),
		Phone:        strings.TrimSpace(meta.Phone),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.credentials.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}

	p.logger.Info().Str("user_id", cred.UserID).Msg("User registered")
	return p.establish(ctx, key, cred)
}

func (p *Provider) SignInWithPassword(ctx context.Context, key, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	allowed, err := p.sessions.CheckRateLimit(ctx, "signin:"+email, models.SignInAttempts, models.SignInWindow)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Sign-in rate limit check failed")
	} else if !allowed {
		return nil, ErrRateLimited
	}

	cred, err := p.credentials.GetCredentialByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p.establish(ctx, key, cred)
}

// GetSession returns the identity signed in under key, or nil when there is
// none. An expired session is removed and reported as signed out.
func (p *Provider) GetSession(ctx context.Context, key string) (*models.Identity, error) {
	session, err := p.sessions.GetSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if _, err := p.verifyToken(session.AccessToken, key); err != nil {
		if clearErr := p.sessions.ClearSession(ctx, key); clearErr != nil {
			p.logger.Warn().Err(clearErr).Str("key", key).Msg("Failed to clear invalid session")
		}
		p.emit(ctx, key, domain.AuthSignedOut, nil)
		if errors.Is(err, ErrSessionExpired) {
			return nil, ErrSessionExpired
		}
		p.logger.Warn().Err(err).Str("key", key).Msg("Dropping invalid session token")
		return nil, nil
	}
	return session.Identity(), nil
}

func (p *Provider) SignOut(ctx context.Context, key string) error {
	if err := p.sessions.ClearSession(ctx, key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	p.emit(ctx, key, domain.AuthSignedOut, nil)
	return nil
}

// OnAuthStateChange registers l for every sign-in and sign-out. Listeners
// run on the goroutine that caused the change.
func (p *Provider) OnAuthStateChange(l domain.AuthListener) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) establish(ctx context.Context, key string, cred *models.Credential) (*models.Identity, error) {
	token, expiresAt, err := p.issueToken(key, cred.UserID, cred.Email)
	if err != nil {
		return nil, err
	}

	session := &models.AuthSession{
		Key:         key,
		UserID:      cred.UserID,
		Email:       cred.Email,
		Name:        cred.Name,
		Phone:       cred.Phone,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}
	if err := p.sessions.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	identity := session.Identity()
	p.emit(ctx, key, domain.AuthSignedIn, identity)
	return identity, nil
}

func (p *Provider) emit(ctx context.Context, key string, event domain.AuthEvent, identity *models.Identity) {
	p.mu.RLock()
	listeners := make([]domain.AuthListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.RUnlock()

	p.logger.Debug().Str("key", key).Str("event", string(event)).Int("listeners", len(listeners)).Msg("Auth state changed")
	for _, l := range listeners {
		var cp *models.Identity
		if identity != nil {
			v := *identity
			cp = &v
		}
		l(ctx, key, event, cp)
	}
}
