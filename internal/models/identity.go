package models

import "time"

// Identity is the authenticated user as reported by the auth provider.
type Identity struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// DisplayName falls back to the email when no name was registered.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Credential is a stored email/password account.
type Credential struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession is a persisted sign-in bound to a session key (one per chat).
type AuthSession struct {
	Key         string    `json:"key"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *AuthSession) Identity() *Identity {
	if s == nil {
		return nil
	}
	return &Identity{
		UserID:      s.UserID,
		Email:       s.Email,
		Name:        s.Name,
		Phone:       s.Phone,
		AccessToken: s.AccessToken,
		ExpiresAt:   s.ExpiresAt,
	}
}
