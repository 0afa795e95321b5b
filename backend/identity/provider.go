// Package identity implements the identity provider: password accounts, access
// tokens and session change notifications.
package identity

import (
	"context"
	"errors"
	"time"

	"lms/backend/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnavailable        = errors.New("identity provider unavailable")
	ErrInvalidSignUp      = errors.New("invalid sign-up")
)

// Credentials are an established session.
type Credentials struct {
	Principal   models.Principal
	AccessToken string
	TokenID     string
	ExpiresAt   time.Time
}

type EventKind int

const (
	SignedIn EventKind = iota
	TokenRefreshed
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case TokenRefreshed:
		return "token_refreshed"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

// Event reports a session change. Credentials is nil for SignedOut.
type Event struct {
	Kind        EventKind
	Credentials *Credentials
}

type SignUpRequest struct {
	Email         string
	Password      string
	DisplayName   string
	RequestedRole models.Role
}

// Provider is the identity/session provider consumed by the auth session.
type Provider interface {
	// CurrentSession returns nil credentials when nobody is signed in.
	CurrentSession(ctx context.Context) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	SignUp(ctx context.Context, req SignUpRequest) (*Credentials, error)
	SignOut(ctx context.Context) error
	// Subscribe registers fn for session changes and returns an unsubscribe func.
	Subscribe(fn func(Event)) func()
}
