package session

import (
	"context"
	"errors"
	"net"

	"lms/backend/identity"
)

var ErrRoleNotRequestable = errors.New("role cannot be requested at sign-up")

type AuthErrorKind int

const (
	InvalidCredentials AuthErrorKind = iota
	NetworkError
	UnknownError
)

func (k AuthErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case NetworkError:
		return "network_error"
	}
	return "unknown"
}

// AuthError is returned by SignIn and SignUp. Its message is meant to be shown to the user.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

func classify(err error) *AuthError {
	var netErr net.Error
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &AuthError{Kind: InvalidCredentials, Err: err}
	case errors.Is(err, identity.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return &AuthError{Kind: NetworkError, Err: err}
	}
	return &AuthError{Kind: UnknownError, Err: err}
}
