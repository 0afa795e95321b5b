package middleware

import (
	"errors"

	"lms/backend/guard"
	"lms/backend/identity"
	"lms/backend/models"
	"lms/backend/session"
	"lms/backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const sessionKey = "session"

var errSessionLoading = errors.New("session is still loading")

// Auth builds a session for each request from its bearer token and applies
// the route decision to it.
type Auth struct {
	provider *identity.Local
	dir      session.Directory
	log      *zap.Logger
}

func NewAuth(provider *identity.Local, dir session.Directory, log *zap.Logger) *Auth {
	return &Auth{provider: provider, dir: dir, log: log}
}

// Open attaches a session to the request whether or not anyone is signed in.
func (a *Auth) Open() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := a.establish(c)
		if err != nil {
			return utils.Error(c, fiber.StatusServiceUnavailable, err)
		}
		defer s.Close()
		return c.Next()
	}
}

// Require admits principals holding one of allowed. With no roles listed any
// signed-in principal is admitted.
func (a *Auth) Require(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := a.establish(c)
		if err != nil {
			return utils.Error(c, fiber.StatusServiceUnavailable, err)
		}
		defer s.Close()

		d := guard.Decide(s.State(), allowed...)
		switch {
		case d.Outcome == guard.Loading:
			c.Set(fiber.HeaderRetryAfter, "1")
			return utils.Error(c, fiber.StatusServiceUnavailable, errSessionLoading)
		case d.Reason == guard.ReasonUnauthenticated:
			return utils.Redirect(c, fiber.StatusUnauthorized, "sign in required", d.Location)
		case d.Reason == guard.ReasonRoleMismatch:
			a.log.Debug("role mismatch",
				zap.String("path", c.Path()),
				zap.String("user_id", s.State().Principal.ID.String()),
				zap.String("redirect", d.Location))
			return utils.Redirect(c, fiber.StatusForbidden, "insufficient role", d.Location)
		}
		return c.Next()
	}
}

func (a *Auth) establish(c *fiber.Ctx) (*session.Session, error) {
	client := a.provider.WithToken(utils.ExtractToken(c))
	s := session.New(client, a.dir, a.log.With(zap.String("request_id", GetRequestID(c))))
	if err := s.Establish(c.UserContext()); err != nil {
		s.Close()
		return nil, err
	}
	c.Locals(sessionKey, s)
	return s, nil
}

// Session returns the session attached by Open or Require.
func Session(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionKey).(*session.Session)
	return s
}

// Principal returns the signed-in principal, or nil.
func Principal(c *fiber.Ctx) *models.Principal {
	if s := Session(c); s != nil {
		return s.State().Principal
	}
	return nil
}
