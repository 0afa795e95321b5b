// Package guard decides whether a role-scoped section may be shown to a session.
package guard

import (
	"lms/backend/models"
	"lms/backend/session"
)

type Outcome int

const (
	Loading Outcome = iota
	Redirect
	Render
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	}
	return "unknown"
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonRoleMismatch
)

// Decision is the outcome of one guard evaluation. Location is set only for Redirect.
type Decision struct {
	Outcome  Outcome
	Reason   Reason
	Location string
}

var homes = map[models.Role]string{
	models.RoleAdmin:      "/admin",
	models.RoleInstructor: "/instructor",
	models.RoleStudent:    "/student",
}

// HomeFor returns the landing path of the highest-precedence role, or the public
// landing path when the set is empty.
func HomeFor(roles models.RoleSet) string {
	if r, ok := roles.Highest(); ok {
		return homes[r]
	}
	return session.LandingPath
}

// Decide evaluates a section guarded by allowed. An empty allowed list admits
// any authenticated principal.
func Decide(st session.State, allowed ...models.Role) Decision {
	switch {
	case st.Loading:
		return Decision{Outcome: Loading}
	case !st.Authenticated():
		return Decision{Outcome: Redirect, Reason: ReasonUnauthenticated, Location: session.LandingPath}
	case len(allowed) == 0 || st.Roles.HasAny(allowed...):
		return Decision{Outcome: Render}
	}
	return Decision{Outcome: Redirect, Reason: ReasonRoleMismatch, Location: HomeFor(st.Roles)}
}
