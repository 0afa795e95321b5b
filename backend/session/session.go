// Package session holds the authentication state of one client: the signed-in
// principal, its profile and roles, and whether that information is still loading.
//
// Every change of principal takes a new request token. Profile and role fetches
// carry the token they were started under and are dropped if a newer one exists,
// so a slow response for a previous principal can never overwrite the current one.
package session

import (
	"context"
	"sync"

	"lms/backend/identity"
	"lms/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LandingPath is where a signed-out client is sent.
const LandingPath = "/"

// Directory is the role/profile store.
type Directory interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Roles(ctx context.Context, userID uuid.UUID) (models.RoleSet, error)
}

// State is a snapshot of the session.
type State struct {
	Principal   *models.Principal `json:"principal"`
	Profile     *models.Profile   `json:"profile"`
	Roles       models.RoleSet    `json:"roles"`
	Loading     bool              `json:"loading"`
	AccessToken string            `json:"-"`
}

func (s State) Authenticated() bool {
	return s.Principal != nil
}

type Session struct {
	provider identity.Provider
	dir      Directory
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	token       uint64
	settled     chan struct{}
	settledDone bool

	unsubscribe func()
	fetches     sync.WaitGroup
}

// New creates a session in the loading state and subscribes it to provider events.
// Call Close when the session is no longer needed.
func New(provider identity.Provider, dir Directory, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		provider: provider,
		dir:      dir,
		log:      log.With(zap.String("component", "session")),
		ctx:      ctx,
		cancel:   cancel,
		state:    State{Loading: true},
		settled:  make(chan struct{}),
	}
	s.unsubscribe = provider.Subscribe(s.OnSessionChange)
	return s
}

// Establish loads the provider's current session and, when there is one, the
// principal's profile and roles. It returns once the session has settled. A
// returned error has already been recovered from: the session is then anonymous.
func (s *Session) Establish(ctx context.Context) error {
	s.mu.Lock()
	s.token++
	tok := s.token
	s.markLoading()
	s.mu.Unlock()

	creds, err := s.provider.CurrentSession(ctx)
	if err != nil {
		s.log.Warn("session lookup failed", zap.Error(err))
	}
	if err != nil || creds == nil {
		s.apply(tok, nil, "", nil, 0)
		return err
	}

	principal := creds.Principal
	s.mu.Lock()
	if tok == s.token {
		s.state.Principal = &principal
		s.state.AccessToken = creds.AccessToken
	}
	s.mu.Unlock()

	s.fetch(ctx, tok, &principal, creds.AccessToken)
	return nil
}

// OnSessionChange applies a provider event. The principal is updated before it
// returns; profile and roles are fetched in the background.
func (s *Session) OnSessionChange(ev identity.Event) {
	var principal *models.Principal
	var accessToken string
	if ev.Credentials != nil {
		p := ev.Credentials.Principal
		principal = &p
		accessToken = ev.Credentials.AccessToken
	}

	s.mu.Lock()
	s.token++
	tok := s.token
	s.state = State{Principal: principal, AccessToken: accessToken}
	if principal == nil {
		s.markSettled()
	} else {
		s.markLoading()
	}
	s.mu.Unlock()

	s.log.Debug("session changed", zap.Stringer("event", ev.Kind), zap.Uint64("token", tok))
	if principal == nil {
		return
	}

	s.fetches.Add(1)
	go func() {
		defer s.fetches.Done()
		s.fetch(s.ctx, tok, principal, accessToken)
	}()
}

// SignIn authenticates with the provider. Roles are loaded through the
// resulting session change; use Settled to wait for them.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	if _, err := s.provider.SignIn(ctx, email, password); err != nil {
		return classify(err)
	}
	return nil
}

// SignUp registers a new account. Only student and instructor may be requested.
func (s *Session) SignUp(ctx context.Context, email, password, displayName string, requested models.Role) error {
	if requested != models.RoleStudent && requested != models.RoleInstructor {
		return &AuthError{Kind: UnknownError, Err: ErrRoleNotRequestable}
	}
	_, err := s.provider.SignUp(ctx, identity.SignUpRequest{
		Email:         email,
		Password:      password,
		DisplayName:   displayName,
		RequestedRole: requested,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// SignOut ends the session and returns the landing path. State is cleared even
// if the provider fails.
func (s *Session) SignOut(ctx context.Context) string {
	if err := s.provider.SignOut(ctx); err != nil {
		s.log.Warn("provider sign-out failed", zap.Error(err))
	}
	s.mu.Lock()
	s.token++
	s.state = State{}
	s.markSettled()
	s.mu.Unlock()
	return LandingPath
}

// HasRole is false while loading; check State().Loading to tell "unknown" from "no".
func (s *Session) HasRole(r models.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.Loading && s.state.Roles.Has(r)
}

func (s *Session) HasAnyRole(roles ...models.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.Loading && s.state.Roles.HasAny(roles...)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Settled blocks until the latest session change has been fully applied.
func (s *Session) Settled(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.state.Loading {
			s.mu.Unlock()
			return nil
		}
		ch := s.settled
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close unsubscribes from the provider and abandons in-flight fetches.
func (s *Session) Close() {
	s.unsubscribe()
	s.mu.Lock()
	s.token++
	s.mu.Unlock()
	s.cancel()
	s.fetches.Wait()
}

func (s *Session) fetch(ctx context.Context, tok uint64, principal *models.Principal, accessToken string) {
	var (
		profile *models.Profile
		roles   models.RoleSet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.dir.Profile(gctx, principal.ID)
		if err != nil {
			s.log.Warn("profile fetch failed", zap.String("user_id", principal.ID.String()), zap.Error(err))
			return nil
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		r, err := s.dir.Roles(gctx, principal.ID)
		if err != nil {
			s.log.Warn("role fetch failed, continuing without roles", zap.String("user_id", principal.ID.String()), zap.Error(err))
			return nil
		}
		roles = r
		return nil
	})
	_ = g.Wait()

	s.apply(tok, principal, accessToken, profile, roles)
}

// apply stores a fetch result if tok is still the latest request token.
func (s *Session) apply(tok uint64, principal *models.Principal, accessToken string, profile *models.Profile, roles models.RoleSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token {
		s.log.Debug("discarding stale session fetch", zap.Uint64("token", tok), zap.Uint64("current", s.token))
		return false
	}
	s.state = State{
		Principal:   principal,
		Profile:     profile,
		Roles:       roles,
		AccessToken: accessToken,
	}
	s.markSettled()
	return true
}

// markLoading and markSettled must be called with mu held.
func (s *Session) markLoading() {
	s.state.Loading = true
	if s.settledDone {
		s.settled = make(chan struct{})
		s.settledDone = false
	}
}

func (s *Session) markSettled() {
	s.state.Loading = false
	if !s.settledDone {
		close(s.settled)
		s.settledDone = true
	}
}
