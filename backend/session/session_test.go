package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lms/backend/identity"
	"lms/backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeProvider is an in-memory identity.Provider.
type fakeProvider struct {
	mu        sync.Mutex
	current   *identity.Credentials
	accounts  map[string]models.Principal
	signInErr error
	subs      map[int]func(identity.Event)
	next      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: make(map[string]models.Principal),
		subs:     make(map[int]func(identity.Event)),
	}
}

func (p *fakeProvider) CurrentSession(context.Context) (*identity.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string) (*identity.Credentials, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	principal, ok := p.accounts[email]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	creds := &identity.Credentials{Principal: principal, AccessToken: "token-" + email}
	p.mu.Lock()
	p.current = creds
	p.mu.Unlock()
	p.publish(identity.Event{Kind: identity.SignedIn, Credentials: creds})
	return creds, nil
}

func (p *fakeProvider) SignUp(_ context.Context, req identity.SignUpRequest) (*identity.Credentials, error) {
	principal := models.Principal{ID: uuid.New(), Email: req.Email, DisplayName: req.DisplayName}
	p.accounts[req.Email] = principal
	creds := &identity.Credentials{Principal: principal}
	p.publish(identity.Event{Kind: identity.SignedIn, Credentials: creds})
	return creds, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.publish(identity.Event{Kind: identity.SignedOut})
	return nil
}

func (p *fakeProvider) Subscribe(fn func(identity.Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *fakeProvider) publish(ev identity.Event) {
	p.mu.Lock()
	subs := make([]func(identity.Event), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// fakeDirectory serves roles per principal. A gated principal's role fetch
// blocks until release is called.
type fakeDirectory struct {
	mu       sync.Mutex
	roles    map[uuid.UUID]models.RoleSet
	gates    map[uuid.UUID]chan struct{}
	rolesErr error
	served   int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		roles: make(map[uuid.UUID]models.RoleSet),
		gates: make(map[uuid.UUID]chan struct{}),
	}
}

func (d *fakeDirectory) gate(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gates[id] = make(chan struct{})
}

func (d *fakeDirectory) release(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	close(d.gates[id])
}

func (d *fakeDirectory) Profile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	return &models.Profile{ID: id, FullName: "profile " + id.String()}, nil
}

func (d *fakeDirectory) Roles(ctx context.Context, id uuid.UUID) (models.RoleSet, error) {
	d.mu.Lock()
	gate := d.gates[id]
	roles, err := d.roles[id], d.rolesErr
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	d.mu.Lock()
	d.served++
	d.mu.Unlock()
	return roles, err
}

func settle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Settled(ctx))
}

func TestEstablishAnonymous(t *testing.T) {
	s := New(newFakeProvider(), newFakeDirectory(), zaptest.NewLogger(t))
	defer s.Close()

	assert.True(t, s.State().Loading)
	require.NoError(t, s.Establish(context.Background()))

	st := s.State()
	assert.False(t, st.Loading)
	assert.False(t, st.Authenticated())
	assert.False(t, s.HasRole(models.RoleStudent))
}

func TestEstablishLoadsRoles(t *testing.T) {
	provider := newFakeProvider()
	dir := newFakeDirectory()
	principal := models.Principal{ID: uuid.New(), Email: "teacher@example.com"}
	provider.current = &identity.Credentials{Principal: principal}
	dir.roles[principal.ID] = models.NewRoleSet(models.RoleInstructor, models.RoleStudent)

	s := New(provider, dir, zaptest.NewLogger(t))
	defer s.Close()

	assert.False(t, s.HasRole(models.RoleInstructor), "roles must not be reported while loading")
	require.NoError(t, s.Establish(context.Background()))

	st := s.State()
	assert.False(t, st.Loading)
	require.NotNil(t, st.Profile)
	assert.Equal(t, principal.ID, st.Principal.ID)
	assert.True(t, s.HasRole(models.RoleInstructor))
	assert.False(t, s.HasRole(models.RoleAdmin))
	assert.True(t, s.HasAnyRole(models.RoleAdmin, models.RoleStudent))
	assert.False(t, s.HasAnyRole())
}

func TestRoleFetchFailureDegradesToEmptyRoles(t *testing.T) {
	provider := newFakeProvider()
	dir := newFakeDirectory()
	dir.rolesErr = errors.New("connection reset")
	provider.current = &identity.Credentials{Principal: models.Principal{ID: uuid.New()}}

	s := New(provider, dir, zaptest.NewLogger(t))
	defer s.Close()
	require.NoError(t, s.Establish(context.Background()))

	st := s.State()
	assert.False(t, st.Loading)
	assert.True(t, st.Authenticated())
	assert.True(t, st.Roles.Empty())
}

func TestStaleRoleFetchIsDiscarded(t *testing.T) {
	dir := newFakeDirectory()
	p1 := models.Principal{ID: uuid.New(), Email: "p1@example.com"}
	p2 := models.Principal{ID: uuid.New(), Email: "p2@example.com"}
	dir.roles[p1.ID] = models.NewRoleSet(models.RoleAdmin)
	dir.roles[p2.ID] = models.NewRoleSet(models.RoleStudent)
	dir.gate(p1.ID)
	dir.gate(p2.ID)

	s := New(newFakeProvider(), dir, zaptest.NewLogger(t))
	defer s.Close()

	s.OnSessionChange(identity.Event{Kind: identity.SignedIn, Credentials: &identity.Credentials{Principal: p1}})
	assert.Equal(t, p1.ID, s.State().Principal.ID)
	s.OnSessionChange(identity.Event{Kind: identity.SignedIn, Credentials: &identity.Credentials{Principal: p2}})
	assert.Equal(t, p2.ID, s.State().Principal.ID)
	assert.True(t, s.State().Loading)

	dir.release(p2.ID)
	settle(t, s)
	assert.True(t, s.HasRole(models.RoleStudent))

	dir.release(p1.ID)
	s.fetches.Wait()

	st := s.State()
	assert.Equal(t, p2.ID, st.Principal.ID)
	assert.Equal(t, models.NewRoleSet(models.RoleStudent), st.Roles)
	assert.False(t, s.HasRole(models.RoleAdmin))
}

func TestStaleFetchResolvingFirstKeepsLoading(t *testing.T) {
	dir := newFakeDirectory()
	p1 := models.Principal{ID: uuid.New()}
	p2 := models.Principal{ID: uuid.New()}
	dir.roles[p1.ID] = models.NewRoleSet(models.RoleAdmin)
	dir.roles[p2.ID] = models.NewRoleSet(models.RoleInstructor)
	dir.gate(p1.ID)
	dir.gate(p2.ID)

	s := New(newFakeProvider(), dir, zaptest.NewLogger(t))
	defer s.Close()

	s.OnSessionChange(identity.Event{Kind: identity.SignedIn, Credentials: &identity.Credentials{Principal: p1}})
	s.OnSessionChange(identity.Event{Kind: identity.TokenRefreshed, Credentials: &identity.Credentials{Principal: p2}})

	dir.release(p1.ID)
	require.Eventually(t, func() bool {
		dir.mu.Lock()
		defer dir.mu.Unlock()
		return dir.served == 1
	}, time.Second, 5*time.Millisecond)
	// Give the discarded result time to reach apply.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, s.State().Loading)
	assert.True(t, s.State().Roles.Empty())

	dir.release(p2.ID)
	settle(t, s)
	assert.Equal(t, models.NewRoleSet(models.RoleInstructor), s.State().Roles)
}

func TestSignedOutEventClearsState(t *testing.T) {
	dir := newFakeDirectory()
	p := models.Principal{ID: uuid.New()}
	dir.roles[p.ID] = models.NewRoleSet(models.RoleStudent)

	s := New(newFakeProvider(), dir, zaptest.NewLogger(t))
	defer s.Close()

	s.OnSessionChange(identity.Event{Kind: identity.SignedIn, Credentials: &identity.Credentials{Principal: p}})
	settle(t, s)
	s.OnSessionChange(identity.Event{Kind: identity.SignedOut})

	st := s.State()
	assert.False(t, st.Loading)
	assert.False(t, st.Authenticated())
	assert.True(t, st.Roles.Empty())
}

func TestSignInPopulatesRolesReactively(t *testing.T) {
	provider := newFakeProvider()
	dir := newFakeDirectory()
	p := models.Principal{ID: uuid.New(), Email: "student@example.com"}
	provider.accounts[p.Email] = p
	dir.roles[p.ID] = models.NewRoleSet(models.RoleStudent)

	s := New(provider, dir, zaptest.NewLogger(t))
	defer s.Close()

	require.NoError(t, s.SignIn(context.Background(), p.Email, "pw"))
	settle(t, s)
	assert.True(t, s.HasRole(models.RoleStudent))
	assert.Equal(t, "token-"+p.Email, s.State().AccessToken)

	assert.Equal(t, LandingPath, s.SignOut(context.Background()))
	st := s.State()
	assert.False(t, st.Authenticated())
	assert.False(t, st.Loading)
}

func TestSignInErrors(t *testing.T) {
	provider := newFakeProvider()
	s := New(provider, newFakeDirectory(), zaptest.NewLogger(t))
	defer s.Close()

	err := s.SignIn(context.Background(), "nobody@example.com", "pw")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, InvalidCredentials, authErr.Kind)

	provider.signInErr = identity.ErrUnavailable
	err = s.SignIn(context.Background(), "nobody@example.com", "pw")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, NetworkError, authErr.Kind)

	provider.signInErr = errors.New("boom")
	err = s.SignIn(context.Background(), "nobody@example.com", "pw")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, UnknownError, authErr.Kind)
}

func TestSignUpRefusesAdmin(t *testing.T) {
	s := New(newFakeProvider(), newFakeDirectory(), zaptest.NewLogger(t))
	defer s.Close()

	err := s.SignUp(context.Background(), "root@example.com", "secret123", "Root", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrRoleNotRequestable)

	require.NoError(t, s.SignUp(context.Background(), "new@example.com", "secret123", "New", models.RoleStudent))
	settle(t, s)
	assert.True(t, s.State().Authenticated())
}
