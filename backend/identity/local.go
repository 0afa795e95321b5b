package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"lms/backend/models"
	"lms/backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type LocalConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// Local is a Provider backed by the users table. A Local value represents one
// client: it remembers the token it was given or issued.
type Local struct {
	db      *gorm.DB
	cfg     LocalConfig
	revoked Revocations
	log     *zap.Logger

	mu      sync.Mutex
	token   string
	current *Credentials
	subs    map[int]func(Event)
	nextSub int
}

func NewLocal(db *gorm.DB, cfg LocalConfig, revoked Revocations, log *zap.Logger) *Local {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if revoked == nil {
		revoked = NoRevocations{}
	}
	return &Local{
		db:      db,
		cfg:     cfg,
		revoked: revoked,
		log:     log.With(zap.String("component", "identity")),
		subs:    make(map[int]func(Event)),
	}
}

// WithToken returns a provider for a client presenting token.
func (p *Local) WithToken(token string) *Local {
	return &Local{
		db:      p.db,
		cfg:     p.cfg,
		revoked: p.revoked,
		log:     p.log,
		token:   token,
		subs:    make(map[int]func(Event)),
	}
}

func (p *Local) CurrentSession(ctx context.Context) (*Credentials, error) {
	p.mu.Lock()
	token, current := p.token, p.current
	p.mu.Unlock()

	if current != nil {
		return current, nil
	}
	if token == "" {
		return nil, nil
	}

	claims, err := utils.ParseJWTToken(token, p.cfg.JWTSecret)
	if err != nil {
		return nil, nil
	}
	revoked, err := p.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if revoked {
		return nil, nil
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil
	}
	principal, err := p.principal(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	creds := &Credentials{
		Principal:   *principal,
		AccessToken: token,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	p.mu.Lock()
	p.current = creds
	p.mu.Unlock()
	return creds, nil
}

func (p *Local) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	principal, err := p.principal(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	creds, err := p.issue(*principal)
	if err != nil {
		return nil, err
	}
	p.log.Info("signed in", zap.String("user_id", user.ID.String()))
	p.publish(Event{Kind: SignedIn, Credentials: creds})
	return creds, nil
}

// SignUp creates the user together with its profile and the requested role.
func (p *Local) SignUp(ctx context.Context, req SignUpRequest) (*Credentials, error) {
	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidSignUp, req.Email)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignUp, minPasswordLength)
	}
	if req.RequestedRole != models.RoleStudent && req.RequestedRole != models.RoleInstructor {
		return nil, fmt.Errorf("%w: role %s cannot be requested", ErrInvalidSignUp, req.RequestedRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: string(hash)}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Profile{ID: user.ID, FullName: strings.TrimSpace(req.DisplayName)}).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoleAssignment{UserID: user.ID, Role: req.RequestedRole}).Error
	})
	if errors.Is(err, ErrEmailTaken) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	creds, err := p.issue(models.Principal{ID: user.ID, Email: email, DisplayName: strings.TrimSpace(req.DisplayName)})
	if err != nil {
		return nil, err
	}
	p.log.Info("signed up", zap.String("user_id", user.ID.String()), zap.Stringer("role", req.RequestedRole))
	p.publish(Event{Kind: SignedIn, Credentials: creds})
	return creds, nil
}

func (p *Local) SignOut(ctx context.Context) error {
	creds, err := p.CurrentSession(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.current = nil
	p.token = ""
	p.mu.Unlock()

	if creds != nil {
		if err := p.revoked.Revoke(ctx, creds.TokenID, creds.ExpiresAt); err != nil {
			p.log.Warn("token revocation failed", zap.String("user_id", creds.Principal.ID.String()), zap.Error(err))
		}
	}
	p.publish(Event{Kind: SignedOut})
	return nil
}

func (p *Local) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Local) issue(principal models.Principal) (*Credentials, error) {
	token, claims, err := utils.GenerateJWTToken(principal.ID, principal.Email, p.cfg.JWTSecret, p.cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	creds := &Credentials{
		Principal:   principal,
		AccessToken: token,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	p.mu.Lock()
	p.token = token
	p.current = creds
	p.mu.Unlock()
	return creds, nil
}

func (p *Local) publish(ev Event) {
	p.mu.Lock()
	subs := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (p *Local) principal(ctx context.Context, userID uuid.UUID) (*models.Principal, error) {
	var user models.User
	if err := p.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	principal := &models.Principal{ID: user.ID, Email: user.Email}

	var profile models.Profile
	err := p.db.WithContext(ctx).First(&profile, "id = ?", userID).Error
	switch {
	case err == nil:
		principal.DisplayName = profile.FullName
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return principal, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
