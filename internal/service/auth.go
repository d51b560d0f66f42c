package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/focus-vault/internal/crypto"
	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/limiter"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/repository"
)

// Demo identity seeded on first run.
const (
	DemoEmail    = "smalesker@focusvault.com"
	DemoPassword = "admin"
	demoID       = "smalesker-001"
	demoName     = "SMALESKER"
)

// AuthService defines registration, login and bootstrap operations.
type AuthService interface {
	// Register creates a new identity. It does not log in.
	Register(ctx context.Context, in RegisterInput) (*model.Identity, error)
	// Login verifies credentials and makes the identity active.
	Login(ctx context.Context, email, password string) (*model.Identity, error)
	// SeedDemo creates the demo identity unless it already exists.
	SeedDemo(ctx context.Context) error
}

type AuthServiceImpl struct {
	users    repository.AccountRepository
	accounts *Accounts
	lim      limiter.Limiter
	now      func() time.Time
	log      *zap.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.AccountRepository, accounts *Accounts, lim limiter.Limiter, now func() time.Time, log *zap.Logger) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, accounts: accounts, lim: lim, now: now, log: log}
}

// Register validates the form, hashes the password and stores an empty identity.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (*model.Identity, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	cred, err := pkgcrypto.NewCredential(in.Password)
	if err != nil {
		return nil, err
	}
	id := &model.Identity{
		ID:          uid.String(),
		Name:        in.Name,
		Email:       in.Email,
		Credential:  cred,
		Projects:    []model.Project{},
		TimeEntries: []model.TimeEntry{},
		CreatedAt:   s.now(),
	}
	if err := s.users.Create(ctx, id); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: an account with this email already exists", errs.ErrAuth)
		}
		return nil, err
	}
	s.log.Info("identity registered", zap.String("email", id.Email))
	return id, nil
}

// Login authenticates with lockout after repeated failures.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", errs.ErrValidation)
	}

	allowed, retryAfter, err := s.lim.Allow(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %w: try again in %s", errs.ErrAuth, errs.ErrRateLimited, retryAfter.Round(time.Second))
	}

	id, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	if err != nil || !pkgcrypto.Matches(id.Credential, password) {
		s.log.Info("login failed", zap.String("email", email))
		blocked, _, ferr := s.lim.Failure(ctx, email)
		if ferr != nil {
			s.log.Warn("login failure not counted", zap.String("email", email), zap.Error(ferr))
		}
		if ferr == nil && blocked {
			return nil, fmt.Errorf("%w: %w", errs.ErrAuth, errs.ErrRateLimited)
		}
		// unknown email and wrong password look the same
		return nil, fmt.Errorf("%w: invalid credentials", errs.ErrAuth)
	}

	// best-effort reset
	if err := s.lim.Success(ctx, email); err != nil {
		s.log.Warn("login limiter reset failed", zap.String("email", email), zap.Error(err))
	}

	if err := s.accounts.Activate(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info("logged in", zap.String("email", id.Email))
	return id, nil
}

// SeedDemo creates the fixed demonstration identity with two projects.
func (s *AuthServiceImpl) SeedDemo(ctx context.Context) error {
	_, err := s.users.GetByEmail(ctx, DemoEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	cred, err := pkgcrypto.NewCredential(DemoPassword)
	if err != nil {
		return err
	}
	now := s.now()
	demo := &model.Identity{
		ID:         demoID,
		Name:       demoName,
		Email:      DemoEmail,
		Credential: cred,
		Projects: []model.Project{
			{ID: "1", Name: "Web Development", Description: "Building awesome web applications", Color: "gold", CreatedAt: now},
			{ID: "2", Name: "Learning & Research", Description: "Studying new technologies and concepts", Color: "blue", CreatedAt: now},
		},
		TimeEntries: []model.TimeEntry{},
		CreatedAt:   now,
	}
	if err := s.users.Create(ctx, demo); err != nil && !errors.Is(err, errs.ErrAlreadyExists) {
		return err
	}
	s.log.Info("demo identity seeded", zap.String("email", DemoEmail))
	return nil
}
