// Package service contains application services for accounts, authentication and projects.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/repository"
)

// ErrNotLoggedIn is returned by identity-scoped operations when nobody is logged in.
var ErrNotLoggedIn = fmt.Errorf("%w: not logged in", errs.ErrAuth)

// Accounts owns the active identity and is the only writer of identity records.
type Accounts struct {
	repo    repository.AccountRepository
	log     *zap.Logger
	backoff func() retry.Backoff

	mu     sync.Mutex
	active *model.Identity
}

// AccountsOption configures Accounts.
type AccountsOption func(*Accounts)

// WithRetry sets the persistence retry policy: up to attempts retries with
// exponential backoff starting at base. attempts == 0 disables retrying.
func WithRetry(base time.Duration, attempts uint64) AccountsOption {
	return func(a *Accounts) {
		a.backoff = func() retry.Backoff {
			return retry.WithMaxRetries(attempts, retry.NewExponential(base))
		}
	}
}

// NewAccounts constructs the account store. Defaults to 3 retries from 50ms.
func NewAccounts(repo repository.AccountRepository, log *zap.Logger, opts ...AccountsOption) *Accounts {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Accounts{repo: repo, log: log}
	WithRetry(50*time.Millisecond, 3)(a)
	for _, o := range opts {
		o(a)
	}
	return a
}

// Restore loads the persisted active pointer. The snapshot is only trusted for its
// email; the canonical record comes from the users map. A dangling pointer is cleared.
func (a *Accounts) Restore(ctx context.Context) error {
	snap, err := a.repo.Active(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	id, err := a.repo.GetByEmail(ctx, snap.Email)
	if errors.Is(err, errs.ErrNotFound) {
		a.log.Warn("active identity no longer exists, clearing", zap.String("email", snap.Email))
		return a.repo.ClearActive(ctx)
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.active = id
	a.mu.Unlock()
	return nil
}

// Activate persists id as the active identity and makes it current.
func (a *Accounts) Activate(ctx context.Context, id *model.Identity) error {
	if err := a.repo.SetActive(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	a.active = id.Clone()
	a.mu.Unlock()
	return nil
}

// Deactivate clears the active pointer in storage and memory.
func (a *Accounts) Deactivate(ctx context.Context) error {
	if err := a.repo.ClearActive(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.active = nil
	a.mu.Unlock()
	return nil
}

// LoggedIn reports whether an identity is active.
func (a *Accounts) LoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// Active returns a copy of the active identity.
func (a *Accounts) Active() (*model.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == nil {
		return nil, ErrNotLoggedIn
	}
	return a.active.Clone(), nil
}

// Commit applies mutate to a copy of the active identity and persists the copy.
// The in-memory identity is replaced only after persistence succeeded, so a failed
// commit (mutate error or storage error after retries) leaves no trace.
func (a *Accounts) Commit(ctx context.Context, mutate func(*model.Identity) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active == nil {
		return ErrNotLoggedIn
	}
	next := a.active.Clone()
	if err := mutate(next); err != nil {
		return err
	}

	attempt := 0
	err := retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		attempt++
		err := a.persist(ctx, next)
		if err != nil && errors.Is(err, errs.ErrStorage) {
			a.log.Warn("persist identity failed", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		// the users map may already hold next; put the previous record back
		if rerr := a.repo.Save(ctx, a.active); rerr != nil {
			a.log.Error("rollback identity failed", zap.String("email", a.active.Email), zap.Error(rerr))
		}
		a.log.Error("commit rolled back", zap.String("email", a.active.Email), zap.Error(err))
		if errors.Is(err, errs.ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	a.active = next
	return nil
}

func (a *Accounts) persist(ctx context.Context, id *model.Identity) error {
	if err := a.repo.Save(ctx, id); err != nil {
		return err
	}
	return a.repo.SetActive(ctx, id)
}
