package service

import (
	"context"
	"time"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/limiter"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/repository"
)

type fakeUsers struct {
	byEmail map[string]*model.Identity
	current *model.Identity

	createErr    error
	getErr       error
	saveErr      error
	saveFailures int // fail this many Save calls with saveErr, then succeed; <0 means always
	setActiveErr error

	saveCalls int
}

var _ repository.AccountRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*model.Identity{}} }

func (f *fakeUsers) Create(_ context.Context, id *model.Identity) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[id.Email]; exists {
		return errs.ErrAlreadyExists
	}
	f.byEmail[id.Email] = id.Clone()
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.Identity, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	id, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return id.Clone(), nil
}

func (f *fakeUsers) Save(_ context.Context, id *model.Identity) error {
	f.saveCalls++
	if f.saveErr != nil && f.saveFailures != 0 {
		if f.saveFailures > 0 {
			f.saveFailures--
		}
		return f.saveErr
	}
	if _, ok := f.byEmail[id.Email]; !ok {
		return errs.ErrNotFound
	}
	f.byEmail[id.Email] = id.Clone()
	return nil
}

func (f *fakeUsers) Active(context.Context) (*model.Identity, error) {
	if f.current == nil {
		return nil, errs.ErrNotFound
	}
	return f.current.Clone(), nil
}

func (f *fakeUsers) SetActive(_ context.Context, id *model.Identity) error {
	if f.setActiveErr != nil {
		return f.setActiveErr
	}
	f.current = id.Clone()
	return nil
}

func (f *fakeUsers) ClearActive(context.Context) error {
	f.current = nil
	return nil
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func fixedNow() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

// loggedIn returns accounts with a single active identity owning projects a and b.
func loggedIn(users *fakeUsers) *Accounts {
	id := &model.Identity{
		ID:    "u1",
		Name:  "U",
		Email: "u@focus.test",
		Projects: []model.Project{
			{ID: "a", Name: "A", Color: "gold"},
			{ID: "b", Name: "B", Color: "blue"},
		},
	}
	users.byEmail[id.Email] = id.Clone()
	acc := NewAccounts(users, nil, WithRetry(time.Millisecond, 2))
	if err := acc.Activate(context.Background(), id); err != nil {
		panic(err)
	}
	return acc
}
