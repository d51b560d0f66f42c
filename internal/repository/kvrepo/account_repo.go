// Package kvrepo implements repository interfaces over a storage.Store.
package kvrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/repository"
	"github.com/and161185/focus-vault/internal/storage"
)

// Store keys. The users key maps every email to its full record.
const (
	UsersKey   = "focusVaultUsers"
	CurrentKey = "currentFocusVaultUser"
)

// AccountRepo implements AccountRepository on two keys of a key-value store.
type AccountRepo struct{ store storage.Store }

var _ repository.AccountRepository = (*AccountRepo)(nil)

// NewAccountRepo constructs an account repository.
func NewAccountRepo(store storage.Store) *AccountRepo { return &AccountRepo{store: store} }

// NormalizeEmail is the canonical form used as the users map key.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
}

func (r *AccountRepo) loadUsers(ctx context.Context) (map[string]*model.Identity, error) {
	raw, err := r.store.Get(ctx, UsersKey)
	if errors.Is(err, errs.ErrNotFound) {
		return map[string]*model.Identity{}, nil
	}
	if err != nil {
		return nil, storageErr("read users", err)
	}
	users := map[string]*model.Identity{}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, storageErr("decode users", err)
	}
	if users == nil {
		users = map[string]*model.Identity{}
	}
	return users, nil
}

func (r *AccountRepo) saveUsers(ctx context.Context, users map[string]*model.Identity) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return storageErr("encode users", err)
	}
	if err := r.store.Set(ctx, UsersKey, raw); err != nil {
		return storageErr("write users", err)
	}
	return nil
}

// Create inserts a new identity keyed by its normalized email.
func (r *AccountRepo) Create(ctx context.Context, id *model.Identity) error {
	users, err := r.loadUsers(ctx)
	if err != nil {
		return err
	}
	key := NormalizeEmail(id.Email)
	if _, exists := users[key]; exists {
		return errs.ErrAlreadyExists
	}
	users[key] = id
	return r.saveUsers(ctx, users)
}

// GetByEmail loads an identity by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	users, err := r.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := users[NormalizeEmail(email)]
	if !ok || u == nil {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

// Save overwrites the record of an existing identity.
func (r *AccountRepo) Save(ctx context.Context, id *model.Identity) error {
	users, err := r.loadUsers(ctx)
	if err != nil {
		return err
	}
	key := NormalizeEmail(id.Email)
	if _, ok := users[key]; !ok {
		return errs.ErrNotFound
	}
	users[key] = id
	return r.saveUsers(ctx, users)
}

// Active decodes the current snapshot. A stored JSON null means logged out.
func (r *AccountRepo) Active(ctx context.Context) (*model.Identity, error) {
	raw, err := r.store.Get(ctx, CurrentKey)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("read current", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, errs.ErrNotFound
	}
	var id model.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, storageErr("decode current", err)
	}
	return &id, nil
}

// SetActive stores id as the current snapshot.
func (r *AccountRepo) SetActive(ctx context.Context, id *model.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return storageErr("encode current", err)
	}
	if err := r.store.Set(ctx, CurrentKey, raw); err != nil {
		return storageErr("write current", err)
	}
	return nil
}

// ClearActive stores JSON null under the current key.
func (r *AccountRepo) ClearActive(ctx context.Context) error {
	if err := r.store.Set(ctx, CurrentKey, []byte("null")); err != nil {
		return storageErr("clear current", err)
	}
	return nil
}
