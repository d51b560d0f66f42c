// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/focus-vault/internal/model"
)

// AccountRepository persists identities and the active identity pointer.
type AccountRepository interface {
	// Create inserts a new identity; errs.ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, id *model.Identity) error
	// GetByEmail loads an identity; errs.ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	// Save overwrites the full record of an existing identity.
	Save(ctx context.Context, id *model.Identity) error
	// Active returns the active identity snapshot; errs.ErrNotFound when logged out.
	Active(ctx context.Context) (*model.Identity, error)
	// SetActive stores the active identity snapshot.
	SetActive(ctx context.Context, id *model.Identity) error
	// ClearActive marks nobody as logged in.
	ClearActive(ctx context.Context) error
}
