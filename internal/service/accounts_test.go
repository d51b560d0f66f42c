package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
)

func TestAccounts_RequiresLogin(t *testing.T) {
	t.Parallel()
	acc := NewAccounts(newFakeUsers(), nil)

	if acc.LoggedIn() {
		t.Fatalf("fresh accounts must be logged out")
	}
	if _, err := acc.Active(); !errors.Is(err, errs.ErrAuth) {
		t.Fatalf("Active: want ErrAuth, got %v", err)
	}
	err := acc.Commit(context.Background(), func(*model.Identity) error { return nil })
	if !errors.Is(err, errs.ErrAuth) {
		t.Fatalf("Commit: want ErrAuth, got %v", err)
	}
}

func TestAccounts_CommitPersistsAndSwaps(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	acc := loggedIn(users)

	err := acc.Commit(context.Background(), func(id *model.Identity) error {
		id.Projects[0].TotalTime = 5
		return nil
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _ := acc.Active()
	if got.Projects[0].TotalTime != 5 {
		t.Fatalf("memory not updated: %+v", got.Projects[0])
	}
	if users.byEmail["u@focus.test"].Projects[0].TotalTime != 5 {
		t.Fatalf("record not saved")
	}
	if users.current == nil || users.current.Projects[0].TotalTime != 5 {
		t.Fatalf("active snapshot not refreshed")
	}
}

func TestAccounts_CommitMutateErrorChangesNothing(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	acc := loggedIn(users)
	bad := fmt.Errorf("%w: nope", errs.ErrInvalidSelection)

	err := acc.Commit(context.Background(), func(id *model.Identity) error {
		id.Projects = nil
		return bad
	})
	if !errors.Is(err, errs.ErrInvalidSelection) {
		t.Fatalf("want mutate error, got %v", err)
	}
	got, _ := acc.Active()
	if len(got.Projects) != 2 || users.saveCalls != 0 {
		t.Fatalf("mutate error must not persist or swap: projects=%d saves=%d", len(got.Projects), users.saveCalls)
	}
}

func TestAccounts_CommitRetriesTransientStorageErrors(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	acc := loggedIn(users)
	users.saveErr = fmt.Errorf("%w: locked", errs.ErrStorage)
	users.saveFailures = 2

	err := acc.Commit(context.Background(), func(id *model.Identity) error {
		id.Name = "renamed"
		return nil
	})
	if err != nil {
		t.Fatalf("Commit should succeed after retries: %v", err)
	}
	if users.saveCalls != 3 {
		t.Fatalf("want 3 save attempts, got %d", users.saveCalls)
	}
	if got, _ := acc.Active(); got.Name != "renamed" {
		t.Fatalf("memory not updated after retry")
	}
}

func TestAccounts_CommitRollsBackAfterRetriesExhausted(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	acc := loggedIn(users)
	users.saveErr = fmt.Errorf("%w: disk full", errs.ErrStorage)
	users.saveFailures = -1

	err := acc.Commit(context.Background(), func(id *model.Identity) error {
		id.Projects[0].TotalTime = 99
		return nil
	})
	if !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("want ErrStorage, got %v", err)
	}
	got, _ := acc.Active()
	if got.Projects[0].TotalTime != 0 {
		t.Fatalf("in-memory identity must be unchanged after failed commit")
	}
	if users.byEmail["u@focus.test"].Projects[0].TotalTime != 0 {
		t.Fatalf("stored identity must be unchanged after failed commit")
	}
}

func TestAccounts_RestoreReloadsCanonicalRecord(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	users.byEmail["u@focus.test"] = &model.Identity{Email: "u@focus.test", Name: "canonical"}
	users.current = &model.Identity{Email: "u@focus.test", Name: "stale"}

	acc := NewAccounts(users, nil)
	if err := acc.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := acc.Active()
	if err != nil || got.Name != "canonical" {
		t.Fatalf("Restore must load the users-map record: %+v %v", got, err)
	}

	users.current = &model.Identity{Email: "gone@focus.test"}
	acc2 := NewAccounts(users, nil)
	if err := acc2.Restore(context.Background()); err != nil {
		t.Fatalf("Restore dangling: %v", err)
	}
	if acc2.LoggedIn() || users.current != nil {
		t.Fatalf("dangling pointer must be cleared")
	}
}

func TestAccounts_Deactivate(t *testing.T) {
	t.Parallel()
	users := newFakeUsers()
	acc := loggedIn(users)

	if err := acc.Deactivate(context.Background()); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if acc.LoggedIn() || users.current != nil {
		t.Fatalf("still logged in after Deactivate")
	}
}
