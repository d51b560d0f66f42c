package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
)

// ProjectService is the project ledger and the writer of the entry log.
type ProjectService interface {
	// Create adds a project with zero total time.
	Create(ctx context.Context, in ProjectInput) (model.Project, error)
	// Delete removes a project and its entries. Unknown ids are a no-op.
	Delete(ctx context.Context, id string) error
	// List returns projects in insertion order.
	List(ctx context.Context) ([]model.Project, error)
	// Get returns one project or errs.ErrInvalidSelection.
	Get(ctx context.Context, id string) (model.Project, error)
	// Entries returns the raw entry log.
	Entries(ctx context.Context) ([]model.TimeEntry, error)
	// Record appends a completed entry and adds its duration to the project total, atomically.
	Record(ctx context.Context, e model.TimeEntry) error
}

type ProjectServiceImpl struct {
	accounts *Accounts
	now      func() time.Time
	log      *zap.Logger
}

var _ ProjectService = (*ProjectServiceImpl)(nil)

// NewProjectService constructs the ledger over the account store.
func NewProjectService(accounts *Accounts, now func() time.Time, log *zap.Logger) *ProjectServiceImpl {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectServiceImpl{accounts: accounts, now: now, log: log}
}

// Create validates the form and appends the project.
func (s *ProjectServiceImpl) Create(ctx context.Context, in ProjectInput) (model.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	if err := check(in); err != nil {
		return model.Project{}, err
	}
	if in.Color == "" {
		in.Color = model.DefaultColor
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Project{}, err
	}
	p := model.Project{
		ID:          uid.String(),
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		CreatedAt:   s.now(),
	}
	err = s.accounts.Commit(ctx, func(id *model.Identity) error {
		id.Projects = append(id.Projects, p)
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}
	s.log.Info("project created", zap.String("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Delete removes the project and cascades to its entries.
func (s *ProjectServiceImpl) Delete(ctx context.Context, projectID string) error {
	id, err := s.accounts.Active()
	if err != nil {
		return err
	}
	if _, ok := id.Project(projectID); !ok {
		return nil
	}
	err = s.accounts.Commit(ctx, func(id *model.Identity) error {
		id.RemoveProject(projectID)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("project deleted", zap.String("id", projectID))
	return nil
}

// List returns a copy of the project collection.
func (s *ProjectServiceImpl) List(context.Context) ([]model.Project, error) {
	id, err := s.accounts.Active()
	if err != nil {
		return nil, err
	}
	return id.Projects, nil
}

// Get resolves a project id within the active identity.
func (s *ProjectServiceImpl) Get(_ context.Context, projectID string) (model.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return model.Project{}, fmt.Errorf("%w: no project selected", errs.ErrInvalidSelection)
	}
	id, err := s.accounts.Active()
	if err != nil {
		return model.Project{}, err
	}
	p, ok := id.Project(projectID)
	if !ok {
		return model.Project{}, fmt.Errorf("%w: project %q not found", errs.ErrInvalidSelection, projectID)
	}
	return *p, nil
}

// Entries returns a copy of the entry log.
func (s *ProjectServiceImpl) Entries(context.Context) ([]model.TimeEntry, error) {
	id, err := s.accounts.Active()
	if err != nil {
		return nil, err
	}
	return id.TimeEntries, nil
}

// Record is the single mutation boundary of a completed session: the entry is
// appended and the project total bumped in one commit, or neither happens.
func (s *ProjectServiceImpl) Record(ctx context.Context, e model.TimeEntry) error {
	if e.Duration < 0 {
		return fmt.Errorf("%w: negative duration", errs.ErrValidation)
	}
	if e.ID == "" {
		uid, err := uuid.NewV4()
		if err != nil {
			return err
		}
		e.ID = uid.String()
	}
	err := s.accounts.Commit(ctx, func(id *model.Identity) error {
		p, ok := id.Project(e.ProjectID)
		if !ok {
			return fmt.Errorf("%w: project %q not found", errs.ErrInvalidSelection, e.ProjectID)
		}
		id.TimeEntries = append(id.TimeEntries, e)
		p.TotalTime += e.Duration
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("session recorded",
		zap.String("project", e.ProjectID),
		zap.Int64("duration_ms", e.Duration),
	)
	return nil
}
