// Package app wires accounts, projects, the session timer and statistics into
// the command surface used by the CLI.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/limiter"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/repository/kvrepo"
	"github.com/and161185/focus-vault/internal/service"
	"github.com/and161185/focus-vault/internal/stats"
	"github.com/and161185/focus-vault/internal/storage"
	"github.com/and161185/focus-vault/internal/timer"
)

// LogoutPolicy decides what happens to a running or paused session on logout.
type LogoutPolicy int

const (
	// LogoutRefuse keeps everything as is and fails with errs.ErrInvalidState.
	LogoutRefuse LogoutPolicy = iota
	// LogoutStopSession records the session, then logs out.
	LogoutStopSession
	// LogoutAbandon drops the session unrecorded.
	LogoutAbandon
)

// Options tunes the application. Zero values mean defaults.
type Options struct {
	Now     func() time.Time
	Log     *zap.Logger
	Limiter limiter.Limiter // defaults to a store-backed limiter with the Login* policy

	LoginMaxFails int
	LoginWindow   time.Duration
	LoginLockFor  time.Duration

	RetryBase     time.Duration
	RetryAttempts uint64

	Tick        time.Duration
	OnTick      func(time.Duration)
	RecentLimit int
}

// App is the single entry point for CLI commands.
type App struct {
	accounts *service.Accounts
	auth     service.AuthService
	projects service.ProjectService
	timer    *timer.Timer

	now    func() time.Time
	log    *zap.Logger
	recent int
}

// New builds the application over store.
func New(store storage.Store, opts Options) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.LoginMaxFails <= 0 {
		opts.LoginMaxFails = 5
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = 15 * time.Minute
	}
	if opts.LoginLockFor <= 0 {
		opts.LoginLockFor = 15 * time.Minute
	}
	if opts.Limiter == nil {
		opts.Limiter = limiter.NewKV(store, opts.LoginWindow, opts.LoginMaxFails, opts.LoginLockFor).WithClock(opts.Now)
	}

	var accOpts []service.AccountsOption
	if opts.RetryBase > 0 {
		accOpts = append(accOpts, service.WithRetry(opts.RetryBase, opts.RetryAttempts))
	}

	repo := kvrepo.NewAccountRepo(store)
	accounts := service.NewAccounts(repo, opts.Log.Named("accounts"), accOpts...)
	projects := service.NewProjectService(accounts, opts.Now, opts.Log.Named("projects"))

	timerOpts := []timer.Option{timer.WithClock(opts.Now), timer.WithLogger(opts.Log.Named("timer"))}
	if opts.OnTick != nil {
		timerOpts = append(timerOpts, timer.WithTick(opts.Tick, opts.OnTick))
	}

	return &App{
		accounts: accounts,
		auth:     service.NewAuthService(repo, accounts, opts.Limiter, opts.Now, opts.Log.Named("auth")),
		projects: projects,
		timer:    timer.New(projects, projects, timerOpts...),
		now:      opts.Now,
		log:      opts.Log,
		recent:   opts.RecentLimit,
	}
}

// Bootstrap seeds the demo identity and restores the persisted login.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := a.auth.SeedDemo(ctx); err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	if err := a.accounts.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// Close stops background work.
func (a *App) Close() { a.timer.Close() }

// Register creates an account without logging in.
func (a *App) Register(ctx context.Context, in service.RegisterInput) (*model.Identity, error) {
	return a.auth.Register(ctx, in)
}

// Login authenticates and switches the active identity. It is refused while a
// session is in progress because the session belongs to the current identity.
func (a *App) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	if st := a.timer.State(); st != timer.StateIdle {
		return nil, fmt.Errorf("%w: a session is %s, stop it first", errs.ErrInvalidState, st)
	}
	return a.auth.Login(ctx, email, password)
}

// Logout clears the active identity, handling an in-progress session per policy.
func (a *App) Logout(ctx context.Context, policy LogoutPolicy) error {
	if st := a.timer.State(); st != timer.StateIdle {
		switch policy {
		case LogoutStopSession:
			if _, err := a.timer.Stop(ctx); err != nil {
				return err
			}
		case LogoutAbandon:
			s, _ := a.timer.Session()
			a.timer.Abandon()
			a.log.Warn("session abandoned on logout",
				zap.String("project", s.ProjectID),
				zap.Duration("elapsed", s.Elapsed),
			)
		default:
			return fmt.Errorf("%w: a session is %s, stop it first", errs.ErrInvalidState, st)
		}
	}
	return a.accounts.Deactivate(ctx)
}

// Whoami returns the active identity.
func (a *App) Whoami() (*model.Identity, error) { return a.accounts.Active() }

// CreateProject adds a project to the active identity.
func (a *App) CreateProject(ctx context.Context, in service.ProjectInput) (model.Project, error) {
	return a.projects.Create(ctx, in)
}

// DeleteProject removes a project and its entries. The project tracked by the
// current session cannot be deleted.
func (a *App) DeleteProject(ctx context.Context, id string) error {
	if s, ok := a.timer.Session(); ok && s.ProjectID == id {
		return fmt.Errorf("%w: project %q has an active session", errs.ErrInvalidState, id)
	}
	return a.projects.Delete(ctx, id)
}

// Projects lists the active identity's projects.
func (a *App) Projects(ctx context.Context) ([]model.Project, error) { return a.projects.List(ctx) }

// Start begins a session.
func (a *App) Start(ctx context.Context, projectID, task string) error {
	if !a.accounts.LoggedIn() {
		return service.ErrNotLoggedIn
	}
	return a.timer.Start(ctx, projectID, task)
}

// Pause pauses the session.
func (a *App) Pause() error { return a.timer.Pause() }

// Resume resumes the session.
func (a *App) Resume() error { return a.timer.Resume() }

// Stop ends and records the session.
func (a *App) Stop(ctx context.Context) (model.TimeEntry, error) { return a.timer.Stop(ctx) }

// Status is a snapshot of the timer.
type Status struct {
	State   timer.State
	Session model.Session // zero when idle
	Elapsed time.Duration
}

// Status reports the timer state.
func (a *App) Status() Status {
	st, s := a.timer.Snapshot()
	return Status{State: st, Session: s, Elapsed: s.Elapsed}
}

// RecentEntries returns the newest entries; limit <= 0 uses the configured default.
func (a *App) RecentEntries(ctx context.Context, limit int) ([]model.TimeEntry, error) {
	entries, err := a.projects.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = a.recent
	}
	return stats.RecentEntries(entries, limit), nil
}

// Dashboard holds the three headline windows.
type Dashboard struct {
	Today stats.Totals `json:"today"`
	Week  stats.Totals `json:"week"`
	Total stats.Totals `json:"total"`
}

// Dashboard aggregates today, this week and all time.
func (a *App) Dashboard(ctx context.Context) (Dashboard, error) {
	entries, err := a.projects.Entries(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	now := a.now()
	return Dashboard{
		Today: stats.WindowStats(entries, stats.Today, now),
		Week:  stats.WindowStats(entries, stats.Week, now),
		Total: stats.WindowStats(entries, stats.Total, now),
	}, nil
}

// Window aggregates a single window.
func (a *App) Window(ctx context.Context, w stats.Window) (stats.Totals, error) {
	entries, err := a.projects.Entries(ctx)
	if err != nil {
		return stats.Totals{}, err
	}
	return stats.WindowStats(entries, w, a.now()), nil
}

// Report builds the full statistics report.
func (a *App) Report(ctx context.Context) (stats.Report, error) {
	id, err := a.accounts.Active()
	if err != nil {
		return stats.Report{}, err
	}
	return stats.Summarize(id.TimeEntries, len(id.Projects), a.now()), nil
}

type export struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	CreatedAt   time.Time         `json:"createdAt"`
	Projects    []model.Project   `json:"projects"`
	TimeEntries []model.TimeEntry `json:"timeEntries"`
	ExportDate  time.Time         `json:"exportDate"`
}

// Export writes the active identity's data as indented JSON, without the credential.
func (a *App) Export(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := a.accounts.Active()
	if err != nil {
		return err
	}
	doc := export{
		ID:          id.ID,
		Name:        id.Name,
		Email:       id.Email,
		CreatedAt:   id.CreatedAt,
		Projects:    id.Projects,
		TimeEntries: id.TimeEntries,
		ExportDate:  a.now(),
	}
	if doc.Projects == nil {
		doc.Projects = []model.Project{}
	}
	if doc.TimeEntries == nil {
		doc.TimeEntries = []model.TimeEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
