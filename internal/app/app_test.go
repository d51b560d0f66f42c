package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/service"
	"github.com/and161185/focus-vault/internal/stats"
	"github.com/and161185/focus-vault/internal/storage"
	"github.com/and161185/focus-vault/internal/timer"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flakyStore fails every Set while broken is true.
type flakyStore struct {
	storage.Store
	mu     sync.Mutex
	broken bool
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyStore) setBroken(b bool) {
	f.mu.Lock()
	f.broken = b
	f.mu.Unlock()
}

func newApp(t *testing.T, store storage.Store, c *clock) *App {
	t.Helper()
	a := New(store, Options{Now: c.Now, RetryBase: time.Millisecond, RetryAttempts: 1})
	t.Cleanup(a.Close)
	require.NoError(t, a.Bootstrap(context.Background()))
	return a
}

func newClock() *clock { return &clock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)} }

func loginDemo(t *testing.T, a *App) {
	t.Helper()
	_, err := a.Login(context.Background(), service.DemoEmail, service.DemoPassword)
	require.NoError(t, err)
}

func TestApp_TrackSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	store := storage.NewMemory()
	a := newApp(t, store, c)

	_, err := a.Whoami()
	require.ErrorIs(t, err, errs.ErrAuth)
	require.ErrorIs(t, a.Start(ctx, "1", ""), errs.ErrAuth)

	loginDemo(t, a)
	projects, err := a.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	require.NoError(t, a.Start(ctx, "1", "landing page"))
	c.Advance(30 * time.Second)
	require.NoError(t, a.Pause())
	c.Advance(5 * time.Minute)
	require.NoError(t, a.Resume())
	c.Advance(60 * time.Second)

	st := a.Status()
	require.Equal(t, timer.StateRunning, st.State)
	require.Equal(t, 90*time.Second, st.Elapsed)
	require.Equal(t, "Web Development", st.Session.ProjectName)

	e, err := a.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(90000), e.Duration)
	require.Equal(t, timer.StateIdle, a.Status().State)

	d, err := a.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(90000), d.Today.Duration)
	require.Equal(t, 1, d.Today.Sessions)
	require.Equal(t, 1, d.Week.Projects)
	require.Equal(t, int64(90000), d.Total.Duration)

	month, err := a.Window(ctx, stats.Month)
	require.NoError(t, err)
	require.Equal(t, 1, month.Sessions)

	projects, _ = a.Projects(ctx)
	require.Equal(t, int64(90000), projects[0].TotalTime)
	require.Zero(t, projects[1].TotalTime)

	// a second process over the same store sees the login and the entry
	b := newApp(t, store, c)
	who, err := b.Whoami()
	require.NoError(t, err)
	require.Equal(t, service.DemoEmail, who.Email)
	recent, err := b.RecentEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "landing page", recent[0].Task)

	r, err := b.Report(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, r.ProjectCount)
	require.Equal(t, 1, r.Streak)
	require.Equal(t, int64(90000), r.AvgSession)
}

func TestApp_ActiveSessionGuards(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	a := newApp(t, storage.NewMemory(), c)
	loginDemo(t, a)

	require.NoError(t, a.Start(ctx, "1", ""))
	c.Advance(time.Minute)

	require.ErrorIs(t, a.Logout(ctx, LogoutRefuse), errs.ErrInvalidState)
	_, err := a.Whoami()
	require.NoError(t, err)

	require.ErrorIs(t, a.DeleteProject(ctx, "1"), errs.ErrInvalidState)
	_, err = a.Login(ctx, service.DemoEmail, service.DemoPassword)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	require.NoError(t, a.DeleteProject(ctx, "2"))

	require.NoError(t, a.Logout(ctx, LogoutStopSession))
	_, err = a.Whoami()
	require.ErrorIs(t, err, errs.ErrAuth)

	loginDemo(t, a)
	entries, err := a.RecentEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(60000), entries[0].Duration)

	require.NoError(t, a.Start(ctx, "1", ""))
	c.Advance(time.Minute)
	require.NoError(t, a.Logout(ctx, LogoutAbandon))
	require.Equal(t, timer.StateIdle, a.Status().State)

	loginDemo(t, a)
	entries, _ = a.RecentEntries(ctx, 10)
	require.Len(t, entries, 1)
}

func TestApp_StopFailureRollsBackAndRetries(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	store := &flakyStore{Store: storage.NewMemory()}
	a := newApp(t, store, c)
	loginDemo(t, a)

	require.NoError(t, a.Start(ctx, "2", ""))
	c.Advance(2 * time.Minute)

	store.setBroken(true)
	_, err := a.Stop(ctx)
	require.ErrorIs(t, err, errs.ErrStorage)
	require.Equal(t, timer.StatePaused, a.Status().State)

	projects, _ := a.Projects(ctx)
	require.Zero(t, projects[1].TotalTime)
	entries, _ := a.RecentEntries(ctx, 0)
	require.Empty(t, entries)

	c.Advance(10 * time.Minute)
	store.setBroken(false)
	e, err := a.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(120000), e.Duration)

	projects, _ = a.Projects(ctx)
	require.Equal(t, int64(120000), projects[1].TotalTime)
}

func TestApp_RegisterLoginAndLockout(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	a := newApp(t, storage.NewMemory(), c)

	_, err := a.Register(ctx, service.RegisterInput{Name: "Ada", Email: "Ada@Example.com", Password: "secret"})
	require.NoError(t, err)
	_, err = a.Whoami()
	require.ErrorIs(t, err, errs.ErrAuth)

	for i := 0; i < 4; i++ {
		_, err = a.Login(ctx, "ada@example.com", "wrong")
		require.ErrorIs(t, err, errs.ErrAuth)
		require.False(t, errors.Is(err, errs.ErrRateLimited))
	}
	_, err = a.Login(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	_, err = a.Login(ctx, "ada@example.com", "secret")
	require.ErrorIs(t, err, errs.ErrRateLimited)

	c.Advance(16 * time.Minute)
	id, err := a.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "Ada", id.Name)

	projects, err := a.Projects(ctx)
	require.NoError(t, err)
	require.Empty(t, projects)

	p, err := a.CreateProject(ctx, service.ProjectInput{Name: "Reading"})
	require.NoError(t, err)
	require.Equal(t, model.DefaultColor, p.Color)
}

func TestApp_ExportOmitsCredential(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	a := newApp(t, storage.NewMemory(), c)

	var buf bytes.Buffer
	require.ErrorIs(t, a.Export(ctx, &buf), errs.ErrAuth)

	loginDemo(t, a)
	require.NoError(t, a.Start(ctx, "1", ""))
	c.Advance(time.Minute)
	_, err := a.Stop(ctx)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, a.Export(ctx, &buf))
	require.False(t, strings.Contains(buf.String(), "credential"))
	require.False(t, strings.Contains(buf.String(), "salt"))

	var doc struct {
		Email       string            `json:"email"`
		Projects    []model.Project   `json:"projects"`
		TimeEntries []model.TimeEntry `json:"timeEntries"`
		ExportDate  time.Time         `json:"exportDate"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Equal(t, service.DemoEmail, doc.Email)
	require.Len(t, doc.Projects, 2)
	require.Len(t, doc.TimeEntries, 1)
	require.True(t, doc.ExportDate.Equal(c.Now()))
}
