// Package timer implements the start/pause/resume/stop session state machine.
package timer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
)

// State is the timer state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultTick is the display refresh interval.
const DefaultTick = time.Second

// ProjectResolver looks up the project a session is started against.
type ProjectResolver interface {
	Get(ctx context.Context, id string) (model.Project, error)
}

// Recorder persists a completed session.
type Recorder interface {
	Record(ctx context.Context, e model.TimeEntry) error
}

// Option configures Timer.
type Option func(*Timer)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTick registers a display callback invoked every interval while running.
// The callback must not call back into the timer's mutating methods.
func WithTick(interval time.Duration, fn func(time.Duration)) Option {
	return func(t *Timer) {
		if interval > 0 {
			t.interval = interval
		}
		t.onTick = fn
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Timer) {
		if log != nil {
			t.log = log
		}
	}
}

// Timer owns at most one session at a time.
type Timer struct {
	projects ProjectResolver
	rec      Recorder
	now      func() time.Time
	log      *zap.Logger

	interval time.Duration
	onTick   func(time.Duration)

	mu      sync.Mutex
	state   State
	session model.Session
	stopCh  chan struct{}
	tickWG  sync.WaitGroup
}

// New constructs an idle timer.
func New(projects ProjectResolver, rec Recorder, opts ...Option) *Timer {
	t := &Timer{
		projects: projects,
		rec:      rec,
		now:      time.Now,
		log:      zap.NewNop(),
		interval: DefaultTick,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins a session against projectID.
func (t *Timer) Start(ctx context.Context, projectID, task string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return fmt.Errorf("%w: a session is already %s", errs.ErrInvalidState, t.state)
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("%w: no project selected", errs.ErrInvalidSelection)
	}
	p, err := t.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}

	t.session = model.Session{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Task:        strings.TrimSpace(task),
		StartTime:   t.now(),
	}
	t.state = StateRunning
	t.startTick()
	t.log.Info("session started", zap.String("project", p.ID), zap.String("task", t.session.Task))
	return nil
}

// Pause freezes the elapsed time.
func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return fmt.Errorf("%w: cannot pause while %s", errs.ErrInvalidState, t.state)
	}
	t.session.Elapsed = t.now().Sub(t.session.StartTime)
	t.state = StatePaused
	t.stopTick()
	t.log.Debug("session paused", zap.Duration("elapsed", t.session.Elapsed))
	return nil
}

// Resume re-anchors the session start so paused time is not counted.
func (t *Timer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePaused {
		return fmt.Errorf("%w: cannot resume while %s", errs.ErrInvalidState, t.state)
	}
	t.session.StartTime = t.now().Add(-t.session.Elapsed)
	t.state = StateRunning
	t.startTick()
	t.log.Debug("session resumed", zap.Duration("elapsed", t.session.Elapsed))
	return nil
}

// Stop ends the session and records it. If recording fails the session is kept,
// paused at the computed duration, so a later Stop records the same duration.
func (t *Timer) Stop(ctx context.Context) (model.TimeEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateIdle {
		return model.TimeEntry{}, fmt.Errorf("%w: no active session", errs.ErrInvalidState)
	}

	// A paused session ended at the pause instant, not now.
	d := t.session.Elapsed
	end := t.session.StartTime.Add(d)
	if t.state == StateRunning {
		end = t.now()
		d = end.Sub(t.session.StartTime)
		t.stopTick()
	}

	uid, err := uuid.NewV4()
	if err != nil {
		t.freeze(d)
		return model.TimeEntry{}, err
	}
	e := model.NewTimeEntry(uid.String(), t.session, end, d)
	if err := t.rec.Record(ctx, e); err != nil {
		t.freeze(d)
		t.log.Warn("record session failed, session kept", zap.String("project", e.ProjectID), zap.Error(err))
		return model.TimeEntry{}, err
	}

	t.session = model.Session{}
	t.state = StateIdle
	t.log.Info("session stopped", zap.String("project", e.ProjectID), zap.Int64("duration_ms", e.Duration))
	return e, nil
}

// Abandon discards the session without recording it.
func (t *Timer) Abandon() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateRunning {
		t.stopTick()
	}
	t.session = model.Session{}
	t.state = StateIdle
}

func (t *Timer) freeze(d time.Duration) {
	t.session.Elapsed = d
	t.state = StatePaused
}

// Elapsed returns the running time of the current session.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *Timer) elapsedLocked() time.Duration {
	switch t.state {
	case StateRunning:
		return t.now().Sub(t.session.StartTime)
	case StatePaused:
		return t.session.Elapsed
	default:
		return 0
	}
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns the state and a copy of the session, read under one lock.
// The session is zero when idle.
func (t *Timer) Snapshot() (State, model.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateIdle {
		return StateIdle, model.Session{}
	}
	s := t.session
	s.Elapsed = t.elapsedLocked()
	return t.state, s
}

// Session returns a copy of the current session, if any.
func (t *Timer) Session() (model.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateIdle {
		return model.Session{}, false
	}
	s := t.session
	s.Elapsed = t.elapsedLocked()
	return s, true
}

// Close stops the display tick and waits for it to exit.
func (t *Timer) Close() {
	t.mu.Lock()
	t.stopTick()
	t.mu.Unlock()
	t.tickWG.Wait()
}

// startTick must be called with mu held.
func (t *Timer) startTick() {
	if t.onTick == nil || t.stopCh != nil {
		return
	}
	stop := make(chan struct{})
	t.stopCh = stop
	t.tickWG.Add(1)
	go t.tickLoop(stop)
}

// stopTick must be called with mu held.
func (t *Timer) stopTick() {
	if t.stopCh == nil {
		return
	}
	close(t.stopCh)
	t.stopCh = nil
}

func (t *Timer) tickLoop(stop <-chan struct{}) {
	defer t.tickWG.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			running := t.state == StateRunning
			elapsed := t.elapsedLocked()
			t.mu.Unlock()
			if running {
				t.onTick(elapsed)
			}
		}
	}
}
