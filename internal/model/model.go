// Package model defines domain entities used by services and repositories.
package model

import (
	"time"
)

// DateLayout is the calendar-day label stored on every TimeEntry.
const DateLayout = "Mon Jan 02 2006"

// DefaultColor is assigned to projects created without a color tag.
const DefaultColor = "gold"

// Credential is a salted Argon2id password hash. The plaintext is never stored.
type Credential struct {
	Salt []byte `json:"salt"`
	Hash []byte `json:"hash"`
}

// Identity is an account together with everything it owns.
type Identity struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"` // unique, used as the storage key
	Credential  Credential  `json:"credential"`
	Projects    []Project   `json:"projects"`
	TimeEntries []TimeEntry `json:"timeEntries"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Project is a named bucket time entries are attributed to.
type Project struct {
	ID          string    `json:"id"` // unique within the identity
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	TotalTime   int64     `json:"totalTime"` // ms; cache of the sum of referencing entry durations
}

// TimeEntry is an immutable record of one completed session.
type TimeEntry struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"` // snapshot at creation, not updated on rename
	Task        string    `json:"task,omitempty"`
	StartTime   time.Time `json:"startTime"` // effective start: EndTime - Duration
	EndTime     time.Time `json:"endTime"`
	Duration    int64     `json:"duration"` // ms, >= 0
	Date        string    `json:"date"`     // DateLayout of StartTime
	CreatedAt   time.Time `json:"createdAt"`
}

// Session is an in-progress timer run. It is never persisted.
type Session struct {
	ProjectID   string
	ProjectName string
	Task        string
	StartTime   time.Time     // anchor; re-anchored on resume so that now-StartTime is running time
	Elapsed     time.Duration // frozen running time while paused
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Credential = Credential{
		Salt: append([]byte(nil), i.Credential.Salt...),
		Hash: append([]byte(nil), i.Credential.Hash...),
	}
	c.Projects = append([]Project(nil), i.Projects...)
	c.TimeEntries = append([]TimeEntry(nil), i.TimeEntries...)
	return &c
}

// Project returns the project with the given id.
func (i *Identity) Project(id string) (*Project, bool) {
	for k := range i.Projects {
		if i.Projects[k].ID == id {
			return &i.Projects[k], true
		}
	}
	return nil, false
}

// RemoveProject deletes the project and every entry referencing it.
// It reports whether the project existed.
func (i *Identity) RemoveProject(id string) bool {
	if _, ok := i.Project(id); !ok {
		return false
	}
	projects := make([]Project, 0, len(i.Projects))
	for _, p := range i.Projects {
		if p.ID != id {
			projects = append(projects, p)
		}
	}
	entries := make([]TimeEntry, 0, len(i.TimeEntries))
	for _, e := range i.TimeEntries {
		if e.ProjectID != id {
			entries = append(entries, e)
		}
	}
	i.Projects, i.TimeEntries = projects, entries
	return true
}

// Recount rebuilds every project's TotalTime from the entry log.
func (i *Identity) Recount() {
	sums := make(map[string]int64, len(i.Projects))
	for _, e := range i.TimeEntries {
		sums[e.ProjectID] += e.Duration
	}
	for k := range i.Projects {
		i.Projects[k].TotalTime = sums[i.Projects[k].ID]
	}
}

// NewTimeEntry builds the entry for a session that ended at end after running for d.
func NewTimeEntry(id string, s Session, end time.Time, d time.Duration) TimeEntry {
	if d < 0 {
		d = 0
	}
	start := end.Add(-d)
	return TimeEntry{
		ID:          id,
		ProjectID:   s.ProjectID,
		ProjectName: s.ProjectName,
		Task:        s.Task,
		StartTime:   start,
		EndTime:     end,
		Duration:    d.Milliseconds(),
		Date:        start.Format(DateLayout),
		CreatedAt:   end,
	}
}
