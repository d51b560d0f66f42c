// Package stats aggregates the entry log into rolling-window totals and reports.
// Every function recomputes from the entries it is given and never mutates them.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/model"
)

// Window selects the time range of an aggregation.
type Window int

const (
	Today Window = iota
	Week
	Month
	Total
)

var windowNames = [...]string{Today: "today", Week: "week", Month: "month", Total: "total"}

func (w Window) String() string {
	if w < 0 || int(w) >= len(windowNames) {
		return fmt.Sprintf("Window(%d)", int(w))
	}
	return windowNames[w]
}

// ParseWindow maps a window name to a Window.
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range windowNames {
		if s == name {
			return Window(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown window %q", errs.ErrValidation, s)
}

// DefaultRecentLimit is the number of entries RecentEntries returns for limit <= 0.
const DefaultRecentLimit = 10

// DailyTarget is the amount of tracked time that scores 100.
const DailyTarget = 8 * time.Hour

// Range returns the half-open interval [start, end) of w around now, in now's location.
// ok is false for Total, which is unbounded.
func Range(w Window, now time.Time) (start, end time.Time, ok bool) {
	day := startOfDay(now)
	switch w {
	case Today:
		return day, day.AddDate(0, 0, 1), true
	case Week:
		// weeks start on Sunday
		start = day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7), true
	case Month:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Totals is the aggregate of one window.
type Totals struct {
	Duration int64 `json:"duration"` // ms
	Sessions int   `json:"sessions"`
	Projects int   `json:"projects"` // distinct projects touched
}

// WindowStats sums the entries whose start time falls in w.
func WindowStats(entries []model.TimeEntry, w Window, now time.Time) Totals {
	start, end, bounded := Range(w, now)
	var t Totals
	seen := make(map[string]struct{})
	for _, e := range entries {
		if bounded && (e.StartTime.Before(start) || !e.StartTime.Before(end)) {
			continue
		}
		t.Duration += e.Duration
		t.Sessions++
		seen[e.ProjectID] = struct{}{}
	}
	t.Projects = len(seen)
	return t
}

// RecentEntries returns up to limit entries, newest start time first.
func RecentEntries(entries []model.TimeEntry, limit int) []model.TimeEntry {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	sorted := sortedDesc(entries)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func sortedDesc(entries []model.TimeEntry) []model.TimeEntry {
	out := append([]model.TimeEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out
}

// Report is the full statistics view.
type Report struct {
	Today Totals `json:"today"`
	Week  Totals `json:"week"`
	Month Totals `json:"month"`
	Total Totals `json:"total"`

	ProjectCount int   `json:"projectCount"`
	AvgSession   int64 `json:"avgSession"` // ms
	Score        int   `json:"score"`      // 0..100
	Streak       int   `json:"streak"`     // days
}

// Summarize builds the report for entries as of now.
func Summarize(entries []model.TimeEntry, projectCount int, now time.Time) Report {
	r := Report{
		Today:        WindowStats(entries, Today, now),
		Week:         WindowStats(entries, Week, now),
		Month:        WindowStats(entries, Month, now),
		Total:        WindowStats(entries, Total, now),
		ProjectCount: projectCount,
		Streak:       Streak(entries, now),
	}
	if r.Total.Sessions > 0 {
		r.AvgSession = r.Total.Duration / int64(r.Total.Sessions)
	}
	r.Score = Score(r.Today.Duration)
	return r
}

// Score rates today's tracked time against DailyTarget, capped at 100.
func Score(todayMs int64) int {
	if todayMs <= 0 {
		return 0
	}
	s := int(math.Round(float64(todayMs) / float64(DailyTarget.Milliseconds()) * 100))
	return min(s, 100)
}

// Streak counts consecutive calendar days, ending today, with at least one entry.
func Streak(entries []model.TimeEntry, now time.Time) int {
	days := make(map[time.Time]struct{}, len(entries))
	for _, e := range entries {
		days[startOfDay(e.StartTime.In(now.Location()))] = struct{}{}
	}
	streak := 0
	for day := startOfDay(now); ; day = day.AddDate(0, 0, -1) {
		if _, ok := days[day]; !ok {
			return streak
		}
		streak++
	}
}
