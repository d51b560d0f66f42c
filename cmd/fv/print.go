package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/and161185/focus-vault/internal/app"
	"github.com/and161185/focus-vault/internal/format"
	"github.com/and161185/focus-vault/internal/model"
	"github.com/and161185/focus-vault/internal/stats"
	"github.com/and161185/focus-vault/internal/timer"
)

func table(w io.Writer) *tabwriter.Writer { return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) }

func printIdentity(w io.Writer, id *model.Identity) {
	fmt.Fprintf(w, "%s <%s>\n", id.Name, id.Email)
	fmt.Fprintf(w, "member since %s, %d projects, %d entries\n",
		id.CreatedAt.Format(model.DateLayout), len(id.Projects), len(id.TimeEntries))
}

func printProjects(w io.Writer, projects []model.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "no projects yet, create one with: fv add-project -name <name>")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tTOTAL")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Color, format.Clock(p.TotalTime))
	}
	_ = tw.Flush()
}

func printEntries(w io.Writer, entries []model.TimeEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no sessions recorded yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "DATE\tSTART\tPROJECT\tTASK\tDURATION")
	for _, e := range entries {
		task := e.Task
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Date, e.StartTime.Format("15:04"), e.ProjectName, task, format.Compact(e.Duration))
	}
	_ = tw.Flush()
}

func printTotals(tw io.Writer, label string, t stats.Totals) {
	fmt.Fprintf(tw, "%s\t%s\t%d sessions\t%d projects\n", label, format.Compact(t.Duration), t.Sessions, t.Projects)
}

func printDashboard(w io.Writer, d app.Dashboard) {
	tw := table(w)
	printTotals(tw, "Today", d.Today)
	printTotals(tw, "This week", d.Week)
	printTotals(tw, "All time", d.Total)
	_ = tw.Flush()
}

func printReport(w io.Writer, r stats.Report) {
	tw := table(w)
	printTotals(tw, "Today", r.Today)
	printTotals(tw, "This week", r.Week)
	printTotals(tw, "This month", r.Month)
	printTotals(tw, "All time", r.Total)
	_ = tw.Flush()
	fmt.Fprintf(w, "projects: %d  avg session: %s  productivity: %d%%  streak: %d days\n",
		r.ProjectCount, format.Compact(r.AvgSession), r.Score, r.Streak)
}

func printStatus(w io.Writer, s app.Status) {
	if s.State == timer.StateIdle {
		fmt.Fprintln(w, "idle")
		return
	}
	task := ""
	if s.Session.Task != "" {
		task = " / " + s.Session.Task
	}
	fmt.Fprintf(w, "%s  %s  %s%s\n", s.State, format.Clock(s.Elapsed.Milliseconds()), s.Session.ProjectName, task)
}

func printRecorded(w io.Writer, e model.TimeEntry) {
	fmt.Fprintf(w, "recorded %s on %s\n", format.Compact(e.Duration), e.ProjectName)
}
