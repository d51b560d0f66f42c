package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/and161185/focus-vault/internal/app"
	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/service"
	"github.com/and161185/focus-vault/internal/stats"
)

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"register":    cmdRegister,
	"login":       cmdLogin,
	"logout":      cmdLogout,
	"whoami":      cmdWhoami,
	"projects":    cmdProjects,
	"add-project": cmdAddProject,
	"rm-project":  cmdRmProject,
	"entries":     cmdEntries,
	"stats":       cmdStats,
	"report":      cmdReport,
	"export":      cmdExport,
	"track":       cmdTrack,
	"shell":       cmdShell,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrValidation, fs.Name(), err)
	}
	return nil
}

func cmdRegister(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Register(ctx, service.RegisterInput{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s, now run: fv login -email %s -password ...\n", id.Email, id.Email)
	return nil
}

func cmdLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logged in as %s <%s>\n", id.Name, id.Email)
	return nil
}

// cmdLogout only runs with an idle timer: sessions live in track and shell.
func cmdLogout(ctx context.Context, c *cli, args []string) error {
	if err := parse(newFlagSet("logout"), args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Logout(ctx, app.LogoutRefuse); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func cmdWhoami(ctx context.Context, c *cli, _ []string) error {
	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Whoami()
	if err != nil {
		return err
	}
	printIdentity(c.out, id)
	return nil
}

func cmdProjects(ctx context.Context, c *cli, _ []string) error {
	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.Projects(ctx)
	if err != nil {
		return err
	}
	printProjects(c.out, projects)
	return nil
}

func cmdAddProject(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("add-project")
	name := fs.String("name", "", "project name")
	desc := fs.String("desc", "", "description")
	color := fs.String("color", "", "color tag (default gold)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *name == "" && fs.NArg() > 0 {
		*name = strings.Join(fs.Args(), " ")
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.CreateProject(ctx, service.ProjectInput{Name: *name, Description: *desc, Color: *color})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created project %q (%s)\n", p.Name, p.ID)
	return nil
}

func cmdRmProject(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("rm-project")
	id := fs.String("id", "", "project id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if strings.TrimSpace(*id) == "" {
		return fmt.Errorf("%w: no project selected", errs.ErrInvalidSelection)
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.DeleteProject(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted project %s\n", *id)
	return nil
}

func cmdEntries(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("entries")
	n := fs.Int("n", 0, "number of entries (default from FV_RECENT_LIMIT)")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.RecentEntries(ctx, *n)
	if err != nil {
		return err
	}
	printEntries(c.out, entries)
	return nil
}

func cmdStats(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("stats")
	window := fs.String("window", "", "only one window: today, week, month or total")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if *window != "" {
		w, err := stats.ParseWindow(*window)
		if err != nil {
			return err
		}
		t, err := a.Window(ctx, w)
		if err != nil {
			return err
		}
		tw := table(c.out)
		printTotals(tw, w.String(), t)
		return tw.Flush()
	}

	d, err := a.Dashboard(ctx)
	if err != nil {
		return err
	}
	printDashboard(c.out, d)
	return nil
}

func cmdReport(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("report")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.Report(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		printJSON(c.out, r)
		return nil
	}
	printReport(c.out, r)
	return nil
}

func cmdExport(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("export")
	path := fs.String("o", "-", "output file ('-'=stdout)")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if *path == "-" {
		return a.Export(ctx, c.out)
	}
	f, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	if err := a.Export(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStorage, err)
	}
	fmt.Fprintf(c.out, "exported to %s\n", *path)
	return nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
