package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/and161185/focus-vault/internal/app"
	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/format"
	"github.com/and161185/focus-vault/internal/service"
	"github.com/and161185/focus-vault/internal/timer"
)

// lockedWriter serialises the live clock with command output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// readLines feeds lines from r until EOF, then closes the channel.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

// cmdTrack runs one session in the foreground with a live clock.
// An interrupt stops and records the session.
func cmdTrack(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("track")
	project := fs.String("project", "", "project id")
	task := fs.String("task", "", "task description")
	if err := parse(fs, args); err != nil {
		return err
	}

	out := &lockedWriter{w: c.out}
	a, err := c.open(ctx, func(d time.Duration) {
		fmt.Fprintf(out, "\r%s ", format.Clock(d.Milliseconds()))
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(ctx, *project, *task); err != nil {
		return err
	}
	st := a.Status()
	fmt.Fprintf(out, "tracking %s, type p to pause/resume, s to stop\n", st.Session.ProjectName)

	lines := readLines(c.in)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			e, err := a.Stop(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			printRecorded(out, e)
			return nil

		case line, ok := <-lines:
			if !ok {
				// no more input; keep running until interrupted
				lines = nil
				continue
			}
			switch strings.TrimSpace(line) {
			case "p":
				if err := togglePause(a); err != nil {
					fmt.Fprintln(out, errs.Message(err))
					continue
				}
				printStatus(out, a.Status())
			case "s":
				e, err := a.Stop(ctx)
				if err != nil {
					// the session is kept paused; s retries
					fmt.Fprintln(out, errs.Message(err))
					continue
				}
				printRecorded(out, e)
				return nil
			case "":
			default:
				fmt.Fprintln(out, "type p to pause/resume, s to stop")
			}
		}
	}
}

func togglePause(a *app.App) error {
	if a.Status().State == timer.StatePaused {
		return a.Resume()
	}
	return a.Pause()
}

func cmdShell(ctx context.Context, c *cli, _ []string) error {
	a, err := c.open(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return runShell(ctx, a, c.in, c.out)
}

const shellHelp = `commands:
  login <email> <password>     logout [stop|abandon]     whoami
  projects                     add-project <name>        rm-project <id>
  start <project-id> [task]    pause    resume    stop    status
  entries [n]                  stats    report
  help                         quit
`

// runShell reads commands until quit, EOF or cancellation. A session still in
// progress when the shell ends is stopped and recorded.
func runShell(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	fmt.Fprint(out, "focus vault shell, type help for commands\n> ")
	lines := readLines(in)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return finishShell(context.WithoutCancel(ctx), a, out)
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return finishShell(ctx, a, out)
			}
			quit, err := shellLine(ctx, a, out, strings.Fields(line))
			if err != nil {
				fmt.Fprintln(out, errs.Message(err))
			}
			if quit {
				return finishShell(ctx, a, out)
			}
			fmt.Fprint(out, "> ")
		}
	}
}

func finishShell(ctx context.Context, a *app.App, out io.Writer) error {
	if a.Status().State == timer.StateIdle {
		return nil
	}
	e, err := a.Stop(ctx)
	if err != nil {
		return err
	}
	printRecorded(out, e)
	return nil
}

func shellLine(ctx context.Context, a *app.App, out io.Writer, f []string) (quit bool, err error) {
	if len(f) == 0 {
		return false, nil
	}
	cmd, args := f[0], f[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprint(out, shellHelp)

	case "quit", "exit":
		return true, nil

	case "login":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: usage: login <email> <password>", errs.ErrValidation)
		}
		id, err := a.Login(ctx, args[0], args[1])
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "logged in as %s <%s>\n", id.Name, id.Email)

	case "logout":
		policy := app.LogoutRefuse
		if len(args) > 0 {
			switch args[0] {
			case "stop":
				policy = app.LogoutStopSession
			case "abandon":
				policy = app.LogoutAbandon
			default:
				return false, fmt.Errorf("%w: usage: logout [stop|abandon]", errs.ErrValidation)
			}
		}
		if err := a.Logout(ctx, policy); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "logged out")

	case "whoami":
		id, err := a.Whoami()
		if err != nil {
			return false, err
		}
		printIdentity(out, id)

	case "projects":
		projects, err := a.Projects(ctx)
		if err != nil {
			return false, err
		}
		printProjects(out, projects)

	case "add-project":
		p, err := a.CreateProject(ctx, service.ProjectInput{Name: strings.Join(args, " ")})
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "created project %q (%s)\n", p.Name, p.ID)

	case "rm-project":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: no project selected", errs.ErrInvalidSelection)
		}
		if err := a.DeleteProject(ctx, args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "deleted project %s\n", args[0])

	case "start":
		if len(args) == 0 {
			return false, fmt.Errorf("%w: no project selected", errs.ErrInvalidSelection)
		}
		if err := a.Start(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			return false, err
		}
		printStatus(out, a.Status())

	case "pause":
		if err := a.Pause(); err != nil {
			return false, err
		}
		printStatus(out, a.Status())

	case "resume":
		if err := a.Resume(); err != nil {
			return false, err
		}
		printStatus(out, a.Status())

	case "stop":
		e, err := a.Stop(ctx)
		if err != nil {
			return false, err
		}
		printRecorded(out, e)

	case "status":
		printStatus(out, a.Status())

	case "entries":
		n := 0
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return false, fmt.Errorf("%w: entries count %q", errs.ErrValidation, args[0])
			}
			n = v
		}
		entries, err := a.RecentEntries(ctx, n)
		if err != nil {
			return false, err
		}
		printEntries(out, entries)

	case "stats":
		d, err := a.Dashboard(ctx)
		if err != nil {
			return false, err
		}
		printDashboard(out, d)

	case "report":
		r, err := a.Report(ctx)
		if err != nil {
			return false, err
		}
		printReport(out, r)

	default:
		fmt.Fprintf(out, "unknown command %q, type help\n", cmd)
	}
	return false, nil
}
