// Command fv is the Focus Vault time tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/focus-vault/internal/app"
	"github.com/and161185/focus-vault/internal/config"
	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/migrate"
	"github.com/and161185/focus-vault/internal/storage"
	"github.com/and161185/focus-vault/internal/storage/postgres"
	fvredis "github.com/and161185/focus-vault/internal/storage/redis"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

const usageText = `fv - Focus Vault time tracker
Usage:
  fv [-store file|memory|postgres|redis] [-data dir] [-dsn url] [-redis addr] [-log-level lvl] <cmd> [args]

Commands:
  version
  register     -name <name> -email <email> -password <password>
  login        -email <email> -password <password>
  logout
  whoami
  projects
  add-project  -name <name> [-desc <text>] [-color <tag>]
  rm-project   -id <project-id>
  entries      [-n <count>]
  stats        [-window today|week|month|total] (default: today, this week, all time)
  report       [-json]
  export       [-o <file>]                      (JSON, default stdout)
  track        -project <project-id> [-task <text>]
  shell                                         (interactive timer session)

Environment: FV_STORE, FV_DATA_DIR, FV_DSN, FV_REDIS_ADDR, FV_REDIS_DB, FV_REDIS_PREFIX,
FV_LOG_LEVEL, FV_TICK, FV_LOGIN_MAX_FAILS, FV_LOGIN_WINDOW, FV_LOGIN_LOCK_FOR, FV_RECENT_LIMIT.
`

// main dispatches a subcommand and maps failures to one line on stderr.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	default:
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errs.Message(err))
	os.Exit(1)
}

// cli carries what every subcommand needs.
type cli struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store
	in    io.Reader
	out   io.Writer
}

// open builds the application and restores the persisted login.
func (c *cli) open(ctx context.Context, onTick func(time.Duration)) (*app.App, error) {
	a := app.New(c.store, app.Options{
		Log:           c.log,
		LoginMaxFails: c.cfg.Login.MaxFails,
		LoginWindow:   c.cfg.Login.Window,
		LoginLockFor:  c.cfg.Login.LockFor,
		Tick:          c.cfg.Tick,
		OnTick:        onTick,
		RecentLimit:   c.cfg.RecentLimit,
	})
	if err := a.Bootstrap(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	// global flags override the environment
	fs := flag.NewFlagSet("fv", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Store, "store", cfg.Store, "storage backend")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory for the file store")
	fs.StringVar(&cfg.Postgres.DSN, "dsn", cfg.Postgres.DSN, "PostgreSQL DSN")
	fs.StringVar(&cfg.Redis.Addr, "redis", cfg.Redis.Addr, "Redis address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.Tick, "tick", cfg.Tick, "live clock refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errUsage
	}
	name, rest := fs.Arg(0), fs.Args()[1:]

	if name == "version" {
		fmt.Fprintf(out, "fv %s (%s)\n", version, buildDate)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cmd = recovered(logger, name, logged(logger, name, cmd))
	return cmd(ctx, &cli{cfg: cfg, log: logger, store: store, in: in, out: out}, rest)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %w", errs.ErrValidation, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.Encoding = "console"
	zc.DisableStacktrace = true
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemory(), func() {}, nil

	case config.StorePostgres:
		if err := migrate.Up(ctx, cfg.Postgres.DSN); err != nil {
			return nil, nil, fmt.Errorf("%w: migrate up: %w", errs.ErrStorage, err)
		}
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: connect postgres: %w", errs.ErrStorage, err)
		}
		log.Debug("using postgres store")
		return postgres.NewKV(db), db.Close, nil

	case config.StoreRedis:
		client, err := fvredis.Connect(ctx, fvredis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errs.ErrStorage, err)
		}
		log.Debug("using redis store", zap.String("addr", cfg.Redis.Addr))
		return fvredis.NewKV(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil

	default:
		s, err := storage.NewFile(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", errs.ErrStorage, err)
		}
		log.Debug("using file store", zap.String("dir", cfg.DataDir))
		return s, func() {}, nil
	}
}
