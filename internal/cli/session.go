package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/roach88/agenda/internal/config"
	"github.com/roach88/agenda/internal/docstore"
	"github.com/roach88/agenda/internal/docstore/firestore"
	"github.com/roach88/agenda/internal/docstore/fsstore"
	"github.com/roach88/agenda/internal/docstore/memstore"
	"github.com/roach88/agenda/internal/docstore/sqlite"
	"github.com/roach88/agenda/internal/engine"
)

// readyTimeout bounds how long a command waits for the first snapshots.
const readyTimeout = 30 * time.Second

// session is a running coordinator bound to the configured store.
type session struct {
	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	money  money
	clock  engine.Clock
	coord  *engine.Coordinator

	store     docstore.Store
	ownsStore bool
	cancel    context.CancelFunc
	done      chan error
	closeOnce sync.Once
	closeErr  error
}

// loadConfig reads the config file named by opts (or the default path).
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.Config
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.Actor != "" {
		cfg.Actor = opts.Actor
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openStore builds the backend named by the config.
func openStore(ctx context.Context, sc config.StoreConfig, logger *slog.Logger) (docstore.Store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(sc.Path)
	case config.DriverDir:
		return fsstore.Open(sc.Path, logger)
	case config.DriverFirestore:
		return firestore.Open(ctx, sc.ProjectID, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// openSession loads config, opens the store and starts a coordinator, waiting
// until its first snapshots are in. Callers must Close it.
func openSession(cmd *cobra.Command, opts *RootOptions, extra ...engine.Option) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	m, err := newMoney(cfg.Currency, cfg.Locale)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	paths, err := engine.PathsFor(cfg.Actor)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid actor", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := &session{
		cfg:    cfg,
		loc:    loc,
		logger: logger,
		money:  m,
		clock:  opts.Clock,
		store:  opts.Store,
		done:   make(chan error, 1),
	}
	if s.clock == nil {
		s.clock = engine.SystemClock{}
	}
	if s.store == nil {
		logger.Debug("opening store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
		st, err := openStore(ctx, cfg.Store, logger)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "failed to open store", err)
		}
		s.store = st
		s.ownsStore = true
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithLocation(loc),
		engine.WithNotifier(engine.LogNotifier{Logger: logger}),
	}
	engineOpts = append(engineOpts, engine.WithClock(s.clock))
	if opts.IDs != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDs))
	}
	s.coord = engine.New(s.store, paths, append(engineOpts, extra...)...)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() { s.done <- s.coord.Run(runCtx) }()

	select {
	case <-s.coord.Ready():
	case <-time.After(readyTimeout):
		_ = s.Close()
		return nil, NewExitError(ExitFailure, "timed out waiting for the store")
	}
	return s, nil
}

// Close stops the coordinator, waiting for pending writes, and closes the
// store if the session opened it. Safe to call more than once.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		if !s.ownsStore {
			return
		}
		if err := s.store.Close(); err != nil {
			s.logger.Error("error closing store", "error", err)
			s.closeErr = err
		}
	})
	return s.closeErr
}

// today is the current date in the configured zone.
func (s *session) today() civil.Date {
	return civil.DateOf(s.clock.Now().In(s.loc))
}
