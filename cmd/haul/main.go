package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/haul/internal/adapter"
	"github.com/mmcdole/haul/internal/adapter/server"
	"github.com/mmcdole/haul/internal/queue"
	"github.com/mmcdole/haul/internal/service"
	"github.com/mmcdole/haul/internal/store"
	"github.com/mmcdole/haul/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

type options struct {
	once   bool
	login  bool
	logout bool
}

func main() {
	var showVersion bool
	var opts options
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&opts.once, "once", false, "print the download queue once and exit")
	flag.BoolVar(&opts.login, "login", false, "log in to the server and save the session")
	flag.BoolVar(&opts.logout, "logout", false, "forget the saved session")
	flag.Parse()

	if showVersion {
		fmt.Printf("haul %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components for one server
type app struct {
	client  *server.Client
	store   *store.SessionStore
	sync    *queue.Sync
	search  *service.SearchService
	session *service.SessionService

	closeOnce sync.Once
	closeErr  error
}

// Close stops polling and closes the store. Safe to call more than once.
func (a *app) Close() error {
	a.closeOnce.Do(func() {
		a.sync.Stop()
		a.closeErr = a.store.Close()
	})
	return a.closeErr
}

// logout forgets the session and removes the local cache
func logout(cfg *adapter.Config, a *app) error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	// The store lives in the cache dir
	if err := a.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return adapter.ClearCache(cfg)
}

func run(opts options) error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
		closer = io.NopCloser(nil)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting haul", "version", Version)

	if !cfg.IsConfigured() {
		if err := runSetupFlow(cfg, logger); err != nil {
			return err
		}
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.logout:
		if err := logout(cfg, a); err != nil {
			return err
		}
		fmt.Println("Logged out. Local cache cleared.")
		return nil
	case opts.login:
		return promptLogin(ctx, a.session, os.Stdin, os.Stdout)
	case opts.once:
		return printQueue(ctx, a.sync, os.Stdout)
	}

	return runTUI(ctx, cfg, a, logger)
}

// newApp wires the client, store and services for the configured server
func newApp(cfg *adapter.Config, logger *slog.Logger) (*app, error) {
	client, err := server.NewClient(cfg.Server.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create server client: %w", err)
	}

	st, err := store.NewSessionStore(cfg.Cache.Dir, cfg.Server.URL)
	if err != nil {
		logger.Warn("session store unavailable, using memory", "error", err)
		st, _ = store.NewSessionStore("", "")
	}

	opener := adapter.NewOpener(cfg.Open.Command, cfg.Open.Args, logger)

	a := &app{
		client: client,
		store:  st,
		sync: queue.NewSync(client, opener, logger, queue.Options{
			PollInterval: cfg.Queue.PollInterval,
			FetchTimeout: cfg.Queue.RequestTimeout,
		}),
		search:  service.NewSearchService(client, client, st, logger),
		session: service.NewSessionService(client, client, st, logger),
	}

	if a.session.Restore() {
		logger.Info("restored saved session")
	}
	return a, nil
}

func runTUI(ctx context.Context, cfg *adapter.Config, a *app, logger *slog.Logger) error {
	observer := tui.NewChannelObserver()
	a.sync.Subscribe(observer)

	model := tui.NewModel(a.sync, a.search, a.session, observer.Updates(), tui.Options{
		ServerURL:   a.client.BaseURL(),
		ShowService: cfg.UI.ShowService,
		ShowIDs:     cfg.UI.ShowIDs,
	})

	a.sync.Start(ctx)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
