// ABOUTME: Root command and shared wiring of config, logger, backend client, and journal
// ABOUTME: Each subcommand opens an app, uses the pieces it needs, and closes it

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/backend"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/notify"
	"github.com/2389/coven-chat/internal/store"
)

type rootOptions struct {
	configPath string
	server     string
	noJournal  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var contextID string

	root := &cobra.Command{
		Use:   "coven-chat",
		Short: "Chat with a conversational agent backend from the terminal",
		Long: `coven-chat is a terminal client for an agent backend exposing the
/chat, /reset, /load-context and /get-contexts endpoints.

Without a subcommand it starts the interactive chat screen.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, contextID)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/coven/chat.yaml)")
	root.PersistentFlags().StringVar(&opts.server, "server", "", "Backend base URL, overrides backend.base_url")
	root.PersistentFlags().BoolVar(&opts.noJournal, "no-journal", false, "Do not record the conversation locally")
	root.Flags().StringVar(&contextID, "context", "", "Load this context on start")

	root.AddCommand(
		newChatCmd(opts),
		newSendCmd(opts),
		newContextsCmd(opts),
		newLoadCmd(opts),
		newResetCmd(opts),
		newHistoryCmd(opts),
		newExportCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

// app holds the collaborators shared by the subcommands.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	token      string
	client     *backend.Client
	channel    *events.Channel
	center     *notify.Center
	journal    *store.SQLiteStore
	outcome    *outcomeSink

	closers []func() error
}

type openMode int

const (
	oneShot openMode = iota
	interactive
	journalRequired
)

func (o *rootOptions) open(mode openMode) (*app, error) {
	cfg, path, err := config.Discover(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.server != "" {
		cfg.Backend.BaseURL = o.server
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --server: %w", err)
		}
	}

	out, closeLog, err := openLogOutput(cfg.Logging, mode == interactive)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Logging, out)
	slog.SetDefault(logger)

	a := &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		channel:    events.NewChannel(logger),
		outcome:    &outcomeSink{},
		closers:    []func() error{closeLog},
	}

	token := cfg.Backend.Token
	if token == "" {
		if token, err = auth.LoadToken(); err != nil {
			logger.Warn("reading token file", "error", err)
		}
	}
	a.token = token
	if token != "" {
		if _, err := auth.Inspect(token); errors.Is(err, auth.ErrExpiredToken) {
			logger.Warn("bearer token has expired", "path", tokenSource(cfg))
		}
	}

	a.client = backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithResponseField(cfg.Backend.ResponseField),
		backend.WithLoadContextMode(backend.LoadContextMode(cfg.Backend.LoadContextMode)),
		backend.WithToken(token),
		backend.WithLogger(logger),
	)

	a.center = notify.NewCenter(cfg.Notifications.DedupeWindow, logger)
	a.center.AddSink(notify.LogSink{Logger: logger})
	a.center.AddSink(a.outcome)

	wantJournal := cfg.Journal.Enabled && !o.noJournal
	if mode == journalRequired && !wantJournal {
		a.Close()
		return nil, errors.New("the journal is disabled")
	}
	if wantJournal {
		journal, err := store.NewSQLiteStore(cfg.Journal.Path)
		switch {
		case err == nil:
			a.journal = journal
			a.closers = append(a.closers, journal.Close)
		case mode == journalRequired:
			a.Close()
			return nil, fmt.Errorf("opening journal: %w", err)
		default:
			logger.Warn("journal unavailable, continuing without it", "path", cfg.Journal.Path, "error", err)
		}
	}

	logger.Debug("coven-chat ready", "config", path, "backend", a.client.BaseURL(), "journal", a.journal != nil)
	return a, nil
}

func tokenSource(cfg *config.Config) string {
	if cfg.Backend.Token != "" {
		return "config"
	}
	path, err := auth.TokenPath()
	if err != nil {
		return auth.EnvToken
	}
	return path
}

// controller builds a conversation controller over the app's backend.
func (a *app) controller() *conversation.Controller {
	opts := []conversation.Option{
		conversation.WithLogger(a.logger),
		conversation.WithNotifier(a.center),
	}
	if a.journal != nil {
		opts = append(opts, conversation.WithJournal(a.journal))
	}
	return conversation.New(a.client, a.channel, opts...)
}

// Close releases the app's resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource", "error", err)
		}
	}
	a.closers = nil
}

// outcomeSink remembers the latest notification so one-shot commands can
// report how an operation ended.
type outcomeSink struct {
	mu   sync.Mutex
	last *notify.Notification
}

func (s *outcomeSink) Notify(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &n
}

func (s *outcomeSink) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
}

// result returns the latest notification, or an error when it reported a
// failure.
func (s *outcomeSink) result() (*notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, nil
	}
	if s.last.Severity == notify.SeverityError {
		if s.last.Description == "" {
			return s.last, errors.New(s.last.Title)
		}
		return s.last, fmt.Errorf("%s: %s", s.last.Title, s.last.Description)
	}
	return s.last, nil
}
