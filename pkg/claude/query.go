package claude

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/cli"
	mcpadapter "github.com/conneroisu/claude-control/pkg/claude/adapters/mcp"
	"github.com/conneroisu/claude-control/pkg/claude/hooking"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/claude/querying"
	"github.com/conneroisu/claude-control/pkg/claude/session"
	"github.com/conneroisu/claude-control/pkg/claude/settings"
	"github.com/conneroisu/claude-control/pkg/claude/tools"
)

// LaunchFunc starts the worker for cmd. Tests replace it with an in-memory
// channel.
type LaunchFunc func(ctx context.Context, cmd cli.Command, cfg cli.Config) (ports.Channel, error)

// QueryConfig holds the host-side collaborators of a session.
type QueryConfig struct {
	// Hooks run around tool use and on worker-triggered events.
	Hooks map[HookEvent][]HookMatcher

	// CanUseTool decides calls that no mode or rule settles.
	CanUseTool permissions.CanUseToolFunc

	// Tools classifies and executes tools. The builtin registry is used
	// when nil.
	Tools *tools.Registry

	// HostMCPTools connects to every stdio, SSE and HTTP server in
	// AgentOptions.MCPServers and runs their tools on the host.
	HostMCPTools bool

	// Launch starts the worker. Defaults to spawning the CLI.
	Launch LaunchFunc
}

// Query sends prompt to a new worker and streams the reply. The worker's
// input is closed after the first result. The error channel carries
// recoverable errors followed by the cause of a failed or cancelled query.
func Query(
	ctx context.Context,
	prompt string,
	opts *options.AgentOptions,
	config *QueryConfig,
) (<-chan messages.Message, <-chan error) {
	s, err := open(ctx, opts, config, true)
	if err != nil {
		return createErrorChannels(err)
	}
	go s.releaseWhenDone()

	if err := s.ctrl.Send(ctx, prompt); err != nil {
		_ = s.ctrl.Close(context.WithoutCancel(ctx))

		return createErrorChannels(err)
	}

	return s.ctrl.Messages(), s.ctrl.Errors()
}

// createErrorChannels returns closed channels carrying only err.
func createErrorChannels(err error) (<-chan messages.Message, <-chan error) {
	msgCh := make(chan messages.Message)
	errCh := make(chan error, 1)
	errCh <- err
	close(msgCh)
	close(errCh)

	return msgCh, errCh
}

// liveSession is everything one controller depends on that must be
// released with it.
type liveSession struct {
	ctrl    *querying.Controller
	loader  *settings.Loader
	watcher *settings.Watcher
	remotes []*mcpsdk.ClientSession
	logger  *zap.Logger
}

// open wires the collaborators, starts the worker and completes the
// initialize handshake.
func open(
	ctx context.Context,
	opts *options.AgentOptions,
	config *QueryConfig,
	oneShot bool,
) (*liveSession, error) {
	if opts == nil {
		opts = &options.AgentOptions{}
	}
	if config == nil {
		config = &QueryConfig{}
	}
	logger := opts.GetLogger()
	_, hookTimeout, _, grace := opts.Timeouts()

	s := &liveSession{loader: settings.NewLoader(opts), logger: logger}
	snap, err := s.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	registry := config.Tools
	if registry == nil {
		registry = tools.NewBuiltinRegistry()
	}
	hooks, err := hooking.NewDispatcher(config.Hooks, hooking.Config{Logger: logger, Timeout: hookTimeout})
	if err != nil {
		return nil, err
	}
	permCfg := &permissions.PermissionsConfig{
		CanUseTool: config.CanUseTool,
		Settings:   snap,
		Tools:      registry,
		Cwd:        opts.WorkDir(),
		Logger:     logger,
	}
	if opts.PermissionMode != nil {
		permCfg.Mode = *opts.PermissionMode
	}
	arbiter := permissions.NewArbiter(permCfg)

	store := opts.SessionStore
	if store == nil {
		store = session.NewMemoryStore()
	}
	sessionID, err := resolveSessionID(ctx, opts, store)
	if err != nil {
		return nil, err
	}

	if config.HostMCPTools {
		if err := s.connectMCP(ctx, opts.MCPServers, registry); err != nil {
			s.release()

			return nil, err
		}
	}
	if opts.WatchSettings {
		w, err := settings.NewWatcher(s.loader.Paths(), logger)
		if err != nil {
			s.release()

			return nil, fmt.Errorf("watch settings: %w", err)
		}
		s.watcher = w
	}

	cmd, err := cli.NewCommand(opts, sessionID)
	if err != nil {
		s.release()

		return nil, err
	}
	launch := config.Launch
	if launch == nil {
		launch = launchProcess
	}
	chCfg := cli.Config{Logger: logger, TerminateGrace: grace, StderrCallback: opts.StderrCallback}
	if opts.MaxBufferSize != nil {
		chCfg.MaxBufferSize = *opts.MaxBufferSize
	}
	ch, err := launch(ctx, cmd, chCfg)
	if err != nil {
		s.release()

		return nil, err
	}

	s.ctrl = querying.New(ch, querying.Config{
		SessionID: sessionID,
		Options:   opts,
		Hooks:     hooks,
		Arbiter:   arbiter,
		Tools:     registry,
		MCP:       mcpadapter.FromOptions(logger, opts.MCPServers),
		Store:     store,
		OneShot:   oneShot,
	})
	if err := s.ctrl.Start(ctx); err != nil {
		s.release()

		return nil, err
	}

	return s, nil
}

func launchProcess(ctx context.Context, cmd cli.Command, cfg cli.Config) (ports.Channel, error) {
	ch, err := cli.Start(ctx, cmd, cfg)
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// resolveSessionID picks the session the transcript is recorded under.
// Resuming reuses the resumed ID; forking copies the stored transcript
// into a new session.
func resolveSessionID(ctx context.Context, opts *options.AgentOptions, store ports.SessionStore) (string, error) {
	switch {
	case opts.Resume != nil && opts.ForkSession:
		id, err := store.Fork(ctx, *opts.Resume, opts.ForkAt)
		if errors.Is(err, ErrSessionNotFound) {
			return uuid.NewString(), nil
		}
		if err != nil {
			return "", fmt.Errorf("fork session %s: %w", *opts.Resume, err)
		}

		return id, nil
	case opts.Resume != nil:
		return *opts.Resume, nil
	case opts.SessionID != nil:
		return *opts.SessionID, nil
	default:
		return uuid.NewString(), nil
	}
}

func (s *liveSession) releaseWhenDone() {
	<-s.ctrl.Done()
	s.release()
}

// release closes the watcher and remote MCP sessions.
func (s *liveSession) release() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Debug("failed to close settings watcher", zap.Error(err))
		}
	}
	for _, remote := range s.remotes {
		if err := remote.Close(); err != nil {
			s.logger.Debug("failed to close mcp session", zap.Error(err))
		}
	}
}
