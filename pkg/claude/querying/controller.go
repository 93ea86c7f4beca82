// Package querying drives one session with the worker. A Controller runs
// the initialize handshake, reads the worker's output in order, arbitrates
// tool requests through hooks and permissions, and records the transcript.
package querying

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/jsonrpc"
	mcpadapter "github.com/conneroisu/claude-control/pkg/claude/adapters/mcp"
	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/hooking"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/claude/session"
	"github.com/conneroisu/claude-control/pkg/claude/tools"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// errBuffer is the capacity of the Errors channel. When it is full the
// oldest error is dropped.
const errBuffer = 32

// Config groups a Controller's collaborators. Only the channel is
// required; everything else has a default.
type Config struct {
	// SessionID names the session. A UUID is generated when empty.
	SessionID string
	Options   *options.AgentOptions
	Hooks     *hooking.Dispatcher
	Arbiter   *permissions.Arbiter
	Tools     *tools.Registry
	MCP       *mcpadapter.Bridge
	Store     ports.SessionStore
	Codec     ports.Codec
	// OneShot closes the worker's input after the first result.
	OneShot bool
}

// Controller owns one session. Worker output is consumed by a single loop,
// so messages reach the caller in emission order and tool requests are
// handled one at a time.
type Controller struct {
	ch        ports.Channel
	codec     ports.Codec
	router    *jsonrpc.Router
	hooks     *hooking.Dispatcher
	arbiter   *permissions.Arbiter
	tools     *tools.Registry
	mcp       *mcpadapter.Bridge
	store     ports.SessionStore
	opts      *options.AgentOptions
	logger    *zap.Logger
	sessionID string
	oneShot   bool
	init      time.Duration
	grace     time.Duration

	state    atomic.Int32
	finished atomic.Bool
	started  atomic.Bool

	inbox      *inbox
	out        chan messages.Message
	errs       chan error
	quit       chan struct{}
	done       chan struct{}
	readerDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// interrupted is cancelled by Interrupt. Inbound request handlers run
	// on a context that ends with it.
	interrupted     context.Context
	cancelInterrupt context.CancelFunc
	interrupt       <-chan struct{}

	finishOnce sync.Once

	mu       sync.Mutex
	cause    error
	initResp map[string]any

	// Set by the can_use_tool handler and consumed after its response is
	// written. Only the loop goroutine touches them.
	followUp  *messages.UserMessage
	denial    *messages.PermissionDenial
	stopCause error
}

// New creates a controller over an already started channel.
func New(ch ports.Channel, cfg Config) *Controller {
	opts := cfg.Options
	control, _, initTimeout, grace := opts.Timeouts()
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := opts.GetLogger().Named("query").With(zap.String("session_id", sessionID))

	c := &Controller{
		ch:         ch,
		codec:      cfg.Codec,
		hooks:      cfg.Hooks,
		arbiter:    cfg.Arbiter,
		tools:      cfg.Tools,
		mcp:        cfg.MCP,
		store:      cfg.Store,
		opts:       opts,
		logger:     logger,
		sessionID:  sessionID,
		oneShot:    cfg.OneShot,
		init:       initTimeout,
		grace:      grace,
		inbox:      newInbox(),
		out:        make(chan messages.Message),
		errs:       make(chan error, errBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	c.interrupted, c.cancelInterrupt = context.WithCancel(context.Background())
	c.interrupt = c.interrupted.Done()
	if c.codec == nil {
		c.codec = parse.NewCodec()
	}
	if c.store == nil {
		c.store = session.NewMemoryStore()
	}
	if c.tools == nil {
		c.tools = tools.NewBuiltinRegistry()
	}
	if c.arbiter == nil {
		c.arbiter = permissions.NewArbiter(&permissions.PermissionsConfig{
			Mode:   opts.Mode(),
			Tools:  c.tools,
			Cwd:    opts.WorkDir(),
			Logger: opts.GetLogger(),
		})
	}
	if c.mcp == nil {
		c.mcp = mcpadapter.NewBridge(opts.GetLogger())
	}

	c.router = jsonrpc.NewRouter(ch, jsonrpc.Config{
		Logger:  opts.GetLogger(),
		Timeout: control,
		Codec:   c.codec,
	})
	c.router.Handle(messages.SubtypeCanUseTool, c.interruptible(c.handleCanUseTool))
	c.router.Handle(messages.SubtypeHookCallback, c.interruptible(c.handleHookCallback))
	c.router.Handle(messages.SubtypeMCPMessage, c.handleMCPMessage)

	return c
}

// Start opens the session in the store, starts reading the worker and
// completes the initialize handshake. A failed handshake moves the
// controller to Failed.
func (c *Controller) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return clauderrs.NewClientError(clauderrs.ErrCodeInvalidState, "controller already started", nil)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	if _, err := c.store.Resume(ctx, c.sessionID); err != nil {
		if err := c.store.Create(ctx, c.sessionID, string(c.arbiter.Mode())); err != nil {
			c.logger.Warn("failed to create session", zap.Error(err))
		}
	}

	go c.read()
	go c.run()

	resp, err := c.router.Send(ctx, messages.SubtypeInitialize, c.initializePayload(), jsonrpc.WithTimeout(c.init))
	if err != nil {
		err = fmt.Errorf("initialize: %w", err)
		c.finish(StateFailed, err)
		<-c.done

		return err
	}
	c.mu.Lock()
	c.initResp = resp
	c.mu.Unlock()
	c.setState(StateStreaming)

	return nil
}

// Send writes a user prompt and returns to Streaming.
func (c *Controller) Send(ctx context.Context, prompt string) error {
	return c.SendMessage(ctx, &messages.UserMessage{Content: messages.StringContent(prompt)})
}

// SendMessage writes a user message. It fails once the session has ended.
func (c *Controller) SendMessage(ctx context.Context, msg *messages.UserMessage) error {
	if c.finished.Load() {
		if cause := c.Err(); cause != nil {
			return fmt.Errorf("%w: %w", clauderrs.ErrClientClosed, cause)
		}

		return clauderrs.ErrClientClosed
	}
	c.setState(StateStreaming)

	return c.writeUser(ctx, msg)
}

// Messages returns the ordered content stream. It is closed when the
// session ends.
func (c *Controller) Messages() <-chan messages.Message {
	return c.out
}

// Errors returns recoverable errors as they happen, followed by the cause
// of a failed or cancelled session. It is closed after Messages.
func (c *Controller) Errors() <-chan error {
	return c.errs
}

// Done is closed once the session has ended and the worker is reaped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the cause the session ended with.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cause
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// SessionID returns the session this controller records into.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// InitResponse returns the worker's initialize response.
func (c *Controller) InitResponse() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.initResp
}

// Arbiter returns the session's permission arbiter.
func (c *Controller) Arbiter() *permissions.Arbiter {
	return c.arbiter
}

// Interrupt cancels the session and waits until the worker is reaped. A
// pending hook or permission decision sees its context cancelled; a tool
// that is already executing runs to completion first. It is safe in any
// state.
func (c *Controller) Interrupt(ctx context.Context) error {
	c.cancelInterrupt()
	if !c.started.Load() {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session. A session that is still running is cancelled.
func (c *Controller) Close(ctx context.Context) error {
	return c.Interrupt(ctx)
}

func (c *Controller) setState(s State) {
	for {
		cur := State(c.state.Load())
		if cur == s || cur.Terminal() || c.finished.Load() {
			return
		}
		if c.state.CompareAndSwap(int32(cur), int32(s)) {
			c.logger.Debug("state changed",
				zap.Stringer("from", cur),
				zap.Stringer("to", s),
			)

			return
		}
	}
}

// finish records the final state and cause and stops the loop. Only the
// first call has an effect.
func (c *Controller) finish(state State, cause error) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.cause = cause
		c.mu.Unlock()
		c.finished.Store(true)
		c.state.Store(int32(state))

		closeCause := cause
		if closeCause == nil {
			closeCause = clauderrs.ErrChannelClosed
		}
		c.router.Close(closeCause)
		fields := []zap.Field{zap.Stringer("state", state)}
		if cause != nil {
			fields = append(fields, zap.Error(cause))
		}
		c.logger.Info("session ended", fields...)
		close(c.quit)
	})
}

// fail moves to Failed when err ends the session.
func (c *Controller) fail(err error) bool {
	if !clauderrs.IsFatal(err) {
		return false
	}
	c.finish(StateFailed, err)

	return true
}

// report delivers a recoverable error. Only the loop goroutine sends on
// errs.
func (c *Controller) report(err error) {
	if err == nil {
		return
	}
	select {
	case c.errs <- err:
		return
	default:
	}
	select {
	case dropped := <-c.errs:
		c.logger.Warn("error buffer full, dropping oldest", zap.Error(dropped))
	default:
	}
	c.errs <- err
}

func (c *Controller) reportAll(errs []error) {
	for _, err := range errs {
		c.report(err)
	}
}

func (c *Controller) writeUser(ctx context.Context, msg *messages.UserMessage) error {
	messages.Stamp(msg, c.sessionID, uuid.NewString())
	line, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	// Recorded before the write so the transcript never shows a reply
	// ahead of the message that caused it.
	if _, err := c.store.Append(ctx, c.sessionID, msg); err != nil {
		c.logger.Warn("failed to record user message", zap.Error(err))
	}
	if err := c.ch.WriteLine(ctx, line); err != nil {
		if ctx.Err() == nil {
			c.fail(err)
		}

		return err
	}

	return nil
}

// shutdown runs when the loop exits. The worker is terminated and reaped
// before the output channels close.
func (c *Controller) shutdown() {
	c.finish(StateFailed, errors.New("consumer loop exited"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*c.grace)
	if err := c.ch.Terminate(ctx); err != nil {
		c.logger.Warn("failed to terminate worker", zap.Error(err))
	}
	cancel()
	<-c.readerDone

	close(c.out)
	if cause := c.Err(); cause != nil && !errors.Is(cause, clauderrs.ErrInterrupted) {
		c.report(cause)
	}
	close(c.errs)
	c.cancel()
	c.cancelInterrupt()
	close(c.done)
}

// interruptible runs h on a context that is also cancelled by Interrupt.
// The response is still written on the session context.
func (c *Controller) interruptible(h jsonrpc.Handler) jsonrpc.Handler {
	return func(ctx context.Context, req *messages.ControlRequest) (map[string]any, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(c.interrupted, cancel)
		defer stop()

		return h(ctx, req)
	}
}
