package claude

import (
	"context"
	"sync"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/options"
	"github.com/conneroisu/claude-control/pkg/claude/permissions"
	"github.com/conneroisu/claude-control/pkg/claude/querying"
)

// Client keeps one worker alive across turns.
type Client struct {
	opts   *options.AgentOptions
	config *QueryConfig

	mu      sync.Mutex
	session *liveSession
}

// NewClient creates a client. Nothing is started until Connect.
func NewClient(opts *options.AgentOptions, config *QueryConfig) *Client {
	return &Client{opts: opts, config: config}
}

// Connect spawns the worker and completes the handshake. The session
// outlives ctx; it ends with Close or Interrupt.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return ErrAlreadyConnected
	}
	s, err := open(context.WithoutCancel(ctx), c.opts, c.config, false)
	if err != nil {
		return err
	}
	go s.releaseWhenDone()
	c.session = s

	return nil
}

func (c *Client) controller() (*querying.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}

	return c.session.ctrl, nil
}

// Send writes a user prompt.
func (c *Client) Send(ctx context.Context, prompt string) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.Send(ctx, prompt)
}

// SendMessage writes a prebuilt user message.
func (c *Client) SendMessage(ctx context.Context, msg *messages.UserMessage) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.SendMessage(ctx, msg)
}

// Receive returns the session's message and error streams. Both close
// when the session ends.
func (c *Client) Receive() (<-chan messages.Message, <-chan error) {
	ctrl, err := c.controller()
	if err != nil {
		return createErrorChannels(err)
	}

	return ctrl.Messages(), ctrl.Errors()
}

// Interrupt cancels the session and waits for the worker to exit.
func (c *Client) Interrupt(ctx context.Context) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.Interrupt(ctx)
}

// State returns the session state.
func (c *Client) State() querying.State {
	ctrl, err := c.controller()
	if err != nil {
		return querying.StateStarting
	}

	return ctrl.State()
}

// SessionID returns the session the transcript is recorded under, or ""
// before Connect.
func (c *Client) SessionID() string {
	ctrl, err := c.controller()
	if err != nil {
		return ""
	}

	return ctrl.SessionID()
}

// SetPermissionMode switches the permission mode on both sides.
func (c *Client) SetPermissionMode(ctx context.Context, mode options.PermissionMode) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.SetPermissionMode(ctx, mode)
}

// SetModel changes the model. Nil restores the default.
func (c *Client) SetModel(ctx context.Context, model *string) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.SetModel(ctx, model)
}

// SetMaxThinkingTokens changes the thinking budget. Nil removes it.
func (c *Client) SetMaxThinkingTokens(ctx context.Context, tokens *int) error {
	ctrl, err := c.controller()
	if err != nil {
		return err
	}

	return ctrl.SetMaxThinkingTokens(ctx, tokens)
}

// Rules returns the session's effective permission rules.
func (c *Client) Rules() []permissions.PermissionRule {
	ctrl, err := c.controller()
	if err != nil {
		return nil
	}

	return ctrl.Arbiter().Rules()
}

// ReloadSettings re-reads the settings files into the arbiter. Session
// rules are kept.
func (c *Client) ReloadSettings() error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return ErrNotConnected
	}
	snap, err := s.loader.Load()
	if err != nil {
		return err
	}
	s.ctrl.Arbiter().Reload(snap)

	return nil
}

// SettingsChanges reports the path of each settings file that changes.
// It needs AgentOptions.WatchSettings; otherwise the channel is closed.
// The returned function cancels the subscription.
func (c *Client) SettingsChanges() (<-chan string, func()) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil || s.watcher == nil {
		ch := make(chan string)
		close(ch)

		return ch, func() {}
	}

	return s.watcher.Subscribe()
}

// Close ends the session. A running turn is cancelled.
func (c *Client) Close(ctx context.Context) error {
	ctrl, err := c.controller()
	if err != nil {
		return nil
	}

	return ctrl.Close(ctx)
}
