package querying

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// interruptWriteTimeout bounds the best-effort interrupt request written
// while cancelling.
const interruptWriteTimeout = time.Second

// read moves worker lines into the inbox. Control responses and cancels
// bypass the inbox so they are never stuck behind a running tool.
func (c *Controller) read() {
	defer close(c.readerDone)
	for line := range c.ch.Lines() {
		if line.Terminal {
			c.inbox.push(event{terminal: true, err: line.Err})

			return
		}
		msg, err := c.codec.Decode(line.Data)
		if err != nil {
			c.logger.Warn("failed to decode worker line", zap.Error(err))
			c.inbox.push(event{err: err})

			continue
		}
		switch m := msg.(type) {
		case *messages.ControlResponse:
			c.router.Deliver(m)
		case *messages.ControlCancelRequest:
			if !c.router.Cancel(m.RequestID) {
				c.logger.Debug("cancel for unknown request", zap.String("request_id", m.RequestID))
			}
		default:
			c.inbox.push(event{msg: msg})
		}
	}
	c.inbox.push(event{terminal: true})
}

// run is the consumer loop. It is the only goroutine that handles worker
// messages and tool requests.
func (c *Controller) run() {
	defer c.shutdown()
	for {
		select {
		case <-c.quit:
			return
		case <-c.interrupt:
			c.cancelSession(clauderrs.ErrInterrupted)

			return
		case <-c.ctx.Done():
			c.cancelSession(c.ctx.Err())

			return
		case <-c.inbox.ready():
		}
		for _, ev := range c.inbox.drain() {
			if !c.handle(ev) {
				return
			}
			select {
			case <-c.interrupt:
				c.cancelSession(clauderrs.ErrInterrupted)

				return
			default:
			}
		}
	}
}

// handle processes one event and reports whether the loop continues.
func (c *Controller) handle(ev event) bool {
	switch {
	case ev.terminal:
		c.handleExit(ev.err)

		return false
	case ev.err != nil:
		if c.opts != nil && c.opts.FailOnDecodeError {
			c.finish(StateFailed, ev.err)

			return false
		}
		c.report(ev.err)

		return true
	}

	if req, ok := ev.msg.(*messages.ControlRequest); ok {
		return c.handleControlRequest(req)
	}
	if !c.commit(ev.msg) {
		return false
	}
	if _, ok := ev.msg.(*messages.ResultMessage); ok {
		c.setState(StateCompleted)
		if c.oneShot {
			if err := c.ch.CloseInput(); err != nil {
				c.logger.Debug("failed to close worker input", zap.Error(err))
			}
		}
	}

	return true
}

// handleControlRequest answers an inbound control request, then performs
// whatever the can_use_tool handler left to do.
func (c *Controller) handleControlRequest(req *messages.ControlRequest) bool {
	c.followUp, c.denial, c.stopCause = nil, nil, nil
	if err := c.router.HandleRequest(c.ctx, req); err != nil {
		if c.ctx.Err() == nil {
			c.finish(StateFailed, err)
		}

		return false
	}
	if c.interrupted.Err() != nil {
		c.cancelSession(clauderrs.ErrInterrupted)

		return false
	}
	if req.Subtype != messages.SubtypeCanUseTool {
		return true
	}
	if c.denial != nil && !c.commit(c.denial) {
		return false
	}
	if c.stopCause != nil {
		c.finish(StateCancelled, c.stopCause)

		return false
	}
	if c.followUp != nil {
		if err := c.writeUser(c.ctx, c.followUp); err != nil {
			c.logger.Warn("failed to send tool result", zap.Error(err))
			if c.finished.Load() {
				return false
			}
		}
	}
	if c.State() == StateToolPending {
		c.setState(StateStreaming)
	}

	return true
}

// commit records msg in the transcript and forwards it to the caller.
func (c *Controller) commit(msg messages.Message) bool {
	messages.Stamp(msg, c.sessionID, uuid.NewString())
	if _, err := c.store.Append(c.ctx, c.sessionID, msg); err != nil {
		c.logger.Warn("failed to record message", zap.Error(err))
		c.report(err)
	}
	select {
	case c.out <- msg:
		return true
	case <-c.interrupt:
		c.cancelSession(clauderrs.ErrInterrupted)
	case <-c.ctx.Done():
		c.cancelSession(c.ctx.Err())
	case <-c.quit:
	}

	return false
}

// handleExit ends the session when the worker's stdout closes. An exit
// after a result is clean; anything earlier is a failure.
func (c *Controller) handleExit(exitErr error) {
	if c.State() == StateCompleted {
		if exitErr != nil {
			c.report(exitErr)
		}
		c.finish(StateCompleted, nil)

		return
	}
	if exitErr == nil {
		exitErr = clauderrs.NewProcessError(
			clauderrs.ErrCodeProcessExited,
			"worker exited before a result",
			nil,
			0,
			"",
		)
	}
	c.finish(StateFailed, exitErr)
}

// cancelSession tells the worker to stop the turn and moves to Cancelled.
// The channel is terminated by shutdown.
func (c *Controller) cancelSession(cause error) {
	if c.finished.Load() {
		return
	}
	line, err := c.codec.Encode(&messages.ControlRequest{
		RequestID: c.router.NextID(),
		Subtype:   messages.SubtypeInterrupt,
	})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), interruptWriteTimeout)
		if err := c.ch.WriteLine(ctx, line); err != nil {
			c.logger.Debug("failed to write interrupt", zap.Error(err))
		}
		cancel()
	}
	c.finish(StateCancelled, cause)
}
