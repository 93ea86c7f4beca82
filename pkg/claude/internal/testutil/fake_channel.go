package testutil

import (
	"context"
	"sync"

	"github.com/conneroisu/claude-control/pkg/claude/adapters/parse"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// lineBuffer bounds how many lines a test may emit before the reader
// drains them.
const lineBuffer = 256

// FakeChannel is an in-memory worker for hermetic tests. It answers the
// initialize handshake, records every line the host writes and lets the
// test script the worker's output.
type FakeChannel struct {
	mu          sync.Mutex
	written     []messages.Message
	exited      bool
	inputClosed bool
	terminated  int

	lines chan ports.Line
	done  chan struct{}

	// InitResponse answers initialize. A nil value leaves initialize
	// unanswered.
	InitResponse map[string]any

	// OnWrite runs after each decoded host write, outside the lock.
	OnWrite func(f *FakeChannel, msg messages.Message)

	// WriteErr, when set, fails every write.
	WriteErr error
}

var _ ports.Channel = (*FakeChannel)(nil)

// NewFakeChannel creates a worker that answers initialize with an empty
// success response.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{
		lines:        make(chan ports.Line, lineBuffer),
		done:         make(chan struct{}),
		InitResponse: map[string]any{},
	}
}

// WriteLine records the host's line and runs the scripted reaction.
func (f *FakeChannel) WriteLine(ctx context.Context, line []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := parse.Decode(line)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.WriteErr != nil {
		err := f.WriteErr
		f.mu.Unlock()

		return err
	}
	if f.exited || f.inputClosed {
		f.mu.Unlock()

		return clauderrs.ErrChannelClosed
	}
	f.written = append(f.written, msg)
	onWrite := f.OnWrite
	init := f.InitResponse
	f.mu.Unlock()

	if req, ok := msg.(*messages.ControlRequest); ok && req.Subtype == messages.SubtypeInitialize && init != nil {
		f.Emit(Success(req.RequestID, init))
	}
	if onWrite != nil {
		onWrite(f, msg)
	}

	return nil
}

// Lines implements ports.Channel.
func (f *FakeChannel) Lines() <-chan ports.Line {
	return f.lines
}

// CloseInput implements ports.Channel.
func (f *FakeChannel) CloseInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputClosed = true

	return nil
}

// Terminate ends the worker with a clean exit unless it already exited.
func (f *FakeChannel) Terminate(context.Context) error {
	f.mu.Lock()
	f.terminated++
	f.mu.Unlock()
	f.Exit(nil)

	return nil
}

// Done implements ports.Channel.
func (f *FakeChannel) Done() <-chan struct{} {
	return f.done
}

// Emit sends msg as one worker line. Lines emitted after Exit are dropped.
func (f *FakeChannel) Emit(msg messages.Message) {
	line, err := parse.Encode(msg)
	if err != nil {
		panic(err)
	}
	f.EmitRaw(line)
}

// EmitRaw sends data as one worker line without encoding it.
func (f *FakeChannel) EmitRaw(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exited {
		return
	}
	f.lines <- ports.Line{Data: data}
}

// Exit ends the worker's output with cause as the exit error.
func (f *FakeChannel) Exit(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exited {
		return
	}
	f.exited = true
	f.lines <- ports.Line{Terminal: true, Err: cause}
	close(f.lines)
	close(f.done)
}

// Written returns a copy of everything the host wrote.
func (f *FakeChannel) Written() []messages.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]messages.Message(nil), f.written...)
}

// Response returns the control response the host wrote for requestID.
func (f *FakeChannel) Response(requestID string) (*messages.ControlResponse, bool) {
	for _, msg := range f.Written() {
		if resp, ok := msg.(*messages.ControlResponse); ok && resp.RequestID == requestID {
			return resp, true
		}
	}

	return nil, false
}

// Requests returns the control requests the host wrote with subtype.
func (f *FakeChannel) Requests(subtype string) []*messages.ControlRequest {
	var out []*messages.ControlRequest
	for _, msg := range f.Written() {
		if req, ok := msg.(*messages.ControlRequest); ok && req.Subtype == subtype {
			out = append(out, req)
		}
	}

	return out
}

// ToolResults returns the tool result blocks the host wrote.
func (f *FakeChannel) ToolResults() []*messages.ToolResultBlock {
	var out []*messages.ToolResultBlock
	for _, msg := range f.Written() {
		user, ok := msg.(*messages.UserMessage)
		if !ok {
			continue
		}
		blocks, ok := user.Content.(messages.BlocksContent)
		if !ok {
			continue
		}
		for _, b := range blocks {
			if tr, ok := b.(*messages.ToolResultBlock); ok {
				out = append(out, tr)
			}
		}
	}

	return out
}

// InputClosed reports whether the host closed the worker's input.
func (f *FakeChannel) InputClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.inputClosed
}

// Terminated reports how many times Terminate was called.
func (f *FakeChannel) Terminated() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.terminated
}
