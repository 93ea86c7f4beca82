// Package cli owns the worker process: it spawns it, moves NDJSON lines over
// its stdio and guarantees the child is reaped on every exit path.
package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

const (
	// defaultMaxBufferSize caps a single stdout line.
	defaultMaxBufferSize = 1024 * 1024
	// initialBufferSize is the scanner's starting buffer.
	initialBufferSize = 64 * 1024
	// lineBuffer is the capacity of the Lines channel.
	lineBuffer = 64
	// stderrTailLines is how many stderr lines are kept for exit errors.
	stderrTailLines = 20
	defaultGrace    = 5 * time.Second
	// drainIdle is how long a pipe may stay silent after the worker has
	// exited before it is treated as closed. A descendant that inherited
	// the pipe can otherwise hold it open indefinitely.
	drainIdle = 500 * time.Millisecond
)

// Command is a fully resolved worker invocation.
type Command struct {
	Path string
	Args []string
	// Env is appended to the host environment.
	Env []string
	Dir string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Config tunes a Channel.
type Config struct {
	Logger         *zap.Logger
	MaxBufferSize  int
	TerminateGrace time.Duration
	StderrCallback func(string)
}

// Channel implements ports.Channel over a child process.
type Channel struct {
	cmd    *exec.Cmd
	logger *zap.Logger
	grace  time.Duration
	maxBuf int

	writeMu sync.Mutex
	stdin   io.WriteCloser

	lines   chan ports.Line
	done    chan struct{}
	abort   chan struct{}
	errDone chan struct{}

	// exited is closed once Wait returns; waitErr is set before.
	exited  chan struct{}
	waitErr error

	stderrMu   sync.Mutex
	stderrTail []string
	onStderr   func(string)

	stopping  atomic.Bool
	stdinOnce sync.Once
	stopOnce  sync.Once
	abortOnce sync.Once
}

var _ ports.Channel = (*Channel)(nil)

// Start spawns the worker and begins reading its output. Cancelling ctx
// terminates the worker.
func Start(ctx context.Context, command Command, cfg Config) (*Channel, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Channel{
		logger:   logger.Named("channel"),
		grace:    cfg.TerminateGrace,
		maxBuf:   cfg.MaxBufferSize,
		lines:    make(chan ports.Line, lineBuffer),
		done:     make(chan struct{}),
		abort:    make(chan struct{}),
		errDone:  make(chan struct{}),
		exited:   make(chan struct{}),
		onStderr: cfg.StderrCallback,
	}
	if c.grace <= 0 {
		c.grace = defaultGrace
	}
	if c.maxBuf <= 0 {
		c.maxBuf = defaultMaxBufferSize
	}

	c.cmd = exec.Command(command.Path, command.Args...)
	c.cmd.Env = append(environ(), command.Env...)
	c.cmd.Dir = command.Dir

	p, err := c.setupPipes()
	if err != nil {
		return nil, clauderrs.NewTransportError(
			clauderrs.ErrCodeTransportInit, "failed to open worker pipes", err,
		)
	}
	if err := c.cmd.Start(); err != nil {
		p.closeAll()

		return nil, clauderrs.NewProcessError(
			clauderrs.ErrCodeProcessSpawnFailed, "failed to start worker", err, -1, "",
		).WithCommand(command.Path)
	}
	// The child holds its own copies of the write ends.
	closeAll(p.childOut, p.childErr)
	c.stdin = p.stdin
	c.logger.Debug("worker started",
		zap.Int("pid", c.cmd.Process.Pid),
		zap.String("command", command.Path),
	)

	go c.wait(p.stdout, p.stderr)
	go c.readStderr(&exitReader{f: p.stderr, exited: c.exited})
	go c.readLoop(&exitReader{f: p.stdout, exited: c.exited}, p.stdout, p.stderr)
	go c.watchContext(ctx)

	return c, nil
}

// workerPipes holds both ends of the worker's stdio. Output uses plain OS
// pipes rather than StdoutPipe so that reaping the child never closes the
// read ends under the reader.
type workerPipes struct {
	stdin    io.WriteCloser
	stdout   *os.File
	stderr   *os.File
	childOut *os.File
	childErr *os.File
}

func (p *workerPipes) closeAll() {
	closeAll(p.stdin, p.stdout, p.stderr, p.childOut, p.childErr)
}

// setupPipes opens stdin, stdout and stderr, closing what was opened on
// failure.
func (c *Channel) setupPipes() (*workerPipes, error) {
	p := &workerPipes{}
	var err error
	if p.stdin, err = c.cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("stdin pipe failed: %w", err)
	}
	if p.stdout, p.childOut, err = os.Pipe(); err != nil {
		p.closeAll()

		return nil, fmt.Errorf("stdout pipe failed: %w", err)
	}
	if p.stderr, p.childErr, err = os.Pipe(); err != nil {
		p.closeAll()

		return nil, fmt.Errorf("stderr pipe failed: %w", err)
	}
	c.cmd.Stdout = p.childOut
	c.cmd.Stderr = p.childErr

	return p, nil
}

// WriteLine implements ports.Channel. A missing trailing newline is added.
func (c *Channel) WriteLine(ctx context.Context, line []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.stopping.Load() {
		return clauderrs.NewTransportError(
			clauderrs.ErrCodeWriteFailed, "worker is terminating", clauderrs.ErrClientClosed,
		)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		line = append(line[:len(line):len(line)], '\n')
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(line); err != nil {
		return clauderrs.NewTransportError(
			clauderrs.ErrCodeWriteFailed, "failed to write to worker stdin", err,
		)
	}

	return nil
}

// Lines implements ports.Channel.
func (c *Channel) Lines() <-chan ports.Line {
	return c.lines
}

// Done implements ports.Channel.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Pid returns the worker's process ID.
func (c *Channel) Pid() int {
	return c.cmd.Process.Pid
}

// CloseInput implements ports.Channel.
func (c *Channel) CloseInput() error {
	var err error
	c.stdinOnce.Do(func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err = c.stdin.Close()
	})

	return err
}

// Terminate implements ports.Channel: close stdin, SIGTERM, wait out the
// grace period, then SIGKILL. It returns once the output is drained and the
// child reaped. When ctx ends first the worker is killed and ctx.Err() is
// returned.
func (c *Channel) Terminate(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.stopping.Store(true)
		c.abortOnce.Do(func() { close(c.abort) })
		_ = c.CloseInput()
		go c.escalate()
	})

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		_ = signalProcess(c.cmd.Process, sigkill)

		return ctx.Err()
	}
}

func (c *Channel) escalate() {
	select {
	case <-c.exited:
		return
	default:
	}

	_ = signalProcess(c.cmd.Process, sigterm)
	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-c.exited:
	case <-timer.C:
		c.logger.Warn("worker ignored SIGTERM, killing",
			zap.Int("pid", c.cmd.Process.Pid),
			zap.Duration("grace", c.grace),
		)
		_ = signalProcess(c.cmd.Process, sigkill)
	}
}

// Close terminates the worker with a background context.
func (c *Channel) Close() error {
	return c.Terminate(context.Background())
}

func (c *Channel) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		c.logger.Debug("context cancelled, terminating worker")
		_ = c.Terminate(context.Background())
	case <-c.done:
	}
}

// recordStderr keeps the last lines for exit diagnostics.
func (c *Channel) recordStderr(line string) {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()
	c.stderrTail = append(c.stderrTail, line)
	if len(c.stderrTail) > stderrTailLines {
		c.stderrTail = c.stderrTail[len(c.stderrTail)-stderrTailLines:]
	}
}

func (c *Channel) stderrSnapshot() string {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()

	return strings.Join(c.stderrTail, "\n")
}

func closeAll(closers ...io.Closer) {
	for _, cl := range closers {
		if cl != nil {
			_ = cl.Close()
		}
	}
}
