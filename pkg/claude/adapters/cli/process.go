package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

var (
	sigterm os.Signal = syscall.SIGTERM
	sigkill os.Signal = os.Kill
)

// environ is replaced in tests.
var environ = func() []string {
	return append(os.Environ(), "CLAUDE_CODE_ENTRYPOINT=sdk-go")
}

// signalProcess sends sig, treating an already exited process as success.
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

// wait reaps the child as soon as it exits, independently of the readers,
// then starts the drain deadline on both output pipes.
func (c *Channel) wait(outputs ...*os.File) {
	c.waitErr = c.cmd.Wait()
	close(c.exited)
	for _, f := range outputs {
		_ = f.SetReadDeadline(time.Now().Add(drainIdle))
	}
}

// exitReader reads one worker output pipe. After the worker has exited, a
// read that sees no data for drainIdle ends the stream with io.EOF.
type exitReader struct {
	f      *os.File
	exited <-chan struct{}
}

func (r *exitReader) Read(p []byte) (int, error) {
	select {
	case <-r.exited:
		_ = r.f.SetReadDeadline(time.Now().Add(drainIdle))
	default:
	}
	n, err := r.f.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, io.EOF
	}

	return n, err
}

// readLoop pumps stdout lines until EOF, waits for the child to be reaped
// and emits the terminal line. The terminal line is sent even when scanning
// panics.
func (c *Channel) readLoop(stdout io.Reader, files ...*os.File) {
	var scanErr, panicErr error

	defer func() {
		if r := recover(); r != nil {
			panicErr = fmt.Errorf("worker reader panic: %v", r)
			_ = signalProcess(c.cmd.Process, sigkill)
			_, _ = io.Copy(io.Discard, stdout)
		}

		<-c.errDone
		<-c.exited
		waitErr := c.waitErr
		for _, f := range files {
			_ = f.Close()
		}

		var terminal error
		switch {
		case panicErr != nil:
			terminal = clauderrs.NewTransportError(clauderrs.ErrCodeReadFailed, "reader crashed", panicErr)
		case scanErr != nil && !isClosedPipe(scanErr):
			terminal = clauderrs.NewTransportError(clauderrs.ErrCodeReadFailed, "failed to read worker stdout", scanErr)
		case c.stopping.Load():
			terminal = nil
		default:
			terminal = c.wrapExitError(waitErr)
		}

		c.logger.Info("worker exited",
			zap.Int("pid", c.cmd.Process.Pid),
			zap.Bool("terminated", c.stopping.Load()),
			zap.NamedError("exit", waitErr),
		)
		c.emitTerminal(ports.Line{Err: terminal, Terminal: true})
		close(c.lines)
		close(c.done)
	}()

	scanErr = c.scanLines(stdout)
	if scanErr != nil {
		_ = signalProcess(c.cmd.Process, sigkill)
		_, _ = io.Copy(io.Discard, stdout)
	}
}

func (c *Channel) scanLines(stdout io.Reader) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, min(initialBufferSize, c.maxBuf)), c.maxBuf)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		data := make([]byte, len(raw))
		copy(data, raw)

		select {
		case c.lines <- ports.Line{Data: data}:
		case <-c.abort:
			// Keep draining so the worker never blocks on a full pipe.
		}
	}

	return scanner.Err()
}

// emitTerminal delivers the terminal line. After an abort, stale data
// lines are dropped to make room for it.
func (c *Channel) emitTerminal(line ports.Line) {
	for {
		select {
		case c.lines <- line:
			return
		case <-c.abort:
		}
		select {
		case c.lines <- line:
			return
		case <-c.lines:
		default:
		}
	}
}

func (c *Channel) readStderr(stderr io.Reader) {
	defer close(c.errDone)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), c.maxBuf)
	for scanner.Scan() {
		line := scanner.Text()
		c.recordStderr(line)
		c.logger.Warn("worker stderr", zap.String("line", line))
		if c.onStderr != nil {
			c.onStderr(line)
		}
	}
	_, _ = io.Copy(io.Discard, stderr)
}

// wrapExitError converts a non-zero exit into a *clauderrs.ProcessError.
// A clean exit is nil.
func (c *Channel) wrapExitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return clauderrs.NewProcessError(
			clauderrs.ErrCodeProcessCrashed, "failed to reap worker", err, -1, c.stderrSnapshot(),
		)
	}
	code := ee.ExitCode()
	if code == 0 {
		return nil
	}
	errCode := clauderrs.ErrCodeProcessExited
	if code < 0 {
		errCode = clauderrs.ErrCodeProcessCrashed
	}

	return clauderrs.NewProcessError(
		errCode, fmt.Sprintf("worker exited with code %d", code), err, code, c.stderrSnapshot(),
	).WithCommand(c.cmd.Path)
}

// isClosedPipe reports read errors caused by our own teardown.
func isClosedPipe(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
