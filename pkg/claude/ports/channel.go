package ports

import "context"

// Line is one item read from the worker's stdout. The final item of every
// channel has Terminal set; Err then holds the exit cause, nil for a clean
// exit.
type Line struct {
	Data     []byte
	Err      error
	Terminal bool
}

// Channel is the duplex line stream to one worker process.
type Channel interface {
	// WriteLine writes one newline-terminated line to the worker's stdin.
	WriteLine(ctx context.Context, line []byte) error

	// Lines returns the stdout sequence. It is not restartable: every call
	// returns the same channel, which is closed after the terminal Line.
	Lines() <-chan Line

	// CloseInput closes the worker's stdin.
	CloseInput() error

	// Terminate stops the worker and waits until it is reaped or ctx ends,
	// in which case it returns ctx.Err(). It is idempotent.
	Terminate(ctx context.Context) error

	// Done is closed once the process has been reaped.
	Done() <-chan struct{}
}
