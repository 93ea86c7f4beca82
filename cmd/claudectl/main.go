// Command claudectl drives a worker from the terminal and manages the
// session transcripts it records.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conneroisu/claude-control/pkg/claude/session"
)

// app holds the flags shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer

	cliPath     string
	cwd         string
	sessionsDir string
	verbose     bool

	log *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := &app{stdin: os.Stdin, stdout: os.Stdout}
	err := a.rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "claudectl",
		Short:        "Control a Claude worker over the stdio control protocol",
		SilenceUsage: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cliPath, "cli-path", "", "worker executable (default: discovered)")
	flags.StringVar(&a.cwd, "cwd", "", "working directory of the worker")
	flags.StringVar(&a.sessionsDir, "sessions-dir", "", "transcript directory (default: ~/.claude-control/sessions)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log protocol activity to stderr and print thinking and tool results")

	root.AddCommand(a.runCmd(), a.chatCmd(), a.sessionsCmd())

	return root
}

func (a *app) logger() *zap.Logger {
	if a.log != nil {
		return a.log
	}
	a.log = zap.NewNop()
	if a.verbose {
		if logger, err := zap.NewDevelopment(); err == nil {
			a.log = logger.Named("claudectl")
		}
	}

	return a.log
}

func (a *app) store() (*session.FileStore, error) {
	dir := a.sessionsDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".claude-control", "sessions")
	}

	return session.NewFileStore(dir, a.logger())
}
