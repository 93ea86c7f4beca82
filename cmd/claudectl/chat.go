package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/conneroisu/claude-control/pkg/claude"
	"github.com/conneroisu/claude-control/pkg/claude/messages"
)

const chatHelp = `commands:
  /mode MODE   switch permission mode
  /model NAME  switch model ("default" restores it)
  /rules       show effective permission rules
  /reload      re-read settings files
  /quit        end the session`

func (a *app) chatCmd() *cobra.Command {
	var flags agentFlags
	var ask bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a multi-turn conversation with one worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := a.options(&flags)
			if err != nil {
				return err
			}
			in := &lineReader{scanner: bufio.NewScanner(cmd.InOrStdin())}
			config := &claude.QueryConfig{Hooks: flags.hooks()}
			if ask {
				config.CanUseTool = in.askPermission(cmd.OutOrStdout())
			}
			client := claude.NewClient(opts, config)
			if err := client.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer func() { _ = client.Close(context.WithoutCancel(cmd.Context())) }()

			c := &chat{
				client: client,
				in:     in,
				out:    printer{w: cmd.OutOrStdout(), verbose: a.verbose},
			}

			return c.loop(cmd.Context())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&ask, "ask", false, "prompt for tool calls no mode or rule decides")

	return cmd
}

// lineReader serializes reads between the prompt loop and permission
// questions asked while a turn is running.
type lineReader struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
}

func (r *lineReader) next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.scanner.Scan() {
		return "", false
	}

	return strings.TrimSpace(r.scanner.Text()), true
}

func (r *lineReader) askPermission(w io.Writer) claude.CanUseToolFunc {
	return func(
		_ context.Context,
		toolName string,
		input map[string]any,
		_ claude.ToolPermissionContext,
	) (claude.PermissionResult, error) {
		fmt.Fprintf(w, "allow %s %v? [y/N] ", toolName, input)
		answer, ok := r.next()
		if ok && strings.EqualFold(answer, "y") {
			return &claude.PermissionResultAllow{}, nil
		}

		return &claude.PermissionResultDeny{Message: "denied at the prompt"}, nil
	}
}

type chat struct {
	client *claude.Client
	in     *lineReader
	out    printer
}

func (c *chat) loop(ctx context.Context) error {
	msgCh, errCh := c.client.Receive()
	fmt.Fprintf(c.out.w, "session %s (/help for commands)\n", c.client.SessionID())
	for {
		fmt.Fprint(c.out.w, "\n> ")
		line, ok := c.in.next()
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil {
				fmt.Fprintf(c.out.w, "error: %v\n", err)
			}
			if quit {
				return nil
			}

			continue
		}
		if err := c.client.Send(ctx, line); err != nil {
			return err
		}
		if err := c.awaitResult(msgCh, errCh); err != nil {
			return err
		}
	}
}

// awaitResult prints messages until the turn's result arrives.
func (c *chat) awaitResult(msgCh <-chan messages.Message, errCh <-chan error) error {
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return c.drainErrors(errCh)
			}
			c.out.message(msg)
			if _, done := msg.(*messages.ResultMessage); done {
				return nil
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil

				continue
			}
			fmt.Fprintf(c.out.w, "warning: %v\n", err)
		}
	}
}

func (c *chat) drainErrors(errCh <-chan error) error {
	var last error
	for err := range errCh {
		last = err
	}
	if last != nil {
		return fmt.Errorf("session ended: %w", last)
	}

	return errors.New("session ended")
}

func (c *chat) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(c.out.w, chatHelp)
	case "/mode":
		if err := c.client.SetPermissionMode(ctx, claude.PermissionMode(arg)); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out.w, "permission mode: %s\n", arg)
	case "/model":
		var model *string
		if arg != "" && arg != "default" {
			model = &arg
		}
		if err := c.client.SetModel(ctx, model); err != nil {
			return false, err
		}
	case "/rules":
		for _, rule := range c.client.Rules() {
			fmt.Fprintf(c.out.w, "%-16s %-6s %s\n", rule.Destination, rule.Behavior, rule.String())
		}
	case "/reload":
		return false, c.client.ReloadSettings()
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}

	return false, nil
}
