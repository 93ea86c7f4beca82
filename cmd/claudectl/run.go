package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/claude-control/pkg/claude"
)

func (a *app) runCmd() *cobra.Command {
	var flags agentFlags
	cmd := &cobra.Command{
		Use:   "run PROMPT...",
		Short: "Send one prompt and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options(&flags)
			if err != nil {
				return err
			}
			config := &claude.QueryConfig{Hooks: flags.hooks()}
			out := printer{w: cmd.OutOrStdout(), verbose: a.verbose}

			msgCh, errCh := claude.Query(cmd.Context(), strings.Join(args, " "), opts, config)
			for msg := range msgCh {
				out.message(msg)
			}
			var errs []error
			for err := range errCh {
				errs = append(errs, err)
			}
			if err := errors.Join(errs...); err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			return nil
		},
	}
	flags.register(cmd)

	return cmd
}
