package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and edit recorded transcripts",
	}
	cmd.AddCommand(
		a.sessionsListCmd(),
		a.sessionsReplayCmd(),
		a.sessionsForkCmd(),
		a.sessionsTruncateCmd(),
	)

	return cmd
}

func (a *app) sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPARENT\tMODE\tENTRIES\tUPDATED")
			for _, info := range infos {
				parent := info.ParentID
				if parent == "" {
					parent = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					info.ID, parent, info.Mode, info.Length, info.UpdatedAt.Format(time.RFC3339))
			}

			return tw.Flush()
		},
	}
}

func (a *app) sessionsReplayCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "replay SESSION",
		Short: "Print a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			entries, err := store.ReplayFrom(cmd.Context(), args[0], from)
			if err != nil {
				return err
			}
			out := printer{w: cmd.OutOrStdout(), verbose: true}
			for _, e := range entries {
				fmt.Fprintf(out.w, "--- #%d %s %s\n", e.Seq, e.ID, e.Timestamp.Format(time.RFC3339))
				out.message(e.Message)
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first entry to print")

	return cmd
}

func (a *app) sessionsForkCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "fork SESSION",
		Short: "Copy a transcript into a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			id, err := store.Fork(cmd.Context(), args[0], at)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)

			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "last entry to copy (default: all)")

	return cmd
}

func (a *app) sessionsTruncateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate SESSION ENTRY",
		Short: "Drop every entry after ENTRY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}

			return store.Truncate(cmd.Context(), args[0], args[1])
		},
	}
}
