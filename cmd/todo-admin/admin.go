// ABOUTME: Owner commands for other users' collections and store settings
// ABOUTME: Also shows the caller's identity as the gateway sees it

package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/todo-gateway/internal/client"
)

// withClient connects, runs fn with a bounded context, and closes the connection.
func withClient(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, rc *client.RecordClient) error) error {
	rc, done, err := connect(opts)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := callContext(cmd.Context())
	defer cancel()
	return fn(ctx, rc)
}

func newUserRecordsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "user-records <user> <start> <end>",
		Short: "List records [start, end) from another user's collection (owner only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRangeArgs(args[1], args[2])
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				recs, count, err := rc.ByUser(ctx, args[0], start, end)
				if err != nil {
					return fmt.Errorf("RecordsByUser: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), opts.Format, "Records of "+args[0], start, recs, count)
			})
		},
	}
}

func newCountCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count <user>",
		Short: "Show a user's collection count (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				n, err := rc.Count(ctx, args[0])
				if err != nil {
					return fmt.Errorf("CollectionCount: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{"user": args[0], "count": n})
				}
				fmt.Fprintf(w, "  %s: %d\n", args[0], n)
				return nil
			})
		},
	}
}

func newSetCountCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-count <user> <n>",
		Short: "Overwrite a user's collection count (owner only)",
		Long: `Overwrite a user's collection count (owner only).

The count sets the next id assigned by add and bounds edit, rm, and get.
Records beyond a lowered count are kept and reappear if it is raised again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseUintArg("n", args[1])
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				if err := rc.SetCount(ctx, args[0], n); err != nil {
					return fmt.Errorf("SetCollectionCount: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{"user": args[0], "count": n})
				}
				color.New(color.FgGreen).Fprintf(w, "  ✓ %s count set to %d\n", args[0], n)
				return nil
			})
		},
	}
}

func newOwnerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "owner",
		Short: "Show the record store owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				owner, err := rc.Owner(ctx)
				if err != nil {
					return fmt.Errorf("GetOwner: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{"owner": owner})
				}
				fmt.Fprintf(w, "  Owner: %s\n", owner)
				return nil
			})
		},
	}
}

func newSetOwnerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-owner <identity>",
		Short: "Transfer ownership (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				if err := rc.SetOwner(ctx, args[0]); err != nil {
					return fmt.Errorf("SetOwner: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{"owner": args[0]})
				}
				color.New(color.FgGreen).Fprintf(w, "  ✓ Ownership transferred to %s\n", args[0])
				return nil
			})
		},
	}
}

func newPageLimitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "page-limit",
		Short: "Show the maximum span of a range read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				n, err := rc.PageLimit(ctx)
				if err != nil {
					return fmt.Errorf("GetPageLimit: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{"page_limit": n})
				}
				fmt.Fprintf(w, "  Page limit: %d\n", n)
				return nil
			})
		},
	}
}

func newSetPageLimitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-page-limit <n>",
		Short: "Replace the page limit (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseUintArg("n", args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				if err := rc.SetPageLimit(ctx, n); err != nil {
					return fmt.Errorf("SetPageLimit: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{"page_limit": n})
				}
				color.New(color.FgGreen).Fprintf(w, "  ✓ Page limit set to %d\n", n)
				return nil
			})
		},
	}
}

func newMeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your identity as the gateway sees it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, rc *client.RecordClient) error {
				me, err := rc.Me(ctx)
				if err != nil {
					return fmt.Errorf("Me: %w", err)
				}
				w := cmd.OutOrStdout()
				if opts.Format == "json" {
					return writeJSON(w, map[string]any{
						"identity": me.Identity,
						"method":   me.Method,
						"is_owner": me.IsOwner,
					})
				}

				cyan := color.New(color.FgCyan)
				fmt.Fprintln(w)
				cyan.Fprintln(w, "  Identity")
				cyan.Fprintln(w, "  --------")
				fmt.Fprintf(w, "  Identity:   %s\n", me.Identity)
				fmt.Fprintf(w, "  Auth:       %s\n", me.Method)
				if me.IsOwner {
					color.New(color.FgGreen).Fprintf(w, "  Role:       owner\n")
				} else {
					fmt.Fprintf(w, "  Role:       user\n")
				}
				fmt.Fprintln(w)
				return nil
			})
		},
	}
}
