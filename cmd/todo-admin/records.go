// ABOUTME: Record commands for the caller's own collection
// ABOUTME: Implements add, edit, rm, get, and ls

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type addOptions struct {
	*rootOptions
	IdempotencyKey string
}

func newAddCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &addOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Append a record to your collection",
		Long: `Append a record to your collection and print its id.

With --idempotency-key, retrying the same text and key returns the original
id instead of appending again.

Example:
  todo-admin add "Buy milk" --idempotency-key 7f3c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, done, err := connect(opts.rootOptions)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := callContext(cmd.Context())
			defer cancel()

			id, replayed, err := rc.Add(ctx, args[0], opts.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("AddRecord: %w", err)
			}

			w := cmd.OutOrStdout()
			if opts.Format == "json" {
				return writeJSON(w, map[string]any{"id": id, "replayed": replayed})
			}
			if replayed {
				color.New(color.FgYellow).Fprintf(w, "  Record %d already added (replayed)\n", id)
				return nil
			}
			color.New(color.FgGreen).Fprintf(w, "  ✓ Added record %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.IdempotencyKey, "idempotency-key", "", "deduplicate retries with this key")
	return cmd
}

type editOptions struct {
	*rootOptions
	Done bool
}

func newEditCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &editOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Overwrite a record in your collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUintArg("id", args[0])
			if err != nil {
				return err
			}

			rc, done, err := connect(opts.rootOptions)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := callContext(cmd.Context())
			defer cancel()

			if err := rc.Edit(ctx, id, args[1], opts.Done); err != nil {
				return fmt.Errorf("EditRecord: %w", err)
			}
			return printAck(cmd, opts.Format, "edited", id)
		},
	}

	cmd.Flags().BoolVar(&opts.Done, "done", false, "mark the record completed")
	return cmd
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a record from your collection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUintArg("id", args[0])
			if err != nil {
				return err
			}

			rc, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := callContext(cmd.Context())
			defer cancel()

			if err := rc.Delete(ctx, id); err != nil {
				return fmt.Errorf("DeleteRecord: %w", err)
			}
			return printAck(cmd, opts.Format, "deleted", id)
		},
	}
}

func printAck(cmd *cobra.Command, format, action string, id uint64) error {
	w := cmd.OutOrStdout()
	if format == "json" {
		return writeJSON(w, map[string]any{"id": id, action: true})
	}
	color.New(color.FgGreen).Fprintf(w, "  ✓ Record %d %s\n", id, action)
	return nil
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record from your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUintArg("id", args[0])
			if err != nil {
				return err
			}

			rc, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := callContext(cmd.Context())
			defer cancel()

			rec, err := rc.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("GetRecord: %w", err)
			}

			w := cmd.OutOrStdout()
			row := recordRow{ID: id, Text: rec.Text, Completed: rec.Completed, Exists: rec.Exists()}
			if opts.Format == "json" {
				return writeJSON(w, row)
			}
			if !row.Exists {
				color.New(color.FgHiBlack).Fprintf(w, "  %d: (empty)\n", id)
				return nil
			}
			fmt.Fprintf(w, "  %d: [%s] %s\n", id, checkmark(row.Completed), row.Text)
			return nil
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <start> <end>",
		Short: "List records [start, end) from your collection",
		Long: `List records [start, end) from your collection.

The span may not exceed the gateway's page limit, and end may not exceed
your collection count.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRangeArgs(args[0], args[1])
			if err != nil {
				return err
			}

			rc, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := callContext(cmd.Context())
			defer cancel()

			recs, count, err := rc.Mine(ctx, start, end)
			if err != nil {
				return fmt.Errorf("MyRecords: %w", err)
			}
			return printRecords(cmd.OutOrStdout(), opts.Format, "My records", start, recs, count)
		},
	}
}

func parseRangeArgs(startArg, endArg string) (uint64, uint64, error) {
	start, err := parseUintArg("start", startArg)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseUintArg("end", endArg)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
