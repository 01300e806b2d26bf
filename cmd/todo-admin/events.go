// ABOUTME: Event commands: ledger history and the live event stream
// ABOUTME: Non-owners only ever see their own events

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/todo-gateway/internal/client"
	"github.com/2389/todo-gateway/internal/records"
)

type eventsOptions struct {
	*rootOptions
	Actor  string
	Kind   string
	Limit  uint64
	Cursor string
}

func newEventsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &eventsOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Page through the persisted event ledger",
		Long: `Page through the persisted event ledger, oldest first.

Pass the printed cursor back with --cursor to read the next page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts.rootOptions, func(ctx context.Context, rc *client.RecordClient) error {
				page, err := rc.Events(ctx, client.EventQuery{
					Actor:  opts.Actor,
					Kind:   opts.Kind,
					Limit:  opts.Limit,
					Cursor: opts.Cursor,
				})
				if err != nil {
					return fmt.Errorf("ListEvents: %w", err)
				}
				return printEventPage(cmd.OutOrStdout(), opts.Format, page)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "only events by this user (owner only for other users)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind (record_added, record_edited, record_deleted)")
	cmd.Flags().Uint64Var(&opts.Limit, "limit", 0, "page size (gateway default when 0)")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "resume after this cursor")
	return cmd
}

type eventJSON struct {
	ID        string `json:"id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor"`
	RecordID  uint64 `json:"record_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	At        string `json:"at"`
}

func toEventJSON(ev client.EventView) eventJSON {
	return eventJSON{
		ID:        ev.ID,
		RunID:     ev.RunID,
		Seq:       ev.Seq,
		Kind:      ev.Kind,
		Actor:     ev.Actor,
		RecordID:  ev.RecordID,
		Text:      ev.Record.Text,
		Completed: ev.Record.Completed,
		At:        ev.At.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func printEventPage(w io.Writer, format string, page client.EventPage) error {
	if format == "json" {
		out := struct {
			Events     []eventJSON `json:"events"`
			NextCursor string      `json:"next_cursor,omitempty"`
			HasMore    bool        `json:"has_more"`
		}{Events: make([]eventJSON, 0, len(page.Events)), NextCursor: page.NextCursor, HasMore: page.HasMore}
		for _, ev := range page.Events {
			out.Events = append(out.Events, toEventJSON(ev))
		}
		return writeJSON(w, out)
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(w)
	cyan.Fprintln(w, "  Events")
	cyan.Fprintln(w, "  ------")

	if len(page.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		fmt.Fprintln(w)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  SEQ\tTIME\tACTOR\tKIND\tID\tTEXT")
	fmt.Fprintln(tw, "  ---\t----\t-----\t----\t--\t----")
	for _, ev := range page.Events {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%d\t%s\n",
			ev.Seq, ev.At.Local().Format("Jan 02 15:04:05"), ev.Actor, ev.Kind, ev.RecordID, ev.Record.Text)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.HasMore {
		fmt.Fprintln(w)
		color.New(color.FgHiBlack).Fprintf(w, "  more: --cursor %s\n", page.NextCursor)
	}
	fmt.Fprintln(w)
	return nil
}

type watchOptions struct {
	*rootOptions
	Actor string
}

func newWatchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &watchOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live record events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, done, err := connect(opts.rootOptions)
			if err != nil {
				return err
			}
			defer done()

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stream, err := rc.Stream(ctx, opts.Actor)
			if err != nil {
				return fmt.Errorf("StreamEvents: %w", err)
			}

			w := cmd.OutOrStdout()
			if opts.Format != "json" {
				color.New(color.FgHiBlack).Fprintln(w, "  watching for events (ctrl-c to stop)")
			}
			for {
				ev, err := stream.Recv()
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return nil
				}
				if err != nil {
					return fmt.Errorf("StreamEvents: %w", err)
				}
				if err := printLiveEvent(w, opts.Format, ev); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "watch this user's events (owner only for other users; owner default is everyone)")
	return cmd
}

func printLiveEvent(w io.Writer, format string, ev client.EventView) error {
	if format == "json" {
		return writeJSON(w, toEventJSON(ev))
	}
	kind := color.New(color.FgCyan)
	switch ev.Kind {
	case string(records.EventRecordAdded):
		kind = color.New(color.FgGreen)
	case string(records.EventRecordDeleted):
		kind = color.New(color.FgRed)
	}
	fmt.Fprintf(w, "  %s  %-8s ", ev.At.Local().Format("15:04:05"), ev.Actor)
	kind.Fprintf(w, "%-15s", ev.Kind)
	fmt.Fprintf(w, " #%d [%s] %s\n", ev.RecordID, checkmark(ev.Record.Completed), ev.Record.Text)
	return nil
}
