// ABOUTME: Output helpers shared by todo-admin commands
// ABOUTME: Renders results as colored text tables or indented JSON

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/todo-gateway/internal/records"
)

// callTimeout bounds every unary RPC.
const callTimeout = 10 * time.Second

func callContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, callTimeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseUintArg(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer: %q", name, s)
	}
	return n, nil
}

// recordRow is the JSON shape of one record in a listing.
type recordRow struct {
	ID        uint64 `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Exists    bool   `json:"exists"`
}

type recordPage struct {
	Records []recordRow `json:"records"`
	Count   uint64      `json:"count"`
}

func printRecords(w io.Writer, format, title string, start uint64, recs []records.Record, count uint64) error {
	page := recordPage{Records: make([]recordRow, len(recs)), Count: count}
	for i, r := range recs {
		page.Records[i] = recordRow{ID: start + uint64(i), Text: r.Text, Completed: r.Completed, Exists: r.Exists()}
	}
	if format == "json" {
		return writeJSON(w, page)
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	cyan.Fprintf(w, "  %s (%d total)\n", title, count)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tDONE\tTEXT")
	fmt.Fprintln(tw, "  --\t----\t----")
	for _, row := range page.Records {
		if !row.Exists {
			fmt.Fprintf(tw, "  %d\t\t%s\n", row.ID, gray.Sprint("(empty)"))
			continue
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", row.ID, checkmark(row.Completed), row.Text)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func checkmark(done bool) string {
	if done {
		return color.GreenString("✓")
	}
	return " "
}
