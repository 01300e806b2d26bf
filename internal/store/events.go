// ABOUTME: Record event ledger for the audit trail of record mutations
// ABOUTME: Provides append, lookup, and cursor-paginated listing of RecordEvents

package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const eventColumns = `event_id, run_id, seq, kind, actor, record_id, text, completed, timestamp, position`

// timestampFormat is fixed width so stored timestamps compare lexically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SaveEvent appends an event to the ledger. An empty ID is filled with a uuid.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event *RecordEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// uint64 values are stored by bit pattern; SQLite integers are signed.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO record_events (event_id, run_id, seq, kind, actor, record_id, text, completed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.RunID,
		int64(event.Seq),
		event.Kind,
		event.Actor,
		int64(event.RecordID),
		event.Text,
		event.Completed,
		event.Timestamp.UTC().Format(timestampFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("saved record event",
		"event_id", event.ID,
		"kind", event.Kind,
		"actor", event.Actor,
		"record_id", event.RecordID,
	)
	return nil
}

// GetEvent retrieves a single event by ID
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*RecordEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM record_events WHERE event_id = ?`, id)

	event, _, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return event, nil
}

// ListEvents returns events in append order, filtered and paginated by params.
func (s *SQLiteStore) ListEvents(ctx context.Context, p ListEventsParams) (*ListEventsResult, error) {
	p.Limit = normalizeLimit(p.Limit)

	var after int64
	if p.Cursor != "" {
		var err error
		after, err = decodeCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
	}

	var args []any
	query := `SELECT ` + eventColumns + ` FROM record_events WHERE position > ?`
	args = append(args, after)

	if p.Actor != "" {
		query += ` AND actor = ?`
		args = append(args, p.Actor)
	}
	if p.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, p.Kind)
	}
	if p.Since != nil {
		query += ` AND timestamp >= ?`
		args = append(args, p.Since.UTC().Format(timestampFormat))
	}
	if p.Until != nil {
		query += ` AND timestamp <= ?`
		args = append(args, p.Until.UTC().Format(timestampFormat))
	}

	// Fetch limit+1 to detect if there are more results
	query += ` ORDER BY position ASC LIMIT ?`
	args = append(args, p.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []RecordEvent
	var positions []int64
	for rows.Next() {
		event, pos, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, *event)
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	result := &ListEventsResult{}
	if len(events) > p.Limit {
		events = events[:p.Limit]
		result.HasMore = true
		result.NextCursor = encodeCursor(positions[p.Limit-1])
	}
	result.Events = events
	return result, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*RecordEvent, int64, error) {
	var (
		e                  RecordEvent
		seq, recordID, pos int64
		ts                 string
	)
	if err := row.Scan(&e.ID, &e.RunID, &seq, &e.Kind, &e.Actor, &recordID, &e.Text, &e.Completed, &ts, &pos); err != nil {
		return nil, 0, err
	}
	e.Seq = uint64(seq)
	e.RecordID = uint64(recordID)

	var err error
	e.Timestamp, err = time.Parse(timestampFormat, ts)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing timestamp: %w", err)
	}
	return &e, pos, nil
}

// encodeCursor creates an opaque cursor from a ledger position.
// Format is base64("pos|" + position).
func encodeCursor(position int64) string {
	return base64.StdEncoding.EncodeToString([]byte("pos|" + strconv.FormatInt(position, 10)))
}

// decodeCursor parses a cursor produced by encodeCursor.
func decodeCursor(cursor string) (int64, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: bad encoding", ErrInvalidCursor)
	}
	raw, ok := strings.CutPrefix(string(decoded), "pos|")
	if !ok {
		return 0, fmt.Errorf("%w: expected pos|<n>", ErrInvalidCursor)
	}
	pos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || pos < 0 {
		return 0, fmt.Errorf("%w: bad position", ErrInvalidCursor)
	}
	return pos, nil
}
