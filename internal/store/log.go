package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

// LogEntry is one row of the update log.
type LogEntry struct {
	Seq        int64               `json:"seq"`
	ID         string              `json:"id"`
	CallID     string              `json:"call_id"`
	Kind       string              `json:"kind"`
	RecordID   string              `json:"record_id"`
	Actor      update.Actor        `json:"actor"`
	Status     update.Status       `json:"status"`
	Errors     []update.ErrorEntry `json:"errors"`
	Changes    []record.Change     `json:"changes"`
	RecordedAt time.Time           `json:"recorded_at"`
}

// LogResult appends the outcome of an update call to the log. Every
// outcome is logged, including rejected and escalated calls.
func (s *Store) LogResult(ctx context.Context, res *update.Result, actor update.Actor) (LogEntry, error) {
	entry := LogEntry{
		ID:         s.ids.Generate(),
		CallID:     res.CallID,
		Kind:       res.Kind,
		RecordID:   res.ID,
		Actor:      actor,
		Status:     res.Outcome.Status,
		Errors:     res.Outcome.Errors,
		Changes:    res.ChangedAttributes(),
		RecordedAt: s.now().UTC(),
	}
	seq, err := s.WriteUpdateLog(ctx, entry)
	if err != nil {
		return LogEntry{}, err
	}
	entry.Seq = seq
	return entry, nil
}

// WriteUpdateLog inserts an entry and returns its seq. Uses
// ON CONFLICT(id) DO NOTHING for idempotency; a duplicate ID returns the
// seq of the existing row.
func (s *Store) WriteUpdateLog(ctx context.Context, entry LogEntry) (int64, error) {
	actorJSON, err := marshalJSON(entry.Actor)
	if err != nil {
		return 0, fmt.Errorf("write update log: %w", err)
	}
	errs := entry.Errors
	if errs == nil {
		errs = []update.ErrorEntry{}
	}
	errorsJSON, err := marshalJSON(errs)
	if err != nil {
		return 0, fmt.Errorf("write update log: %w", err)
	}
	changesJSON, err := marshalChanges(entry.Changes)
	if err != nil {
		return 0, fmt.Errorf("write update log: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO update_log
		(id, call_id, kind, record_id, actor, status, errors, changes, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		entry.ID,
		entry.CallID,
		entry.Kind,
		entry.RecordID,
		actorJSON,
		string(entry.Status),
		errorsJSON,
		changesJSON,
		entry.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("write update log: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM update_log WHERE id = ?`, entry.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write update log: %w", err)
	}
	return seq, nil
}

// ReadUpdateLog returns the log entries for one record, oldest first.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the record has no history.
func (s *Store) ReadUpdateLog(ctx context.Context, kind, recordID string) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, call_id, kind, record_id, actor, status, errors, changes, recorded_at
		FROM update_log
		WHERE kind = ? AND record_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, kind, recordID)
	if err != nil {
		return nil, fmt.Errorf("query update log: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate update log: %w", err)
	}
	return entries, nil
}

func scanLogEntry(rows *sql.Rows) (LogEntry, error) {
	var entry LogEntry
	var status, actorJSON, errorsJSON, changesJSON, recordedAt string
	err := rows.Scan(
		&entry.Seq,
		&entry.ID,
		&entry.CallID,
		&entry.Kind,
		&entry.RecordID,
		&actorJSON,
		&status,
		&errorsJSON,
		&changesJSON,
		&recordedAt,
	)
	if err != nil {
		return LogEntry{}, fmt.Errorf("scan update log: %w", err)
	}

	entry.Status = update.Status(status)
	if err := json.Unmarshal([]byte(actorJSON), &entry.Actor); err != nil {
		return LogEntry{}, fmt.Errorf("unmarshal actor: %w", err)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &entry.Errors); err != nil {
		return LogEntry{}, fmt.Errorf("unmarshal errors: %w", err)
	}
	if entry.Changes, err = unmarshalChanges(changesJSON); err != nil {
		return LogEntry{}, err
	}
	if entry.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return LogEntry{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return entry, nil
}

// marshalJSON encodes v with HTML escaping disabled, so stored text
// matches the canonical form of its string values.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

type storedChange struct {
	Field    string          `json:"field"`
	Previous json.RawMessage `json:"previous"`
	Current  json.RawMessage `json:"current"`
}

func marshalChanges(changes []record.Change) (string, error) {
	stored := make([]storedChange, 0, len(changes))
	for _, c := range changes {
		prev, err := value.MarshalCanonical(c.Previous)
		if err != nil {
			return "", fmt.Errorf("marshal change %s: %w", c.Field, err)
		}
		cur, err := value.MarshalCanonical(c.Current)
		if err != nil {
			return "", fmt.Errorf("marshal change %s: %w", c.Field, err)
		}
		stored = append(stored, storedChange{Field: c.Field, Previous: prev, Current: cur})
	}
	return marshalJSON(stored)
}

func unmarshalChanges(data string) ([]record.Change, error) {
	var stored []storedChange
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	changes := make([]record.Change, 0, len(stored))
	for _, sc := range stored {
		prev, err := value.Parse(sc.Previous)
		if err != nil {
			return nil, fmt.Errorf("unmarshal change %s: %w", sc.Field, err)
		}
		cur, err := value.Parse(sc.Current)
		if err != nil {
			return nil, fmt.Errorf("unmarshal change %s: %w", sc.Field, err)
		}
		changes = append(changes, record.Change{Field: sc.Field, Previous: prev, Current: cur})
	}
	return changes, nil
}
