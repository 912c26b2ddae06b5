package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/revise/internal/query"
	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/value"
)

var _ record.Saver = (*Store)(nil)

// InsertRecord writes a new record at revision 1 along with its unique
// values. Returns ErrExists if (kind, id) is already stored.
func (s *Store) InsertRecord(ctx context.Context, e *record.Entity) error {
	fieldsJSON, digest, err := encodeEntity(e)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (kind, id, fields, revision, digest)
			VALUES (?, ?, ?, 1, ?)
		`, e.Kind(), e.ID(), fieldsJSON, digest)
		if err != nil {
			if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) || isConstraint(err, sqlite3.ErrConstraintUnique) {
				return fmt.Errorf("%s %s: %w", e.Kind(), e.ID(), ErrExists)
			}
			return err
		}
		return writeUniques(ctx, tx, e)
	})
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	e.SetRevision(1)
	return nil
}

// LoadRecord reads a record of the given schema. Returns an error
// wrapping sql.ErrNoRows if it does not exist. A row whose digest does
// not match its fields is returned unloaded.
func (s *Store) LoadRecord(ctx context.Context, schema record.Schema, id string) (*record.Entity, error) {
	var fieldsJSON, digest string
	var revision int64
	err := s.db.QueryRowContext(ctx, `
		SELECT fields, revision, digest
		FROM records
		WHERE kind = ? AND id = ?
	`, schema.Name(), id).Scan(&fieldsJSON, &revision, &digest)
	if err != nil {
		return nil, fmt.Errorf("load record %s %s: %w", schema.Name(), id, err)
	}

	var fields value.Object
	if err := fields.UnmarshalJSON([]byte(fieldsJSON)); err != nil {
		e := record.NewEntity(schema, s, id, nil, revision)
		e.MarkUnloaded()
		return e, nil
	}

	e := record.NewEntity(schema, s, id, fields, revision)
	want, err := value.Digest(schema.Name(), id, fields)
	if err != nil || want != digest {
		e.MarkUnloaded()
	}
	return e, nil
}

// SaveRecord implements record.Saver. It writes the entity's fields if
// the stored revision still matches, then bumps the revision.
func (s *Store) SaveRecord(ctx context.Context, e *record.Entity) error {
	fieldsJSON, digest, err := encodeEntity(e)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE records
			SET fields = ?, digest = ?, revision = revision + 1
			WHERE kind = ? AND id = ? AND revision = ?
		`, fieldsJSON, digest, e.Kind(), e.ID(), e.Revision())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%s %s at revision %d: %w", e.Kind(), e.ID(), e.Revision(), ErrStale)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM record_uniques WHERE kind = ? AND record_id = ?
		`, e.Kind(), e.ID()); err != nil {
			return err
		}
		return writeUniques(ctx, tx, e)
	})
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	e.SetRevision(e.Revision() + 1)
	return nil
}

// IsTaken implements record.Saver.
func (s *Store) IsTaken(ctx context.Context, kind, field string, v value.Value, exceptID string) (bool, error) {
	key, err := value.MarshalCanonical(v)
	if err != nil {
		return false, fmt.Errorf("is taken: %w", err)
	}

	var count int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM record_uniques
		WHERE kind = ? AND field = ? AND value = ? AND record_id != ?
	`, kind, field, string(key), exceptID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is taken: %w", err)
	}
	return count > 0, nil
}

// ListRecords returns the IDs of every record of kind, in binary order.
func (s *Store) ListRecords(ctx context.Context, kind string) ([]string, error) {
	return s.FindRecords(ctx, kind, nil)
}

// FindRecords returns the IDs of the records of kind matching filter, in
// binary order. The filter should already be validated against the kind.
func (s *Store) FindRecords(ctx context.Context, kind string, filter query.Predicate) ([]string, error) {
	sqlText, params, err := query.Compile(kind, filter)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return ids, nil
}

func writeUniques(ctx context.Context, tx *sql.Tx, e *record.Entity) error {
	schema := e.Schema()
	if schema == nil {
		return nil
	}
	for _, field := range schema.UniqueFields() {
		v, _ := e.Field(field)
		if value.IsNull(v) {
			continue
		}
		key, err := value.MarshalCanonical(v)
		if err != nil {
			return fmt.Errorf("marshal unique %s: %w", field, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO record_uniques (kind, field, value, record_id)
			VALUES (?, ?, ?, ?)
		`, e.Kind(), field, string(key), e.ID())
		if err != nil {
			if isConstraint(err, sqlite3.ErrConstraintUnique) {
				return fmt.Errorf("%s.%s = %s: %w", e.Kind(), field, key, ErrUniqueViolation)
			}
			return fmt.Errorf("write unique %s: %w", field, err)
		}
	}
	return nil
}

func encodeEntity(e *record.Entity) (fieldsJSON, digest string, err error) {
	if !e.Loaded() {
		return "", "", errors.New("entity is not loaded")
	}
	fields := e.Fields()
	data, err := value.MarshalCanonical(fields)
	if err != nil {
		return "", "", fmt.Errorf("marshal fields: %w", err)
	}
	digest, err = value.Digest(e.Kind(), e.ID(), fields)
	if err != nil {
		return "", "", err
	}
	return string(data), digest, nil
}
