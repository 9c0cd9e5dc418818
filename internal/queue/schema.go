package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ledgerTables must all exist before the store accepts work. A database
// missing one of them cannot honor the balance invariants.
var ledgerTables = []string{"accounts", "credit_entries", "media_items", "analysis_jobs"}

func (s *Store) initSchema(ctx context.Context) error {
	version, found, err := s.readSchemaVersion(ctx)
	if err != nil {
		return err
	}
	if !found {
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
			return err
		}); err != nil {
			return err
		}
		return s.checkTables(ctx)
	}
	if version != schemaVersion {
		// Balances live in this file, so the message never suggests deleting it.
		return fmt.Errorf("%w: %s has version %d, this build expects %d; back up the file before migrating",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return s.checkTables(ctx)
}

func (s *Store) readSchemaVersion(ctx context.Context) (int, bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&count); err != nil {
		return 0, false, fmt.Errorf("check schema_version table: %w", err)
	}
	if count == 0 {
		return 0, false, nil
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, true, nil
}

func (s *Store) checkTables(ctx context.Context) error {
	var missing []string
	for _, table := range ledgerTables {
		var count int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if count == 0 {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s is missing tables %s", ErrSchemaMismatch, s.path, strings.Join(missing, ", "))
	}
	return nil
}
