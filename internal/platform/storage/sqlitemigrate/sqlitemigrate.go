// Package sqlitemigrate applies embedded SQL migrations to a sqlite
// database. Files run in lexical order and each file is applied at most
// once, tracked in a schema_migrations ledger inside the same database.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const ledgerTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ApplyMigrations runs every pending .sql file under root in migrationFS.
// An empty root reads the filesystem top level. Replaying an already
// applied file is a no-op.
func ApplyMigrations(sqlDB *sql.DB, migrationFS fs.FS, root string) error {
	if sqlDB == nil {
		return fmt.Errorf("sql db is required")
	}

	dir := strings.TrimSpace(root)
	if dir == "" {
		dir = "."
	}

	files, err := listMigrations(migrationFS, dir)
	if err != nil {
		return err
	}
	if err := ensureLedger(sqlDB); err != nil {
		return err
	}

	for _, name := range files {
		key := name
		if dir != "." {
			key = path.Join(dir, name)
		}
		if err := applyOne(sqlDB, migrationFS, dir, name, key); err != nil {
			return err
		}
	}
	return nil
}

func listMigrations(migrationFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func ensureLedger(sqlDB *sql.DB) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`, ledgerTable)
	if _, err := sqlDB.Exec(ddl); err != nil {
		return fmt.Errorf("ensure migration ledger: %w", err)
	}
	return nil
}

// applyOne runs a single migration file inside a transaction, recording it
// in the ledger only when the statements succeed.
func applyOne(sqlDB *sql.DB, migrationFS fs.FS, dir, name, key string) error {
	done, err := recorded(sqlDB, key)
	if err != nil {
		return fmt.Errorf("check migration %s: %w", name, err)
	}
	if done {
		return nil
	}

	content, err := fs.ReadFile(migrationFS, path.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	statements := upSection(string(content))
	if strings.TrimSpace(statements) == "" {
		return nil
	}

	tx, err := sqlDB.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	if _, err := tx.Exec(statements); err != nil && !idempotentDDL(err) {
		_ = tx.Rollback()
		return fmt.Errorf("exec migration %s: %w", name, err)
	}
	if _, err := tx.Exec(
		fmt.Sprintf("INSERT OR IGNORE INTO %s (name, applied_at) VALUES (?, ?)", ledgerTable),
		key, time.Now().UTC().UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

// upSection extracts the forward statements between the Up and Down
// markers. Files without markers run whole.
func upSection(content string) string {
	up := strings.Index(content, upMarker)
	if up == -1 {
		return content
	}
	rest := content[up+len(upMarker):]
	if down := strings.Index(rest, downMarker); down != -1 {
		return rest[:down]
	}
	return rest
}

// idempotentDDL reports whether the error means the schema change already
// happened, which counts as success on replay.
func idempotentDDL(err error) bool {
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "already exists") || strings.Contains(text, "duplicate column name")
}

func recorded(sqlDB *sql.DB, key string) (bool, error) {
	var one int
	err := sqlDB.QueryRow("SELECT 1 FROM "+ledgerTable+" WHERE name = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
