// Package sqlite provides a SQLite-backed rule-definition storage
// implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/threshold.games/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists rule-definition state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite rule-definition store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateRuleDefinition inserts one rule-definition record.
func (s *Store) CreateRuleDefinition(ctx context.Context, definition storage.RuleDefinition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(definition.ID)
	campaignID := strings.TrimSpace(definition.CampaignID)
	name := strings.TrimSpace(definition.Name)
	if id == "" {
		return fmt.Errorf("definition id is required")
	}
	if campaignID == "" {
		return fmt.Errorf("campaign id is required")
	}
	if name == "" {
		return fmt.Errorf("name is required")
	}
	tree := definition.Tree
	if len(tree) == 0 {
		tree = []byte("[]")
	}
	createdAt := definition.CreatedAt.UTC()
	updatedAt := definition.UpdatedAt.UTC()
	if createdAt.IsZero() && updatedAt.IsZero() {
		createdAt = time.Now().UTC()
		updatedAt = createdAt
	} else {
		if createdAt.IsZero() {
			createdAt = updatedAt
		}
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO rule_definitions (
		   id, campaign_id, name, description, tree, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		campaignID,
		name,
		strings.TrimSpace(definition.Description),
		string(tree),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isRuleDefinitionUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create rule definition: %w", err)
	}
	return nil
}

// GetRuleDefinition returns one rule definition by id.
func (s *Store) GetRuleDefinition(ctx context.Context, id string) (storage.RuleDefinition, error) {
	if err := ctx.Err(); err != nil {
		return storage.RuleDefinition{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RuleDefinition{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.RuleDefinition{}, fmt.Errorf("definition id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, campaign_id, name, description, tree, created_at, updated_at
		   FROM rule_definitions
		  WHERE id = ?`,
		id,
	)
	return scanRuleDefinition(row)
}

// ListRuleDefinitions returns one page of definitions for a campaign,
// keyed by creation order.
func (s *Store) ListRuleDefinitions(ctx context.Context, campaignID string, pageSize int, pageToken string) (storage.RuleDefinitionPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RuleDefinitionPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RuleDefinitionPage{}, fmt.Errorf("storage is not configured")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return storage.RuleDefinitionPage{}, fmt.Errorf("campaign id is required")
	}
	if pageSize <= 0 {
		return storage.RuleDefinitionPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	page := storage.RuleDefinitionPage{
		Definitions: make([]storage.RuleDefinition, 0, pageSize),
	}

	var (
		rows *sql.Rows
		err  error
	)
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, campaign_id, name, description, tree, created_at, updated_at
			   FROM rule_definitions
			  WHERE campaign_id = ?
			  ORDER BY id ASC
			  LIMIT ?`,
			campaignID,
			pageSize+1,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, campaign_id, name, description, tree, created_at, updated_at
			   FROM rule_definitions
			  WHERE campaign_id = ? AND id > ?
			  ORDER BY id ASC
			  LIMIT ?`,
			campaignID,
			pageToken,
			pageSize+1,
		)
	}
	if err != nil {
		return storage.RuleDefinitionPage{}, fmt.Errorf("list rule definitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var definition storage.RuleDefinition
		var tree string
		var createdAt int64
		var updatedAt int64
		if err := rows.Scan(
			&definition.ID,
			&definition.CampaignID,
			&definition.Name,
			&definition.Description,
			&tree,
			&createdAt,
			&updatedAt,
		); err != nil {
			return storage.RuleDefinitionPage{}, fmt.Errorf("list rule definitions: %w", err)
		}
		definition.Tree = []byte(tree)
		definition.CreatedAt = fromMillis(createdAt)
		definition.UpdatedAt = fromMillis(updatedAt)
		page.Definitions = append(page.Definitions, definition)
	}
	if err := rows.Err(); err != nil {
		return storage.RuleDefinitionPage{}, fmt.Errorf("list rule definitions: %w", err)
	}
	if len(page.Definitions) > pageSize {
		page.NextPageToken = page.Definitions[pageSize-1].ID
		page.Definitions = page.Definitions[:pageSize]
	}

	return page, nil
}

// UpdateRuleDefinition replaces an existing definition's editable fields.
func (s *Store) UpdateRuleDefinition(ctx context.Context, definition storage.RuleDefinition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(definition.ID)
	name := strings.TrimSpace(definition.Name)
	if id == "" {
		return fmt.Errorf("definition id is required")
	}
	if name == "" {
		return fmt.Errorf("name is required")
	}
	tree := definition.Tree
	if len(tree) == 0 {
		tree = []byte("[]")
	}
	updatedAt := definition.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE rule_definitions
		    SET name = ?, description = ?, tree = ?, updated_at = ?
		  WHERE id = ?`,
		name,
		strings.TrimSpace(definition.Description),
		string(tree),
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update rule definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule definition: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteRuleDefinition removes one definition by id.
func (s *Store) DeleteRuleDefinition(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("definition id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rule_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule definition: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendTelemetryEvent records an operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.EventName) == "" {
		return fmt.Errorf("event name is required")
	}
	if strings.TrimSpace(evt.Severity) == "" {
		return fmt.Errorf("severity is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(evt.AttributesJSON) == 0 && len(evt.Attributes) > 0 {
		payload, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("marshal telemetry attributes: %w", err)
		}
		evt.AttributesJSON = payload
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (
		   timestamp, event_name, severity, definition_id, session_id,
		   request_id, trace_id, span_id, attributes_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(evt.Timestamp),
		evt.EventName,
		evt.Severity,
		toNullString(evt.DefinitionID),
		toNullString(evt.SessionID),
		toNullString(evt.RequestID),
		toNullString(evt.TraceID),
		toNullString(evt.SpanID),
		toNullString(string(evt.AttributesJSON)),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

func scanRuleDefinition(row *sql.Row) (storage.RuleDefinition, error) {
	var definition storage.RuleDefinition
	var tree string
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&definition.ID,
		&definition.CampaignID,
		&definition.Name,
		&definition.Description,
		&tree,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RuleDefinition{}, storage.ErrNotFound
		}
		return storage.RuleDefinition{}, fmt.Errorf("get rule definition: %w", err)
	}
	definition.Tree = []byte(tree)
	definition.CreatedAt = fromMillis(createdAt)
	definition.UpdatedAt = fromMillis(updatedAt)
	return definition, nil
}

func toNullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func isRuleDefinitionUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "rule_definitions.id")
}
