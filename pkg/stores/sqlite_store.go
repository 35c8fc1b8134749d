package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements PayloadStore using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	// Every connection to :memory: opens its own database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate applies the embedded migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreatePass starts a journaled render pass
func (s *SQLiteStore) CreatePass(ctx context.Context, contextID string) (*Pass, error) {
	pass := &Pass{
		ID:        uuid.New().String(),
		ContextID: contextID,
		Status:    PassStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO render_passes (id, context_id, status, started_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, pass.ID, pass.ContextID, pass.Status, pass.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to create pass: %w", err)
	}

	return pass, nil
}

// GetPass retrieves a pass by ID
func (s *SQLiteStore) GetPass(ctx context.Context, id string) (*Pass, error) {
	query := `
		SELECT id, context_id, status, dispatched, failed, error, started_at, completed_at
		FROM render_passes
		WHERE id = ?
	`

	pass, err := scanPass(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, toolbox.NewNotFoundError(fmt.Sprintf("render pass not found: %s", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}

	return pass, nil
}

// ListPasses lists passes, newest first
func (s *SQLiteStore) ListPasses(ctx context.Context, limit, offset int) ([]*Pass, error) {
	query := `
		SELECT id, context_id, status, dispatched, failed, error, started_at, completed_at
		FROM render_passes
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes: %w", err)
	}
	defer rows.Close()

	passes := []*Pass{}
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		passes = append(passes, pass)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passes: %w", err)
	}

	return passes, nil
}

// CompletePass records the outcome of a pass. A non-nil errMsg marks it failed.
func (s *SQLiteStore) CompletePass(ctx context.Context, id string, dispatched, failed int, errMsg *string) error {
	status := PassStatusCompleted
	if errMsg != nil {
		status = PassStatusFailed
	}

	query := `
		UPDATE render_passes
		SET status = ?, dispatched = ?, failed = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, dispatched, failed, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete pass: %w", err)
	}

	return requireRow(result, "render pass", id)
}

// DeletePass deletes a pass and its payloads
func (s *SQLiteStore) DeletePass(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM render_passes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}

	return requireRow(result, "render pass", id)
}

// AppendPayload journals one dispatched payload at position seq of the pass
func (s *SQLiteStore) AppendPayload(ctx context.Context, passID string, seq int, payload toolbox.ElementPayload) error {
	data, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("failed to encode payload data: %w", err)
	}

	query := `
		INSERT INTO payloads (pass_id, seq, element_type, element_sub_type, element_hash, element_namespace, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		passID,
		seq,
		payload.ElementType,
		payload.ElementSubType,
		payload.ElementHash,
		payload.ElementNamespace,
		string(data),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append payload: %w", err)
	}

	return nil
}

// ListPayloads returns the payloads of a pass in dispatch order
func (s *SQLiteStore) ListPayloads(ctx context.Context, passID string) ([]*StoredPayload, error) {
	query := `
		SELECT pass_id, seq, element_type, element_sub_type, element_hash, element_namespace, data, created_at
		FROM payloads
		WHERE pass_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payloads: %w", err)
	}
	defer rows.Close()

	payloads := []*StoredPayload{}
	for rows.Next() {
		p, err := scanPayload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payload: %w", err)
		}
		payloads = append(payloads, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payloads: %w", err)
	}

	return payloads, nil
}

// GetPayload returns the first payload of a pass with the given element hash
func (s *SQLiteStore) GetPayload(ctx context.Context, passID, hash string) (*StoredPayload, error) {
	query := `
		SELECT pass_id, seq, element_type, element_sub_type, element_hash, element_namespace, data, created_at
		FROM payloads
		WHERE pass_id = ? AND element_hash = ?
		ORDER BY seq ASC
		LIMIT 1
	`

	p, err := scanPayload(s.db.QueryRowContext(ctx, query, passID, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, toolbox.NewNotFoundError(fmt.Sprintf("payload %s not found in pass %s", hash, passID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload: %w", err)
	}

	return p, nil
}

// HealthCheck checks database connectivity
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (*Pass, error) {
	pass := &Pass{}
	err := row.Scan(
		&pass.ID,
		&pass.ContextID,
		&pass.Status,
		&pass.Dispatched,
		&pass.Failed,
		&pass.Error,
		&pass.StartedAt,
		&pass.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return pass, nil
}

func scanPayload(row rowScanner) (*StoredPayload, error) {
	p := &StoredPayload{}
	err := row.Scan(
		&p.PassID,
		&p.Seq,
		&p.ElementType,
		&p.ElementSubType,
		&p.ElementHash,
		&p.ElementNamespace,
		&p.Data,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func requireRow(result sql.Result, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return toolbox.NewNotFoundError(fmt.Sprintf("%s not found: %s", kind, id), nil)
	}
	return nil
}
