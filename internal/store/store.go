package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var sqliteMigrations embed.FS

const (
	upsertProductSQL = `INSERT INTO products(id, name, category, stock, reorder_level, demand_forecast, base_price, current_price, demand_level, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, category=excluded.category, stock=excluded.stock,
  reorder_level=excluded.reorder_level, demand_forecast=excluded.demand_forecast, base_price=excluded.base_price,
  current_price=excluded.current_price, demand_level=excluded.demand_level, updated_at=excluded.updated_at`
	insertLogSQL   = `INSERT INTO agent_logs(id, created_at, agent, action, details, status) VALUES(?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`
	upsertQuerySQL = `INSERT INTO customer_queries(id, created_at, customer_name, query_type, query, response, status)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET customer_name=excluded.customer_name, query_type=excluded.query_type,
  query=excluded.query, response=excluded.response, status=excluded.status`
)

// sqliteStore is the embedded default backend, one file under the protected dir.
type sqliteStore struct {
	DB *sql.DB

	stmtUpsertProduct *sql.Stmt
	stmtInsertLog     *sql.Stmt
	stmtUpsertQuery   *sql.Stmt
}

// Open opens (creating if needed) home/protected/db.sqlite and migrates it.
func Open(home string) (Store, error) {
	if home == "" {
		return nil, fmt.Errorf("store: home directory required")
	}
	dbPath := config.DBPath(home)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, err
	}
	return OpenFile(dbPath)
}

// OpenFile opens a SQLite database at an explicit path.
func OpenFile(path string) (Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// Writes come from one mirror goroutine; a small pool covers API reads.
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx := context.Background()
	s := &sqliteStore{DB: db}
	if _, err := RunMigrations(ctx, s, sqliteMigrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}
	for dest, q := range map[**sql.Stmt]string{
		&s.stmtUpsertProduct: upsertProductSQL,
		&s.stmtInsertLog:     insertLogSQL,
		&s.stmtUpsertQuery:   upsertQuerySQL,
	} {
		if *dest, err = db.PrepareContext(ctx, q); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("store: prepare: %w", err)
		}
	}
	return s, nil
}

// EnsureSchema creates and migrates the database under home, then closes it.
func EnsureSchema(home string) error {
	s, err := Open(home)
	if err != nil {
		return err
	}
	return s.Close()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	for _, st := range []*sql.Stmt{s.stmtUpsertProduct, s.stmtInsertLog, s.stmtUpsertQuery} {
		if st != nil {
			_ = st.Close()
		}
	}
	return s.DB.Close()
}

func (s *sqliteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *sqliteStore) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (s *sqliteStore) ApplyMigration(ctx context.Context, m Migration) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.Version, time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}
