// Package store persists the catalog, the agent log tape, customer queries and
// backup snapshots so a restarted daemon picks up where it left off.
package store

import (
	"context"
	"errors"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for market state.
type Store interface {
	Close() error
	Ping(ctx context.Context) error

	// UpsertProducts inserts or updates products by id. First insertion order is preserved.
	UpsertProducts(ctx context.Context, products []models.Product) error
	ListProducts(ctx context.Context) ([]models.Product, error)

	// InsertAgentLog stores one log entry. Re-inserting an existing id is a no-op.
	InsertAgentLog(ctx context.Context, l models.AgentLog) error
	// ListAgentLogs returns up to limit entries, newest first.
	ListAgentLogs(ctx context.Context, limit int) ([]models.AgentLog, error)

	UpsertQuery(ctx context.Context, q models.CustomerQuery) error
	// ListQueries returns up to limit queries, newest first.
	ListQueries(ctx context.Context, limit int) ([]models.CustomerQuery, error)

	SaveBackup(ctx context.Context, b models.Backup, snap models.Snapshot) error
	// ListBackups returns up to limit backups, newest first.
	ListBackups(ctx context.Context, limit int) ([]models.Backup, error)
	GetBackup(ctx context.Context, id string) (models.Backup, models.Snapshot, error)
}
