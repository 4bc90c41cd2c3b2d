// Package ops implements the bulk dashboard operations that sit on top of the
// market store: warehouse scans, auto-reorder, price optimization,
// promotions, backups, sync and the monitoring rollup.
package ops

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/google/uuid"
)

// ErrNoRepository is returned by Backup, Sync and Backups when no database is attached.
var ErrNoRepository = errors.New("no repository configured")

// Repository is the persistence surface Backup and Sync need.
type Repository interface {
	UpsertProducts(ctx context.Context, products []models.Product) error
	UpsertQuery(ctx context.Context, q models.CustomerQuery) error
	InsertAgentLog(ctx context.Context, l models.AgentLog) error
	SaveBackup(ctx context.Context, b models.Backup, snap models.Snapshot) error
	ListBackups(ctx context.Context, limit int) ([]models.Backup, error)
}

// Service runs operations against one store.
type Service struct {
	store *market.Store
	repo  Repository
	clock clock.Clock
	newID func() string

	scanDelay     time.Duration
	optimizeDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithRepository attaches the database used by Backup and Sync.
func WithRepository(r Repository) Option {
	return func(s *Service) { s.repo = r }
}

// WithClock overrides the clock used for pauses. Defaults to the store's clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithDelays overrides the scan and optimization pauses.
func WithDelays(scan, optimize time.Duration) Option {
	return func(s *Service) {
		s.scanDelay = scan
		s.optimizeDelay = optimize
	}
}

// New returns a Service.
func New(store *market.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		clock:         store.Clock(),
		newID:         uuid.NewString,
		scanDelay:     2 * time.Second,
		optimizeDelay: 1500 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns the underlying market store.
func (s *Service) Store() *market.Store { return s.store }

func (s *Service) log(agent, action, details, status string) {
	// Agent and status are constants here, so AddAgentLog cannot reject them.
	_, _ = s.store.AddAgentLog(models.AgentLog{Agent: agent, Action: action, Details: details, Status: status})
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
