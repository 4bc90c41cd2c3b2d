package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// Mirror writes market events through to a Store on a background goroutine.
// Write errors are logged and never reach the mutating caller.
type Mirror struct {
	repo  Store
	ch    chan market.Event
	unsub func()

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewMirror subscribes to m and starts the writer.
func NewMirror(repo Store, m *market.Store) *Mirror {
	mi := &Mirror{repo: repo, ch: make(chan market.Event, 1024), done: make(chan struct{})}
	mi.unsub = m.Subscribe(mi.enqueue)
	go mi.loop()
	return mi
}

func (mi *Mirror) enqueue(ev market.Event) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if mi.closed {
		return
	}
	mi.ch <- ev
}

func (mi *Mirror) loop() {
	defer close(mi.done)
	for ev := range mi.ch {
		if err := mi.write(context.Background(), ev); err != nil {
			slog.Warn("store mirror write failed", "type", ev.Type, "err", err)
		}
	}
}

func (mi *Mirror) write(ctx context.Context, ev market.Event) error {
	switch {
	case ev.Product != nil:
		return mi.repo.UpsertProducts(ctx, []models.Product{*ev.Product})
	case ev.Query != nil:
		return mi.repo.UpsertQuery(ctx, *ev.Query)
	case ev.Log != nil:
		return mi.repo.InsertAgentLog(ctx, *ev.Log)
	}
	return nil
}

// Close unsubscribes and waits for queued writes to finish.
func (mi *Mirror) Close() {
	mi.unsub()
	mi.mu.Lock()
	if mi.closed {
		mi.mu.Unlock()
		<-mi.done
		return
	}
	mi.closed = true
	close(mi.ch)
	mi.mu.Unlock()
	<-mi.done
}

// Restore loads persisted state for a new market store. An empty database is
// seeded with seed and seed is returned as the catalog.
func Restore(ctx context.Context, repo Store, seed []models.Product) ([]models.Product, []market.Option, error) {
	products, err := repo.ListProducts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("restore products: %w", err)
	}
	if len(products) == 0 {
		if err := repo.UpsertProducts(ctx, seed); err != nil {
			return nil, nil, fmt.Errorf("seed products: %w", err)
		}
		products = seed
	}
	queries, err := repo.ListQueries(ctx, models.DefaultQueryListLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("restore queries: %w", err)
	}
	logs, err := repo.ListAgentLogs(ctx, models.DefaultLogCapacity)
	if err != nil {
		return nil, nil, fmt.Errorf("restore logs: %w", err)
	}
	return products, []market.Option{market.WithQueries(queries), market.WithLogs(logs)}, nil
}
