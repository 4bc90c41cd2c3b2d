// Package market is the in-memory state container for the catalog, customer
// queries and the agent log tape. Every mutation is paired with its audit
// entry under one lock, and listeners are notified in mutation order.
package market

import (
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrQueryNotFound   = errors.New("query not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
	ErrInvalidStock    = errors.New("stock must not be negative")
	ErrInvalidDemand   = errors.New("demand level must be low, medium or high")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrInvalidLog      = errors.New("invalid agent log")

	ErrSimulationRunning = errors.New("scenario run in progress")
)

// Store owns products, queries and the bounded log tape.
type Store struct {
	mu         sync.RWMutex
	products   []models.Product
	index      map[string]int
	queries    []models.CustomerQuery
	logs       []models.AgentLog
	simulating bool
	running    bool

	clock    clock.Clock
	newID    func() string
	capacity int

	pending []Event
	emitMu  sync.Mutex
	subMu   sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets the id generator for queries and log entries.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogCapacity bounds the log tape. Values < 1 are ignored.
func WithLogCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithQueries restores previously stored queries (newest first).
func WithQueries(qs []models.CustomerQuery) Option {
	return func(s *Store) { s.queries = append([]models.CustomerQuery(nil), qs...) }
}

// WithLogs restores previously stored log entries (newest first).
func WithLogs(logs []models.AgentLog) Option {
	return func(s *Store) { s.logs = append([]models.AgentLog(nil), logs...) }
}

// NewStore builds a store from a seed catalog. Duplicate ids after the first are dropped.
func NewStore(seed []models.Product, opts ...Option) *Store {
	s := &Store{
		index:    make(map[string]int, len(seed)),
		clock:    clock.New(),
		newID:    uuid.NewString,
		capacity: models.DefaultLogCapacity,
		subs:     make(map[int]func(Event)),
	}
	for _, p := range seed {
		if _, dup := s.index[p.ID]; dup {
			continue
		}
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	for _, o := range opts {
		o(s)
	}
	if len(s.logs) > s.capacity {
		s.logs = s.logs[:s.capacity]
	}
	return s
}

// Clock returns the store's clock.
func (s *Store) Clock() clock.Clock { return s.clock }

// Products returns a copy of the catalog in seed order.
func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Product(nil), s.products...)
}

// Product returns one product by id.
func (s *Store) Product(id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return s.products[i], nil
}

// Queries returns a copy of the query list, newest first.
func (s *Store) Queries() []models.CustomerQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CustomerQuery(nil), s.queries...)
}

// Query returns one query by id.
func (s *Store) Query(id string) (models.CustomerQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.queries {
		if q.ID == id {
			return q, nil
		}
	}
	return models.CustomerQuery{}, ErrQueryNotFound
}

// Logs returns a copy of the log tape, newest first.
func (s *Store) Logs() []models.AgentLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AgentLog(nil), s.logs...)
}

// Simulating reports whether a scenario run holds the simulation flag.
func (s *Store) Simulating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulating
}

// Snapshot copies the full state under one read lock.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Snapshot{
		Products:   append([]models.Product(nil), s.products...),
		Queries:    append([]models.CustomerQuery(nil), s.queries...),
		Logs:       append([]models.AgentLog(nil), s.logs...),
		Simulating: s.simulating,
	}
}

// SetSimulating sets the simulation flag. Clearing it while a scenario run
// holds it fails with ErrSimulationRunning.
func (s *Store) SetSimulating(v bool) error {
	s.mu.Lock()
	if !v && s.running {
		s.mu.Unlock()
		return ErrSimulationRunning
	}
	changed := s.simulating != v
	s.simulating = v
	s.unlockAndEmit(changedEvents(changed, Event{Type: EventSimulation, Simulating: v})...)
	return nil
}

// ToggleSimulating flips the simulation flag and returns the new value.
func (s *Store) ToggleSimulating() (bool, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return true, ErrSimulationRunning
	}
	s.simulating = !s.simulating
	v := s.simulating
	s.unlockAndEmit(Event{Type: EventSimulation, Simulating: v})
	return v, nil
}

// BeginSimulation claims the flag for a scenario run and reports whether it
// did. The claim holds until EndSimulation.
func (s *Store) BeginSimulation() bool {
	s.mu.Lock()
	if s.simulating {
		s.mu.Unlock()
		return false
	}
	s.simulating = true
	s.running = true
	s.unlockAndEmit(Event{Type: EventSimulation, Simulating: true})
	return true
}

// EndSimulation releases a claim taken by BeginSimulation.
func (s *Store) EndSimulation() {
	s.mu.Lock()
	changed := s.simulating
	s.simulating = false
	s.running = false
	s.unlockAndEmit(changedEvents(changed, Event{Type: EventSimulation, Simulating: false})...)
}

// appendLogLocked prepends an entry and trims the tape. Caller holds mu.
func (s *Store) appendLogLocked(agent, action, details, status string) models.AgentLog {
	entry := models.AgentLog{
		ID:        s.newID(),
		Timestamp: s.clock.Now().UTC(),
		Agent:     agent,
		Action:    action,
		Details:   details,
		Status:    status,
	}
	s.logs = append([]models.AgentLog{entry}, s.logs...)
	if len(s.logs) > s.capacity {
		s.logs = s.logs[:s.capacity]
	}
	return entry
}

// unlockAndEmit queues events, releases mu and delivers everything queued
// so far. Queueing under mu keeps delivery order equal to mutation order.
// Listeners may read the store but must not mutate it.
func (s *Store) unlockAndEmit(events ...Event) {
	s.pending = append(s.pending, events...)
	s.mu.Unlock()
	s.drain()
}

func (s *Store) drain() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		s.subMu.RLock()
		subs := make([]func(Event), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
		s.subMu.RUnlock()
		for _, ev := range batch {
			for _, fn := range subs {
				fn(ev)
			}
		}
	}
}

func changedEvents(changed bool, ev Event) []Event {
	if !changed {
		return nil
	}
	return []Event{ev}
}
