package market

import "github.com/charbel-alt28/aura-retail-ai/pkg/models"

// Event types delivered to listeners.
const (
	EventProduct    = "product_update"
	EventQuery      = "query_update"
	EventLog        = "agent_log"
	EventSimulation = "simulation"
)

// Event describes one state change. Exactly one of Product, Query or Log is
// set, except for simulation events which only carry Simulating.
type Event struct {
	Type       string                `json:"type"`
	Product    *models.Product       `json:"product,omitempty"`
	Query      *models.CustomerQuery `json:"query,omitempty"`
	Log        *models.AgentLog      `json:"log,omitempty"`
	Simulating bool                  `json:"simulating"`
}

// Subscribe registers fn for every future event and returns a function that
// removes it. fn runs synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func productEvent(p models.Product) Event { return Event{Type: EventProduct, Product: &p} }

func queryEvent(q models.CustomerQuery) Event { return Event{Type: EventQuery, Query: &q} }

func logEvent(l models.AgentLog) Event { return Event{Type: EventLog, Log: &l} }
