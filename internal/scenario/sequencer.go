// Package scenario runs the scripted "day in the life" demo against a market
// store: inventory scan and restock, demand repricing, then two customer
// queries, with fixed pauses between steps.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

// ErrAlreadyRunning is returned when the store's simulation flag is already held.
var ErrAlreadyRunning = errors.New("scenario already running")

// Delays are the pauses between scenario steps.
type Delays struct {
	Scan           time.Duration `json:"scan"`
	Alert          time.Duration `json:"alert"`
	Reorder        time.Duration `json:"reorder"`
	BeforePricing  time.Duration `json:"before_pricing"`
	Analyze        time.Duration `json:"analyze"`
	Adjust         time.Duration `json:"adjust"`
	BeforeCustomer time.Duration `json:"before_customer"`
	FirstQuery     time.Duration `json:"first_query"`
	SecondQuery    time.Duration `json:"second_query"`
	Summary        time.Duration `json:"summary"`
}

// DefaultDelays returns the stock demo pacing.
func DefaultDelays() Delays {
	return Delays{
		Scan:           1500 * time.Millisecond,
		Alert:          1000 * time.Millisecond,
		Reorder:        800 * time.Millisecond,
		BeforePricing:  1500 * time.Millisecond,
		Analyze:        1200 * time.Millisecond,
		Adjust:         800 * time.Millisecond,
		BeforeCustomer: 1500 * time.Millisecond,
		FirstQuery:     1000 * time.Millisecond,
		SecondQuery:    1200 * time.Millisecond,
		Summary:        1000 * time.Millisecond,
	}
}

// Total is the wall time of a run that restocks n products and adjusts m prices.
func (d Delays) Total(n, m int) time.Duration {
	t := d.Scan + d.BeforePricing + d.Analyze + d.BeforeCustomer + d.FirstQuery + d.SecondQuery + d.Summary
	if n > 0 {
		t += d.Alert + time.Duration(n)*d.Reorder
	}
	return t + time.Duration(m)*d.Adjust
}

// ScriptedQueries are submitted, in order, during the customer step.
var ScriptedQueries = []models.CustomerQuery{
	{
		CustomerName: "Sarah Johnson",
		QueryType:    "return_policy",
		Query:        "What is your return policy for fresh produce?",
		Response:     "Fresh produce can be returned within 3 days with receipt for a full refund. Our quality guarantee ensures your satisfaction.",
		Status:       models.QueryResolved,
	},
	{
		CustomerName: "Mike Chen",
		QueryType:    "delivery",
		Query:        "Can I get same-day delivery for my order?",
		Response:     "Yes! Orders placed before 2 PM qualify for same-day delivery. Free delivery on orders over $50.",
		Status:       models.QueryResolved,
	},
}

// Outcome is delivered once a started run finishes.
type Outcome struct {
	Summary models.ScenarioSummary
	Err     error
}

// Runner drives one store through the demo script. A Runner may be reused;
// the store's simulation flag keeps runs from overlapping.
type Runner struct {
	store  *market.Store
	clock  clock.Clock
	delays Delays
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the clock used for pauses. Defaults to the store's clock.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithDelays overrides the step pauses.
func WithDelays(d Delays) Option {
	return func(r *Runner) { r.delays = d }
}

// NewRunner returns a Runner for store.
func NewRunner(store *market.Store, opts ...Option) *Runner {
	r := &Runner{store: store, clock: store.Clock(), delays: DefaultDelays()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Delays returns the configured pauses.
func (r *Runner) Delays() Delays { return r.delays }

// Run executes the script and blocks until it finishes or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (models.ScenarioSummary, error) {
	if !r.store.BeginSimulation() {
		return models.ScenarioSummary{}, ErrAlreadyRunning
	}
	return r.run(ctx)
}

// Start claims the simulation flag and runs the script in a new goroutine.
// The returned channel receives exactly one Outcome.
func (r *Runner) Start(ctx context.Context) (<-chan Outcome, error) {
	if !r.store.BeginSimulation() {
		return nil, ErrAlreadyRunning
	}
	ch := make(chan Outcome, 1)
	go func() {
		sum, err := r.run(ctx)
		ch <- Outcome{Summary: sum, Err: err}
	}()
	return ch, nil
}

func (r *Runner) run(ctx context.Context) (sum models.ScenarioSummary, err error) {
	defer r.store.EndSimulation()
	sum.StartedAt = r.clock.Now().UTC()
	slog.Info("scenario started")
	defer func() {
		if err != nil {
			slog.Warn("scenario aborted", "err", err)
			return
		}
		slog.Info("scenario finished", "restocked", sum.Restocked, "prices_adjusted", sum.PricesAdjusted, "queries_resolved", sum.QueriesResolved)
	}()

	if err = r.log(models.AgentInventory, "SCAN", "Initiating automated inventory scan...", models.LogInfo); err != nil {
		return sum, err
	}
	if err = r.wait(ctx, r.delays.Scan); err != nil {
		return sum, err
	}
	if sum.Restocked, err = r.restock(ctx); err != nil {
		return sum, err
	}
	if err = r.wait(ctx, r.delays.BeforePricing); err != nil {
		return sum, err
	}

	if err = r.log(models.AgentPricing, "ANALYZE", "Analyzing demand patterns and market conditions...", models.LogInfo); err != nil {
		return sum, err
	}
	if err = r.wait(ctx, r.delays.Analyze); err != nil {
		return sum, err
	}
	for _, level := range []string{models.DemandHigh, models.DemandLow} {
		adjusted, err := r.reprice(ctx, level)
		if err != nil {
			return sum, err
		}
		if adjusted {
			sum.PricesAdjusted++
		}
	}
	if err = r.wait(ctx, r.delays.BeforeCustomer); err != nil {
		return sum, err
	}

	if err = r.log(models.AgentCustomer, "PROCESS", "Processing incoming customer queries...", models.LogInfo); err != nil {
		return sum, err
	}
	for i, q := range ScriptedQueries {
		pause := r.delays.FirstQuery
		if i > 0 {
			pause = r.delays.SecondQuery
		}
		if err = r.wait(ctx, pause); err != nil {
			return sum, err
		}
		added, err := r.store.AddQuery(q)
		if err != nil {
			return sum, fmt.Errorf("add scripted query: %w", err)
		}
		if added.Status == models.QueryResolved {
			sum.QueriesResolved++
		}
	}
	if err = r.wait(ctx, r.delays.Summary); err != nil {
		return sum, err
	}

	details := fmt.Sprintf("Demo complete: %d items restocked, %d prices optimized, %d queries resolved",
		sum.Restocked, sum.PricesAdjusted, sum.QueriesResolved)
	if err = r.log(models.AgentInventory, "SUMMARY", details, models.LogSuccess); err != nil {
		return sum, err
	}
	sum.FinishedAt = r.clock.Now().UTC()
	return sum, nil
}

// restock reorders every product below its threshold, re-reading each one
// just before its purchase order so concurrent edits are honored.
func (r *Runner) restock(ctx context.Context) (int, error) {
	var low []string
	for _, p := range r.store.Products() {
		if p.BelowThreshold() {
			low = append(low, p.ID)
		}
	}
	if len(low) == 0 {
		return 0, nil
	}
	if err := r.log(models.AgentInventory, "ALERT", fmt.Sprintf("Detected %d item(s) below reorder threshold", len(low)), models.LogWarning); err != nil {
		return 0, err
	}
	if err := r.wait(ctx, r.delays.Alert); err != nil {
		return 0, err
	}
	restocked := 0
	for _, id := range low {
		p, err := r.store.Product(id)
		switch {
		case errors.Is(err, market.ErrProductNotFound):
			continue
		case err != nil:
			return restocked, err
		}
		qty := pricing.RestockQuantity(p.ReorderLevel)
		if p.BelowThreshold() && qty > 0 {
			if _, err := r.store.ReorderProduct(id, qty); err != nil {
				return restocked, fmt.Errorf("reorder %s: %w", id, err)
			}
			restocked++
		}
		if err := r.wait(ctx, r.delays.Reorder); err != nil {
			return restocked, err
		}
	}
	return restocked, nil
}

// reprice adjusts the first product of the given demand level that is still
// at its base price.
func (r *Runner) reprice(ctx context.Context, level string) (bool, error) {
	for _, p := range r.store.Products() {
		if p.DemandLevel != level || !pricing.AtBasePrice(p) {
			continue
		}
		if _, err := r.store.AdjustPrice(p.ID, level); err != nil {
			return false, fmt.Errorf("adjust %s: %w", p.ID, err)
		}
		return true, r.wait(ctx, r.delays.Adjust)
	}
	return false, nil
}

func (r *Runner) log(agent, action, details, status string) error {
	_, err := r.store.AddAgentLog(models.AgentLog{Agent: agent, Action: action, Details: details, Status: status})
	return err
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
