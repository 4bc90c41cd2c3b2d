package market

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	n := 0
	ids := WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	return NewStore(SeedCatalog(), append([]Option{ids, WithClock(clock.NewMock())}, opts...)...)
}

func TestNewStore_seed(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ps := s.Products()
	require.Len(t, ps, 8)
	assert.Equal(t, "Milk", ps[0].Name)
	assert.Empty(t, s.Queries())
	assert.Empty(t, s.Logs())
	assert.False(t, s.Simulating())
}

func TestNewStore_dropsDuplicateIDs(t *testing.T) {
	t.Parallel()
	s := NewStore([]models.Product{{ID: "a", Name: "first"}, {ID: "a", Name: "second"}})
	require.Len(t, s.Products(), 1)
	p, err := s.Product("a")
	require.NoError(t, err)
	assert.Equal(t, "first", p.Name)
}

func TestReorderProduct(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	p, err := s.ReorderProduct("6", 120)
	require.NoError(t, err)
	assert.Equal(t, 165, p.Stock)

	logs := s.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AgentInventory, logs[0].Agent)
	assert.Equal(t, "REORDER", logs[0].Action)
	assert.Equal(t, models.LogSuccess, logs[0].Status)
	assert.Equal(t, "Reordered 120 units of Apples. New stock: 165", logs[0].Details)
}

func TestReorderProduct_overflow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	before := len(s.Logs())
	_, err := s.ReorderProduct("6", math.MaxInt)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	p, err := s.Product("6")
	require.NoError(t, err)
	assert.Equal(t, 45, p.Stock)
	assert.Len(t, s.Logs(), before)

	_, err = s.ReorderProduct("6", math.MaxInt-45)
	require.NoError(t, err)
	_, err = s.ReorderProduct("6", 1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReorderProduct_rejects(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.ReorderProduct("6", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.ReorderProduct("missing", 10)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, s.Logs())
	p, _ := s.Product("6")
	assert.Equal(t, 45, p.Stock)
}

func TestAdjustPrice_idempotentAndFromBase(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for _, p := range SeedCatalog() {
		for _, level := range []string{models.DemandLow, models.DemandMedium, models.DemandHigh} {
			once, err := s.AdjustPrice(p.ID, level)
			require.NoError(t, err)
			twice, err := s.AdjustPrice(p.ID, level)
			require.NoError(t, err)
			assert.Equal(t, once.CurrentPrice, twice.CurrentPrice)
			assert.Equal(t, level, twice.DemandLevel)
		}
		_, _ = s.AdjustPrice(p.ID, models.DemandHigh)
		_, _ = s.AdjustPrice(p.ID, models.DemandLow)
		last, err := s.AdjustPrice(p.ID, models.DemandHigh)
		require.NoError(t, err)
		single := NewStore(SeedCatalog())
		want, _ := single.AdjustPrice(p.ID, models.DemandHigh)
		assert.Equal(t, want.CurrentPrice, last.CurrentPrice, p.Name)
		assert.Equal(t, p.BasePrice, last.BasePrice)
	}
}

func TestAdjustPrice_milkHigh(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	p, err := s.AdjustPrice("1", models.DemandHigh)
	require.NoError(t, err)
	assert.Equal(t, 4.03, p.CurrentPrice)
	assert.Equal(t, 3.50, p.BasePrice)

	l := s.Logs()[0]
	assert.Equal(t, "PRICE_ADJUST", l.Action)
	assert.Equal(t, models.LogSuccess, l.Status)
	assert.Equal(t, "Milk: $3.50 → $4.03 (high demand)", l.Details)
}

func TestAdjustPrice_logStatus(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.AdjustPrice("4", models.DemandLow)
	require.NoError(t, err)
	assert.Equal(t, models.LogWarning, s.Logs()[0].Status)
	_, err = s.AdjustPrice("4", models.DemandMedium)
	require.NoError(t, err)
	assert.Equal(t, models.LogInfo, s.Logs()[0].Status)
	_, err = s.AdjustPrice("4", "surge")
	assert.ErrorIs(t, err, ErrInvalidDemand)
}

func TestSetPrice(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	p, err := s.SetPrice("2", 2.99)
	require.NoError(t, err)
	assert.Equal(t, 2.99, p.CurrentPrice)
	assert.Equal(t, models.DemandHigh, p.DemandLevel)
	l := s.Logs()[0]
	assert.Equal(t, "MANUAL_PRICE", l.Action)
	assert.Equal(t, models.LogInfo, l.Status)
	assert.Equal(t, "Bread: $2.50 → $2.99 (manual)", l.Details)

	_, err = s.SetPrice("2", -1)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = s.SetPrice("nope", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestApplyPromotion_compounds(t *testing.T) {
	t.Parallel()
	s := NewStore([]models.Product{{ID: "x", Name: "Wine", BasePrice: 10, CurrentPrice: 10, DemandLevel: models.DemandLow, Category: models.CategoryBeverages}})
	p, err := s.ApplyPromotion("x", 10)
	require.NoError(t, err)
	assert.Equal(t, 9.00, p.CurrentPrice)
	p, err = s.ApplyPromotion("x", 10)
	require.NoError(t, err)
	assert.Equal(t, 8.10, p.CurrentPrice)
	assert.Equal(t, "Applied 10% discount to Wine. New price: $8.10", s.Logs()[0].Details)

	_, err = s.ApplyPromotion("x", 101)
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestUpdateStock(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	p, err := s.UpdateStock("8", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, "Chicken: 25 → 10 units", s.Logs()[0].Details)
	_, err = s.UpdateStock("8", -1)
	assert.ErrorIs(t, err, ErrInvalidStock)
}

func TestAddQuery_prependsAndLogs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	q1, err := s.AddQuery(models.CustomerQuery{CustomerName: "Ana", Query: "first", Status: models.QueryResolved})
	require.NoError(t, err)
	q2, err := s.AddQuery(models.CustomerQuery{CustomerName: "Ben", Query: "second"})
	require.NoError(t, err)

	qs := s.Queries()
	require.Len(t, qs, 2)
	assert.Equal(t, q2.ID, qs[0].ID)
	assert.Equal(t, q1.ID, qs[1].ID)
	assert.Equal(t, models.QueryPending, qs[0].Status)
	assert.Equal(t, models.QueryTypeGeneral, qs[0].QueryType)

	logs := s.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogWarning, logs[0].Status)
	assert.Equal(t, models.LogSuccess, logs[1].Status)
	assert.Equal(t, `From Ben: "second..."`, logs[0].Details)
}

func TestAddQuery_previewTruncates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	long := ""
	for i := 0; i < 80; i++ {
		long += "é"
	}
	_, err := s.AddQuery(models.CustomerQuery{CustomerName: "Zoë", Query: long})
	require.NoError(t, err)
	want := `From Zoë: "` + long[:100] + `..."`
	assert.Equal(t, want, s.Logs()[0].Details)
}

func TestAddQuery_rejectsInvalid(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.AddQuery(models.CustomerQuery{CustomerName: "Ana", Query: "x", Status: "closed"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = s.AddQuery(models.CustomerQuery{CustomerName: " ", Query: "x"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Empty(t, s.Queries())
}

func TestResolveQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	q, err := s.AddQuery(models.CustomerQuery{CustomerName: "Ana", Query: "x"})
	require.NoError(t, err)
	got, err := s.ResolveQuery(q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueryResolved, got.Status)
	again, err := s.ResolveQuery(q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueryResolved, again.Status)
	_, err = s.ResolveQuery("missing")
	assert.ErrorIs(t, err, ErrQueryNotFound)
}

func TestLogTape_boundedNewestFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	for i := 0; i < 120; i++ {
		_, err := s.AddAgentLog(models.AgentLog{Agent: models.AgentInventory, Action: "TICK", Details: fmt.Sprint(i)})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(s.Logs()), models.DefaultLogCapacity)
	}
	logs := s.Logs()
	require.Len(t, logs, models.DefaultLogCapacity)
	assert.Equal(t, "119", logs[0].Details)
	assert.Equal(t, "70", logs[len(logs)-1].Details)
}

func TestAddAgentLog_validates(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.AddAgentLog(models.AgentLog{Agent: "robot"})
	assert.ErrorIs(t, err, ErrInvalidLog)
	_, err = s.AddAgentLog(models.AgentLog{Agent: models.AgentPricing, Status: "meh"})
	assert.ErrorIs(t, err, ErrInvalidLog)
	l, err := s.AddAgentLog(models.AgentLog{Agent: models.AgentPricing, Action: "NOTE"})
	require.NoError(t, err)
	assert.Equal(t, models.LogInfo, l.Status)
	assert.NotEmpty(t, l.ID)
}

func TestTimestampsFromClock(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s := NewStore(SeedCatalog(), WithClock(mock))
	l, err := s.AddAgentLog(models.AgentLog{Agent: models.AgentCustomer, Action: "X"})
	require.NoError(t, err)
	assert.Equal(t, mock.Now().UTC(), l.Timestamp)
}

func TestSimulationFlag(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	assert.True(t, s.BeginSimulation())
	assert.False(t, s.BeginSimulation())
	assert.True(t, s.Simulating())
	assert.ErrorIs(t, s.SetSimulating(false), ErrSimulationRunning)
	_, err := s.ToggleSimulating()
	assert.ErrorIs(t, err, ErrSimulationRunning)
	assert.True(t, s.Simulating())
	s.EndSimulation()
	assert.False(t, s.Simulating())
	assert.True(t, s.BeginSimulation())
}

func TestToggleSimulating(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	on, err := s.ToggleSimulating()
	require.NoError(t, err)
	assert.True(t, on)
	// A manual flag blocks runs but can be cleared again.
	assert.False(t, s.BeginSimulation())
	require.NoError(t, s.SetSimulating(false))
	on, err = s.ToggleSimulating()
	require.NoError(t, err)
	assert.True(t, on)
	on, err = s.ToggleSimulating()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSubscribe_ordersEvents(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var got []string
	unsubscribe := s.Subscribe(func(ev Event) {
		got = append(got, ev.Type)
		// Reading inside a listener must not deadlock.
		_ = s.Products()
	})
	_, _ = s.ReorderProduct("1", 5)
	_, _ = s.AddQuery(models.CustomerQuery{CustomerName: "A", Query: "hours?"})
	require.NoError(t, s.SetSimulating(true))
	require.NoError(t, s.SetSimulating(true))
	unsubscribe()
	_, _ = s.ReorderProduct("1", 5)

	assert.Equal(t, []string{EventProduct, EventLog, EventQuery, EventLog, EventSimulation}, got)
}

func TestConcurrentMutations(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mu sync.Mutex
	events := 0
	s.Subscribe(func(Event) {
		mu.Lock()
		events++
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ReorderProduct("3", 1)
		}()
	}
	wg.Wait()
	p, _ := s.Product("3")
	assert.Equal(t, 320, p.Stock)
	assert.Equal(t, 40, events)
	assert.Len(t, s.Logs(), 20)
}

func TestWithHistory(t *testing.T) {
	t.Parallel()
	logs := make([]models.AgentLog, 60)
	for i := range logs {
		logs[i] = models.AgentLog{ID: fmt.Sprint(i)}
	}
	s := NewStore(SeedCatalog(), WithLogs(logs), WithQueries([]models.CustomerQuery{{ID: "q1"}}))
	assert.Len(t, s.Logs(), models.DefaultLogCapacity)
	assert.Equal(t, "0", s.Logs()[0].ID)
	_, err := s.Query("q1")
	require.NoError(t, err)
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `products:
  - id: "101"
    name: Salmon
    category: Seafood
    stock: 40
    reorder_level: 20
    demand_forecast: 18
    base_price: 12.99
    demand_level: medium
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	ps, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, 12.99, ps[0].CurrentPrice)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("products:\n  - id: x\n    name: X\n    category: Toys\n    demand_level: low\n"), 0o644))
	_, err = LoadCatalog(bad)
	require.Error(t, err)
}

func TestSeedCatalog_valid(t *testing.T) {
	t.Parallel()
	for _, p := range SeedCatalog() {
		require.NoError(t, ValidateProduct(p))
	}
}
