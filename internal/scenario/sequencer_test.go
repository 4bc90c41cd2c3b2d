package scenario

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instant(store *market.Store) *Runner {
	return NewRunner(store, WithDelays(Delays{}))
}

func TestRun_endToEnd(t *testing.T) {
	t.Parallel()
	store := market.NewStore(market.SeedCatalog())
	sum, err := instant(store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Restocked)
	assert.Equal(t, 2, sum.PricesAdjusted)
	assert.Equal(t, 2, sum.QueriesResolved)
	assert.False(t, store.Simulating())

	apples, err := store.Product("6")
	require.NoError(t, err)
	assert.Equal(t, 165, apples.Stock)
	chicken, _ := store.Product("8")
	assert.Equal(t, 85, chicken.Stock)

	bread, _ := store.Product("2")
	assert.Equal(t, 2.88, bread.CurrentPrice)
	cheese, _ := store.Product("4")
	assert.Equal(t, 5.10, cheese.CurrentPrice)

	qs := store.Queries()
	require.Len(t, qs, 2)
	assert.Equal(t, "delivery", qs[0].QueryType)
	assert.Equal(t, "return_policy", qs[1].QueryType)
	for _, q := range qs {
		assert.Equal(t, models.QueryResolved, q.Status)
	}

	logs := store.Logs()
	var actions []string
	for i := len(logs) - 1; i >= 0; i-- {
		actions = append(actions, logs[i].Action)
	}
	assert.Equal(t, []string{
		"SCAN", "ALERT", "REORDER", "REORDER",
		"ANALYZE", "PRICE_ADJUST", "PRICE_ADJUST",
		"PROCESS", "QUERY_RECEIVED", "QUERY_RECEIVED",
		"SUMMARY",
	}, actions)
	assert.Equal(t, "Demo complete: 2 items restocked, 2 prices optimized, 2 queries resolved", logs[0].Details)
	assert.Equal(t, models.LogSuccess, logs[0].Status)
	assert.Equal(t, "Detected 2 item(s) below reorder threshold", logs[len(logs)-2].Details)
}

func TestRun_secondRunFindsNothingToDo(t *testing.T) {
	t.Parallel()
	store := market.NewStore(market.SeedCatalog())
	r := instant(store)
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Restocked)
	// Yogurt is the next high-demand product still at base price; no low one is left.
	assert.Equal(t, 1, sum.PricesAdjusted)
	assert.Len(t, store.Queries(), 4)
	assert.True(t, strings.HasPrefix(store.Logs()[0].Details, "Demo complete: 0 items restocked, 1 prices optimized"))
}

func TestRun_alreadyRunning(t *testing.T) {
	t.Parallel()
	store := market.NewStore(market.SeedCatalog())
	require.True(t, store.BeginSimulation())
	_, err := instant(store).Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.True(t, store.Simulating())
	assert.Empty(t, store.Logs())
}

func TestRun_cancelledResetsFlag(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	store := market.NewStore(market.SeedCatalog(), market.WithClock(mock))
	r := NewRunner(store)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := r.Start(ctx)
	require.NoError(t, err)
	cancel()

	res := <-out
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, store.Simulating())
	for _, l := range store.Logs() {
		assert.NotEqual(t, "SUMMARY", l.Action)
	}
}

func TestStart_toggleCannotReleaseRun(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	store := market.NewStore(market.SeedCatalog(), market.WithClock(mock))
	r := NewRunner(store)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := r.Start(ctx)
	require.NoError(t, err)

	_, err = store.ToggleSimulating()
	assert.ErrorIs(t, err, market.ErrSimulationRunning)
	assert.ErrorIs(t, store.SetSimulating(false), market.ErrSimulationRunning)
	_, err = r.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	res := <-out
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, store.Simulating())
	_, err = store.ToggleSimulating()
	assert.NoError(t, err)
}

func TestRun_mockClockPacing(t *testing.T) {
	t.Parallel()
	mock := clock.NewMock()
	store := market.NewStore(market.SeedCatalog(), market.WithClock(mock))
	r := NewRunner(store)
	start := mock.Now()

	out, err := r.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, store.Simulating())

	var res Outcome
	for done := false; !done; {
		select {
		case res = <-out:
			done = true
		default:
			mock.Add(100 * time.Millisecond)
		}
	}
	require.NoError(t, res.Err)
	assert.False(t, store.Simulating())
	elapsed := mock.Now().Sub(start)
	assert.GreaterOrEqual(t, elapsed, DefaultDelays().Total(2, 2))
	assert.Equal(t, 2, res.Summary.Restocked)
}

func TestRun_skipsProductRestockedMeanwhile(t *testing.T) {
	t.Parallel()
	store := market.NewStore(market.SeedCatalog())
	mock := clock.NewMock()
	r := NewRunner(store, WithClock(mock))
	out, err := r.Start(context.Background())
	require.NoError(t, err)

	// Wait for the alert, then top up Chicken by hand before its turn comes.
	for {
		logs := store.Logs()
		if len(logs) > 0 && logs[0].Action == "ALERT" {
			break
		}
		mock.Add(10 * time.Millisecond)
	}
	_, err = store.UpdateStock("8", 500)
	require.NoError(t, err)

	var res Outcome
	for done := false; !done; {
		select {
		case res = <-out:
			done = true
		default:
			mock.Add(100 * time.Millisecond)
		}
	}
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Summary.Restocked)
	chicken, _ := store.Product("8")
	assert.Equal(t, 500, chicken.Stock)
}

func TestDelaysTotal(t *testing.T) {
	t.Parallel()
	d := DefaultDelays()
	assert.Equal(t, 13100*time.Millisecond, d.Total(2, 2))
	assert.Equal(t, 8900*time.Millisecond, d.Total(0, 0))
}
