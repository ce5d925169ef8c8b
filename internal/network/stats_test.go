package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/history"
)

func TestRecomputeNetworkHistory_KeepsLatestEntries(t *testing.T) {
	g := newTestGraph(t, 2, 1)
	befriendAll(t, g, [2]domain.UserID{1, 2}, [2]domain.UserID{1, 3})
	buy(g, 2, 10, 1)
	buy(g, 3, 15, 2)
	buy(g, 2, 20, 3)
	buy(g, 1, 500, 4)

	require.NoError(t, g.RecomputeAll(1))

	u, _ := g.User(1)
	assert.Equal(t, []float64{15, 20}, u.Observed.Amounts())
	assert.InDelta(t, 17.5, u.Mean, 1e-9)
	assert.InDelta(t, 2.5, u.StdDev, 1e-9)
}

func TestRecomputeNetworkHistory_KeepsIdenticalEntriesFromDifferentUsers(t *testing.T) {
	g := newTestGraph(t, 3, 1)
	befriendAll(t, g, [2]domain.UserID{1, 2}, [2]domain.UserID{1, 3})
	buy(g, 2, 10, 1)
	buy(g, 3, 10, 1)

	require.NoError(t, g.RecomputeNetworkHistory(1))

	u, _ := g.User(1)
	assert.Equal(t, []float64{10, 10}, u.Observed.Amounts())
}

func TestRecomputeNetworkHistory_OrdersTiesByArrival(t *testing.T) {
	g := newTestGraph(t, 2, 1)
	befriendAll(t, g, [2]domain.UserID{1, 2}, [2]domain.UserID{1, 3})
	g.users[2].Own = newWindowWith(2, history.Entry{Amount: 20, Timestamp: baseTime, Seq: 6})
	g.users[3].Own = newWindowWith(2, history.Entry{Amount: 30, Timestamp: baseTime, Seq: 5})

	require.NoError(t, g.RecomputeNetworkHistory(1))

	u, _ := g.User(1)
	assert.Equal(t, []float64{30, 20}, u.Observed.Amounts())
}

func TestRecompute_IsDeterministic(t *testing.T) {
	g := newTestGraph(t, 3, 2)
	befriendAll(t, g,
		[2]domain.UserID{1, 2},
		[2]domain.UserID{2, 3},
		[2]domain.UserID{3, 4},
		[2]domain.UserID{2, 4},
	)
	for i, id := range []domain.UserID{2, 3, 4, 3, 4, 2} {
		buy(g, id, float64(10*(i+1)), i+1)
	}

	require.NoError(t, g.RecomputeAll(1))
	u, _ := g.User(1)
	first := u.Observed.Entries()
	mean, sd := u.Mean, u.StdDev

	require.NoError(t, g.RecomputeAll(1))
	u, _ = g.User(1)
	assert.Equal(t, first, u.Observed.Entries())
	assert.Equal(t, mean, u.Mean)
	assert.Equal(t, sd, u.StdDev)
}

func TestRecomputeStats_EmptyHistoryIsZero(t *testing.T) {
	g := newTestGraph(t, 2, 1)
	g.AddUser(1)

	require.NoError(t, g.RecomputeAll(1))
	u, _ := g.User(1)
	assert.Zero(t, u.Mean)
	assert.Zero(t, u.StdDev)
}

func TestRecompute_UnknownUser(t *testing.T) {
	g := newTestGraph(t, 2, 1)
	require.ErrorIs(t, g.RecomputeNetworkHistory(9), ErrUnknownUser)
	require.ErrorIs(t, g.RecomputeStats(9), ErrUnknownUser)
	require.ErrorIs(t, g.RecomputeAll(9), ErrUnknownUser)
}

func TestRecompute_RaisingAnAmountNeverLowersTheMean(t *testing.T) {
	build := func(amount float64) *Graph {
		g := newTestGraph(t, 3, 1)
		befriendAll(t, g, [2]domain.UserID{1, 2}, [2]domain.UserID{1, 3})
		buy(g, 2, 5, 1)
		buy(g, 3, amount, 2)
		buy(g, 2, 40, 3)
		require.NoError(t, g.RecomputeAll(1))
		return g
	}

	prev := build(0)
	for _, amount := range []float64{1, 12.5, 50, 1000} {
		next := build(amount)
		pu, _ := prev.User(1)
		nu, _ := next.User(1)
		assert.GreaterOrEqual(t, nu.Mean, pu.Mean, "amount %v", amount)
		prev = next
	}
}
