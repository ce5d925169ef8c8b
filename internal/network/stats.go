package network

import (
	"fmt"
	"sort"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/history"
)

// RecomputeNetworkHistory rebuilds the observed window of id from the own
// purchases of every user in its network, keeping the latest Window entries.
func (g *Graph) RecomputeNetworkHistory(id domain.UserID) error {
	u, ok := g.users[id]
	if !ok {
		return fmt.Errorf("recompute network history for %d: %w", id, ErrUnknownUser)
	}

	var entries []history.Entry
	for n := range g.Network(id) {
		if member, ok := g.users[n]; ok {
			entries = append(entries, member.Own.Entries()...)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })

	observed := history.NewWindow(g.params.Window)
	for _, e := range entries {
		observed.Append(e)
	}
	u.Observed = observed
	return nil
}

// RecomputeStats refreshes the mean and standard deviation of id from its
// current observed window.
func (g *Graph) RecomputeStats(id domain.UserID) error {
	u, ok := g.users[id]
	if !ok {
		return fmt.Errorf("recompute stats for %d: %w", id, ErrUnknownUser)
	}
	u.Mean, u.StdDev = u.Observed.Stats()
	return nil
}

// RecomputeAll rebuilds the observed window of id and then its statistics.
func (g *Graph) RecomputeAll(id domain.UserID) error {
	if err := g.RecomputeNetworkHistory(id); err != nil {
		return err
	}
	return g.RecomputeStats(id)
}
