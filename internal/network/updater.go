package network

import "github.com/vanshika/netpurchase/internal/domain"

// Affected returns the users whose network can change when the edge a-b is
// added or removed: both endpoints and their close networks.
func (g *Graph) Affected(a, b domain.UserID) Set {
	set := Set{a: {}, b: {}}
	set.union(g.CloseNetwork(a))
	set.union(g.CloseNetwork(b))
	return set
}

// OnEdgeChange recomputes every user affected by a change to the edge a-b.
// It must be called after the edge has been mutated. The recomputed set is
// returned.
func (g *Graph) OnEdgeChange(a, b domain.UserID) (Set, error) {
	affected := g.Affected(a, b)
	for id := range affected {
		if _, ok := g.users[id]; !ok {
			continue
		}
		if err := g.RecomputeAll(id); err != nil {
			return affected, err
		}
	}
	return affected, nil
}
