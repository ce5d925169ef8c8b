package network

import "github.com/vanshika/netpurchase/internal/domain"

// Neighborhood expands from id for depth hops and returns the ids found,
// excluding id itself.
//
// In frontier mode each hop replaces the frontier with the neighbors of the
// previous frontier, so the result holds the nodes reachable by a walk of
// exactly depth hops. Cycles can bring closer nodes back into the frontier.
// In cumulative mode every hop's frontier is kept.
func (g *Graph) Neighborhood(id domain.UserID, depth int) Set {
	frontier := Set{id: {}}
	seen := make(Set)

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		next := make(Set)
		for n := range frontier {
			next.union(g.adj[n])
		}
		frontier = next
		if g.params.Reach == ReachCumulative {
			seen.union(next)
		}
	}

	result := frontier
	if g.params.Reach == ReachCumulative {
		result = seen
	}
	delete(result, id)
	return result
}

// Network returns the depth-D neighborhood of id.
func (g *Graph) Network(id domain.UserID) Set {
	return g.Neighborhood(id, g.params.Depth)
}

// CloseNetwork returns the depth-(D-1) neighborhood of id, empty when D is zero.
func (g *Graph) CloseNetwork(id domain.UserID) Set {
	if g.params.Depth == 0 {
		return Set{}
	}
	return g.Neighborhood(id, g.params.Depth-1)
}
