// Package network maintains the friendship graph and the per-user purchase
// statistics derived from each user's neighborhood.
//
// A Graph is owned by a single writer. It performs no locking.
package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/history"
)

var (
	// ErrEdgeNotFound is returned when removing a friendship that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrSelfLoop is returned when a user is befriended with itself.
	ErrSelfLoop = errors.New("user cannot befriend itself")
	// ErrUnknownUser is returned for operations on ids the graph has not seen.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidParams is returned by New for out-of-range parameters.
	ErrInvalidParams = errors.New("invalid network parameters")
)

// ReachMode selects how neighborhoods are expanded.
type ReachMode string

const (
	// ReachFrontier keeps only the nodes found on the final hop.
	ReachFrontier ReachMode = "frontier"
	// ReachCumulative keeps every node found on any hop.
	ReachCumulative ReachMode = "cumulative"
)

// Params are fixed for the lifetime of a graph.
type Params struct {
	// Window is the capacity of every purchase window (T).
	Window int
	// Depth is the neighborhood depth in hops (D).
	Depth int
	Reach ReachMode
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if p.Window < 1 {
		return fmt.Errorf("%w: window %d must be positive", ErrInvalidParams, p.Window)
	}
	if p.Depth < 0 {
		return fmt.Errorf("%w: depth %d must not be negative", ErrInvalidParams, p.Depth)
	}
	switch p.Reach {
	case "", ReachFrontier, ReachCumulative:
	default:
		return fmt.Errorf("%w: unknown reach mode %q", ErrInvalidParams, p.Reach)
	}
	return nil
}

// User is a node of the graph together with its purchase statistics.
type User struct {
	ID domain.UserID
	// Own holds the user's most recent purchases.
	Own *history.Window
	// Observed holds the most recent purchases made inside the user's network.
	Observed *history.Window
	// Mean and StdDev summarise Observed as of the last recomputation.
	Mean   float64
	StdDev float64
}

// Set is an unordered collection of user ids.
type Set map[domain.UserID]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id domain.UserID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []domain.UserID {
	ids := make([]domain.UserID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s Set) union(other Set) {
	for id := range other {
		s[id] = struct{}{}
	}
}

func canonical(a, b domain.UserID) domain.Edge {
	if b < a {
		a, b = b, a
	}
	return domain.Edge{A: a, B: b}
}

// Graph stores users by id, the canonical edge set and an adjacency index.
type Graph struct {
	params Params
	users  map[domain.UserID]*User
	edges  map[domain.Edge]struct{}
	adj    map[domain.UserID]Set
}

// New returns an empty graph.
func New(params Params) (*Graph, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Reach == "" {
		params.Reach = ReachFrontier
	}
	return &Graph{
		params: params,
		users:  make(map[domain.UserID]*User),
		edges:  make(map[domain.Edge]struct{}),
		adj:    make(map[domain.UserID]Set),
	}, nil
}

// Params returns the parameters the graph was built with.
func (g *Graph) Params() Params { return g.params }

// User looks up a user by id.
func (g *Graph) User(id domain.UserID) (*User, bool) {
	u, ok := g.users[id]
	return u, ok
}

// AddUser creates the user if it does not exist and returns it.
func (g *Graph) AddUser(id domain.UserID) *User {
	if u, ok := g.users[id]; ok {
		return u
	}
	u := &User{
		ID:       id,
		Own:      history.NewWindow(g.params.Window),
		Observed: history.NewWindow(g.params.Window),
	}
	g.users[id] = u
	return u
}

// AddEdge befriends a and b, creating either user if needed. Adding an
// existing edge is a no-op.
func (g *Graph) AddEdge(a, b domain.UserID) error {
	if a == b {
		return fmt.Errorf("add edge %d-%d: %w", a, b, ErrSelfLoop)
	}
	g.AddUser(a)
	g.AddUser(b)
	g.edges[canonical(a, b)] = struct{}{}
	g.link(a, b)
	g.link(b, a)
	return nil
}

// RemoveEdge unfriends a and b.
func (g *Graph) RemoveEdge(a, b domain.UserID) error {
	key := canonical(a, b)
	if _, ok := g.edges[key]; !ok {
		return fmt.Errorf("remove edge %d-%d: %w", a, b, ErrEdgeNotFound)
	}
	delete(g.edges, key)
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	return nil
}

// HasEdge reports whether a and b are friends.
func (g *Graph) HasEdge(a, b domain.UserID) bool {
	_, ok := g.edges[canonical(a, b)]
	return ok
}

// NeighborsOf returns the direct friends of id. The returned set is a copy.
func (g *Graph) NeighborsOf(id domain.UserID) Set {
	out := make(Set, len(g.adj[id]))
	out.union(g.adj[id])
	return out
}

// UserCount returns the number of users.
func (g *Graph) UserCount() int { return len(g.users) }

// EdgeCount returns the number of friendships.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edges returns every friendship sorted by endpoints.
func (g *Graph) Edges() []domain.Edge {
	out := make([]domain.Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A == out[j].A {
			return out[i].B < out[j].B
		}
		return out[i].A < out[j].A
	})
	return out
}

// Snapshot summarises every user, sorted by id.
func (g *Graph) Snapshot() []domain.UserSnapshot {
	out := make([]domain.UserSnapshot, 0, len(g.users))
	for id, u := range g.users {
		out = append(out, domain.UserSnapshot{
			ID:               id,
			Friends:          len(g.adj[id]),
			OwnPurchases:     u.Own.Len(),
			NetworkPurchases: u.Observed.Len(),
			NetworkMean:      u.Mean,
			NetworkStdDev:    u.StdDev,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Graph) link(from, to domain.UserID) {
	set, ok := g.adj[from]
	if !ok {
		set = make(Set)
		g.adj[from] = set
	}
	set[to] = struct{}{}
}
