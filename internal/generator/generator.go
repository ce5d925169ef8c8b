package generator

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/netpurchase/internal/domain"
)

// ParamsLine is the first line of a batch log.
type ParamsLine struct {
	D string `json:"D"`
	T string `json:"T"`
}

// Line is one event in the log wire format.
type Line struct {
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id,omitempty"`
	Amount    string `json:"amount,omitempty"`
	ID1       string `json:"id1,omitempty"`
	ID2       string `json:"id2,omitempty"`
}

// Dataset contains a generated batch log, stream log and the number of
// purchases inflated on purpose.
type Dataset struct {
	Params ParamsLine
	Batch  []Line
	Stream []Line
	Spikes int
}

// Generator produces synthetic purchase and friendship logs. Unfriend events
// always name an existing friendship so generated logs replay cleanly.
type Generator struct {
	cfg     Config
	rand    *rand.Rand
	clock   time.Time
	edges   map[domain.Edge]struct{}
	edgeIDs []domain.Edge
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumUsers < 2 {
		cfg.NumUsers = def.NumUsers
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Depth < 0 {
		cfg.Depth = def.Depth
	}
	if cfg.MeanAmount <= 0 {
		cfg.MeanAmount = def.MeanAmount
	}
	if cfg.AmountSpread < 0 {
		cfg.AmountSpread = def.AmountSpread
	}
	if cfg.Start.IsZero() {
		cfg.Start = def.Start
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		clock: cfg.Start,
		edges: make(map[domain.Edge]struct{}),
	}
}

// Generate synthesises both logs. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	ds := Dataset{
		Params: ParamsLine{
			D: strconv.Itoa(g.cfg.Depth),
			T: strconv.Itoa(g.cfg.Window),
		},
		Batch:  make([]Line, 0, g.cfg.BatchFriendships+g.cfg.BatchPurchases),
		Stream: make([]Line, 0, g.cfg.StreamEvents),
	}

	for i := 0; i < g.cfg.BatchFriendships; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		if line, ok := g.befriend(); ok {
			ds.Batch = append(ds.Batch, line)
		}
	}

	for i := 0; i < g.cfg.BatchPurchases; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		ds.Batch = append(ds.Batch, g.event(false, &ds.Spikes))
	}

	for i := 0; i < g.cfg.StreamEvents; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		ds.Stream = append(ds.Stream, g.event(true, &ds.Spikes))
	}

	return ds, nil
}

func (g *Generator) event(stream bool, spikes *int) Line {
	roll := g.rand.Float64()
	switch {
	case roll < g.cfg.UnfriendChance:
		if line, ok := g.unfriend(); ok {
			return line
		}
	case roll < g.cfg.UnfriendChance+g.cfg.BefriendChance:
		if line, ok := g.befriend(); ok {
			return line
		}
	}

	amount := g.normalAmount()
	if stream && g.rand.Float64() < g.cfg.SpikeChance {
		amount = g.cfg.MeanAmount * (20 + 30*g.rand.Float64())
		*spikes++
	}
	return Line{
		EventType: string(domain.KindPurchase),
		Timestamp: g.tick(),
		ID:        strconv.Itoa(g.randomUser()),
		Amount:    decimal.NewFromFloat(amount).StringFixed(2),
	}
}

func (g *Generator) befriend() (Line, bool) {
	a, b := g.randomUser(), g.randomUser()
	if a == b {
		return Line{}, false
	}
	e := canonical(a, b)
	if _, exists := g.edges[e]; exists {
		return Line{}, false
	}
	g.edges[e] = struct{}{}
	g.edgeIDs = append(g.edgeIDs, e)
	return g.friendshipLine(domain.KindBefriend, e), true
}

func (g *Generator) unfriend() (Line, bool) {
	if len(g.edgeIDs) == 0 {
		return Line{}, false
	}
	idx := g.rand.Intn(len(g.edgeIDs))
	e := g.edgeIDs[idx]
	last := len(g.edgeIDs) - 1
	g.edgeIDs[idx] = g.edgeIDs[last]
	g.edgeIDs = g.edgeIDs[:last]
	delete(g.edges, e)
	return g.friendshipLine(domain.KindUnfriend, e), true
}

func (g *Generator) friendshipLine(kind domain.EventKind, e domain.Edge) Line {
	id1, id2 := e.A, e.B
	if g.rand.Intn(2) == 0 {
		id1, id2 = id2, id1
	}
	return Line{
		EventType: string(kind),
		Timestamp: g.tick(),
		ID1:       strconv.FormatInt(int64(id1), 10),
		ID2:       strconv.FormatInt(int64(id2), 10),
	}
}

// tick advances the clock by zero to two seconds, so equal timestamps occur.
func (g *Generator) tick() string {
	g.clock = g.clock.Add(time.Duration(g.rand.Intn(3)) * time.Second)
	return g.clock.Format(domain.TimestampLayout)
}

func (g *Generator) randomUser() int {
	return 1 + g.rand.Intn(g.cfg.NumUsers)
}

func (g *Generator) normalAmount() float64 {
	v := g.cfg.MeanAmount + g.rand.NormFloat64()*g.cfg.AmountSpread
	return math.Max(1, v)
}

func canonical(a, b int) domain.Edge {
	if a > b {
		a, b = b, a
	}
	return domain.Edge{A: domain.UserID(a), B: domain.UserID(b)}
}
