package export

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/graph"
	"github.com/vanshika/netpurchase/internal/repository"
)

type stubStore struct {
	mu       sync.Mutex
	stages   []string
	userErr  error
	edgeErr  error
	pruned   bool
	batches  []int
	flagRuns []string
}

func (s *stubStore) record(stage string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stage)
	s.batches = append(s.batches, n)
}

func (s *stubStore) UpsertUsers(_ context.Context, _ string, users []domain.UserSnapshot) (graph.Summary, error) {
	if s.userErr != nil {
		return graph.Summary{}, s.userErr
	}
	s.record(StageUsers, len(users))
	return graph.Summary{NodesCreated: len(users)}, nil
}

func (s *stubStore) UpsertFriendships(_ context.Context, _ string, edges []domain.Edge) (graph.Summary, error) {
	if s.edgeErr != nil {
		return graph.Summary{}, s.edgeErr
	}
	s.record(StageEdges, len(edges))
	return graph.Summary{RelationshipsCreated: len(edges)}, nil
}

func (s *stubStore) PruneFriendships(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned = true
	return nil
}

func (s *stubStore) RecordFlagged(_ context.Context, runID string, flagged []domain.FlaggedPurchase) (graph.Summary, error) {
	s.record(StageFlagged, len(flagged))
	s.mu.Lock()
	s.flagRuns = append(s.flagRuns, runID)
	s.mu.Unlock()
	return graph.Summary{NodesCreated: len(flagged)}, nil
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingRecorder) RecordExported(stage string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[stage] += n
}

func dataset(users, edges, flagged int) Dataset {
	var ds Dataset
	for i := 0; i < users; i++ {
		ds.Users = append(ds.Users, domain.UserSnapshot{ID: domain.UserID(i + 1)})
	}
	for i := 0; i < edges; i++ {
		ds.Edges = append(ds.Edges, domain.Edge{A: domain.UserID(i + 1), B: domain.UserID(i + 2)})
	}
	for i := 0; i < flagged; i++ {
		ds.Flagged = append(ds.Flagged, domain.FlaggedPurchase{Purchase: domain.Purchase{UserID: 1, Amount: float64(i)}})
	}
	return ds
}

func TestExporterChunksAndOrdersStages(t *testing.T) {
	store := &stubStore{}
	counter := &countingRecorder{}
	exp := New(store, 3, 4, WithCounter(counter))

	report, err := exp.Export(context.Background(), "run-1", dataset(10, 5, 2))
	require.NoError(t, err)

	assert.Equal(t, 10, report.Users)
	assert.Equal(t, 5, report.Edges)
	assert.Equal(t, 2, report.Flagged)
	assert.Equal(t, 12, report.Summary.NodesCreated)
	assert.Equal(t, 5, report.Summary.RelationshipsCreated)
	assert.True(t, store.pruned)
	assert.Equal(t, map[string]int{StageUsers: 10, StageEdges: 5, StageFlagged: 2}, counter.counts)

	// users 4+4+2, edges 4+1, flagged 2; stages never interleave
	require.Len(t, store.stages, 6)
	assert.Equal(t, []string{StageUsers, StageUsers, StageUsers}, store.stages[:3])
	assert.Equal(t, []string{StageEdges, StageEdges}, store.stages[3:5])
	assert.Equal(t, StageFlagged, store.stages[5])

	userBatches := append([]int(nil), store.batches[:3]...)
	sort.Ints(userBatches)
	assert.Equal(t, []int{2, 4, 4}, userBatches)
	assert.Equal(t, []string{"run-1"}, store.flagRuns)
}

func TestExporterAggregatesErrors(t *testing.T) {
	store := &stubStore{userErr: errors.New("boom")}
	exp := New(store, 2, 1)

	_, err := exp.Export(context.Background(), "run", dataset(2, 1, 1))
	require.Error(t, err)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Len(t, taskErr.Errors, 2)
	assert.Contains(t, err.Error(), "multiple errors")
	assert.Empty(t, store.stages)
}

func TestExporterSkipsPruneWhenFriendshipsFail(t *testing.T) {
	boom := errors.New("edge write failed")
	store := &stubStore{edgeErr: boom}
	exp := New(store, 1, 10)

	_, err := exp.Export(context.Background(), "run", dataset(1, 3, 1))
	require.ErrorIs(t, err, boom)
	assert.False(t, store.pruned)
	assert.NotContains(t, store.stages, StageFlagged)
}

func TestExporterHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&stubStore{}, 2, 1).Export(ctx, "run", dataset(5, 0, 0))
	require.ErrorIs(t, err, context.Canceled)
}

func TestExporterWithRepository(t *testing.T) {
	mem := graph.NewMemoryClient()
	exp := New(repository.New(mem), 2, 100)

	_, err := exp.Export(context.Background(), "run-9", dataset(3, 2, 1))
	require.NoError(t, err)

	// users, friendships, prune, flagged
	calls := mem.WriteCalls()
	require.Len(t, calls, 4)
	for _, call := range calls {
		assert.Equal(t, "run-9", call.Params["runId"])
	}
}

func TestChunks(t *testing.T) {
	assert.Empty(t, chunks(0, 3))
	assert.Equal(t, []span{{0, 3}, {3, 6}, {6, 7}}, chunks(7, 3))
}
