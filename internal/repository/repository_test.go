package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/graph"
)

func TestRepository_UpsertUsers(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.PushWriteResult(graph.Result{Summary: graph.Summary{NodesCreated: 2, PropertiesSet: 12}})
	repo := New(mem)

	users := []domain.UserSnapshot{
		{ID: 1, Friends: 1, OwnPurchases: 2, NetworkPurchases: 1, NetworkMean: 12.5},
		{ID: 2, Friends: 1, OwnPurchases: 1, NetworkPurchases: 2, NetworkMean: 17.5, NetworkStdDev: 2.5},
	}

	summary, err := repo.UpsertUsers(context.Background(), "run-1", users)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.NodesCreated != 2 {
		t.Errorf("expected 2 nodes created, got %d", summary.NodesCreated)
	}

	calls := mem.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write query, got %d", len(calls))
	}
	call := calls[0]
	if call.Query != upsertUsersCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", upsertUsersCypher, call.Query)
	}
	if call.Params["runId"] != "run-1" {
		t.Errorf("expected runId run-1, got %v", call.Params["runId"])
	}

	rows, ok := call.Params["rows"].([]map[string]any)
	if !ok || len(rows) != len(users) {
		t.Fatalf("expected rows slice of len %d got %T (len=%d)", len(users), call.Params["rows"], len(rows))
	}
	if rows[1]["userId"] != int64(2) {
		t.Errorf("userId should be sent as int64, got %T %v", rows[1]["userId"], rows[1]["userId"])
	}
	if rows[1]["networkStdDev"] != 2.5 {
		t.Errorf("networkStdDev mismatch: got %v", rows[1]["networkStdDev"])
	}
}

func TestRepository_UpsertFriendshipsAndPrune(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)
	ctx := context.Background()

	if _, err := repo.UpsertFriendships(ctx, "run-2", []domain.Edge{{A: 1, B: 2}, {A: 2, B: 5}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := repo.PruneFriendships(ctx, "run-2"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.WriteCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 write queries, got %d", len(calls))
	}
	rows := calls[0].Params["rows"].([]map[string]any)
	if rows[1]["a"] != int64(2) || rows[1]["b"] != int64(5) {
		t.Errorf("unexpected edge row %v", rows[1])
	}
	if calls[1].Query != pruneFriendshipsCypher || calls[1].Params["runId"] != "run-2" {
		t.Errorf("unexpected prune call %+v", calls[1])
	}
}

func TestRepository_RecordFlagged(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	ts := time.Date(2017, 6, 13, 11, 33, 2, 0, time.UTC)
	flagged := []domain.FlaggedPurchase{{
		Purchase: domain.Purchase{UserID: 2, Amount: 1601.83, Timestamp: ts},
		Mean:     29.1,
		StdDev:   14.27,
	}}

	if _, err := repo.RecordFlagged(context.Background(), "run-3", flagged); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rows := mem.WriteCalls()[0].Params["rows"].([]map[string]any)
	if rows[0]["timestamp"] != "2017-06-13 11:33:02" {
		t.Errorf("timestamp should use the log layout, got %v", rows[0]["timestamp"])
	}
	if rows[0]["amount"] != 1601.83 {
		t.Errorf("amount mismatch: got %v", rows[0]["amount"])
	}
}

func TestRepository_EmptyBatchesSkipWrites(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)
	ctx := context.Background()

	if _, err := repo.UpsertUsers(ctx, "run", nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := repo.UpsertFriendships(ctx, "run", nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := repo.RecordFlagged(ctx, "run", nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if n := len(mem.WriteCalls()); n != 0 {
		t.Fatalf("expected no writes, got %d", n)
	}
}

func TestRepository_Errors(t *testing.T) {
	boom := errors.New("boom")
	repo := New(graph.NewMemoryClient().WithError(boom))
	ctx := context.Background()

	if _, err := repo.UpsertUsers(ctx, "", []domain.UserSnapshot{{ID: 1}}); !errors.Is(err, ErrMissingRunID) {
		t.Fatalf("expected ErrMissingRunID, got %v", err)
	}
	if _, err := repo.UpsertFriendships(ctx, "run", []domain.Edge{{A: 1, B: 2}}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
	if err := repo.PruneFriendships(ctx, "run"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}
