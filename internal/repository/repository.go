package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/graph"
)

// ErrMissingRunID is returned when a write is not tagged with a run.
var ErrMissingRunID = errors.New("run id is required")

// Repository encapsulates graph persistence operations.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// UpsertUsers merges one User node per snapshot and refreshes its network
// statistics.
func (r *Repository) UpsertUsers(ctx context.Context, runID string, users []domain.UserSnapshot) (graph.Summary, error) {
	if runID == "" {
		return graph.Summary{}, ErrMissingRunID
	}
	if len(users) == 0 {
		return graph.Summary{}, nil
	}

	rows := make([]map[string]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, map[string]any{
			"userId":           int64(u.ID),
			"friends":          int64(u.Friends),
			"ownPurchases":     int64(u.OwnPurchases),
			"networkPurchases": int64(u.NetworkPurchases),
			"networkMean":      u.NetworkMean,
			"networkStdDev":    u.NetworkStdDev,
		})
	}

	res, err := r.client.ExecuteWrite(ctx, upsertUsersCypher, map[string]any{
		"runId": runID,
		"rows":  rows,
	})
	if err != nil {
		return graph.Summary{}, fmt.Errorf("upsert %d users: %w", len(users), err)
	}
	return res.Summary, nil
}

// UpsertFriendships merges a FRIENDS_WITH relationship per edge, tagged with
// the run that last saw it.
func (r *Repository) UpsertFriendships(ctx context.Context, runID string, edges []domain.Edge) (graph.Summary, error) {
	if runID == "" {
		return graph.Summary{}, ErrMissingRunID
	}
	if len(edges) == 0 {
		return graph.Summary{}, nil
	}

	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, map[string]any{
			"a": int64(e.A),
			"b": int64(e.B),
		})
	}

	res, err := r.client.ExecuteWrite(ctx, upsertFriendshipsCypher, map[string]any{
		"runId": runID,
		"rows":  rows,
	})
	if err != nil {
		return graph.Summary{}, fmt.Errorf("upsert %d friendships: %w", len(edges), err)
	}
	return res.Summary, nil
}

// PruneFriendships deletes FRIENDS_WITH relationships not written by runID,
// i.e. friendships ended since a previous export.
func (r *Repository) PruneFriendships(ctx context.Context, runID string) error {
	if runID == "" {
		return ErrMissingRunID
	}
	if _, err := r.client.ExecuteWrite(ctx, pruneFriendshipsCypher, map[string]any{"runId": runID}); err != nil {
		return fmt.Errorf("prune friendships: %w", err)
	}
	return nil
}

// RecordFlagged attaches a FlaggedPurchase node to the purchasing user.
func (r *Repository) RecordFlagged(ctx context.Context, runID string, flagged []domain.FlaggedPurchase) (graph.Summary, error) {
	if runID == "" {
		return graph.Summary{}, ErrMissingRunID
	}
	if len(flagged) == 0 {
		return graph.Summary{}, nil
	}

	rows := make([]map[string]any, 0, len(flagged))
	for _, fp := range flagged {
		rec := fp.Record()
		rows = append(rows, map[string]any{
			"userId":    int64(fp.Purchase.UserID),
			"timestamp": rec.Timestamp,
			"amount":    fp.Purchase.Amount,
			"mean":      fp.Mean,
			"sd":        fp.StdDev,
		})
	}

	res, err := r.client.ExecuteWrite(ctx, recordFlaggedCypher, map[string]any{
		"runId": runID,
		"rows":  rows,
	})
	if err != nil {
		return graph.Summary{}, fmt.Errorf("record %d flagged purchases: %w", len(flagged), err)
	}
	return res.Summary, nil
}

const upsertUsersCypher = `
UNWIND $rows AS row
MERGE (u:User {userId: row.userId})
SET u.friends = row.friends,
	u.ownPurchases = row.ownPurchases,
	u.networkPurchases = row.networkPurchases,
	u.networkMean = row.networkMean,
	u.networkStdDev = row.networkStdDev,
	u.runId = $runId
`

const upsertFriendshipsCypher = `
UNWIND $rows AS row
MERGE (a:User {userId: row.a})
MERGE (b:User {userId: row.b})
MERGE (a)-[f:FRIENDS_WITH]-(b)
SET f.runId = $runId
`

const pruneFriendshipsCypher = `
MATCH (:User)-[f:FRIENDS_WITH]-(:User)
WHERE f.runId <> $runId
DELETE f
`

const recordFlaggedCypher = `
UNWIND $rows AS row
MATCH (u:User {userId: row.userId})
MERGE (p:FlaggedPurchase {runId: $runId, userId: row.userId, timestamp: row.timestamp, amount: row.amount})
SET p.mean = row.mean,
	p.sd = row.sd
MERGE (u)-[:FLAGGED]->(p)
`
