package graph

import (
	"context"
	"errors"

	"github.com/vanshika/netpurchase/internal/config"
)

// Client defines the minimal contract required by the repository to write
// into the underlying graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
	Summary Summary
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// Summary carries the update counters reported for a statement.
type Summary struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
}

// Add accumulates counters from another summary.
func (s *Summary) Add(other Summary) {
	s.NodesCreated += other.NodesCreated
	s.RelationshipsCreated += other.RelationshipsCreated
	s.PropertiesSet += other.PropertiesSet
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// OptionsFrom maps the graph configuration section onto client options.
func OptionsFrom(cfg config.GraphConfig) Options {
	return Options{
		URI:            cfg.URI,
		Database:       cfg.Database,
		Username:       cfg.Username,
		Password:       cfg.Password,
		MaxConnections: cfg.MaxConnections,
	}
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
