package server

import (
	"context"

	"github.com/vanshika/netpurchase/internal/detector"
	"github.com/vanshika/netpurchase/internal/graph"
)

// HealthService defines behaviour for readiness checks.
type HealthService interface {
	Check(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Check implements the HealthService interface.
func (s GraphHealthService) Check(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// ProgressReporter exposes detector progress to the health endpoint.
type ProgressReporter interface {
	Snapshot() detector.ProgressSnapshot
}
