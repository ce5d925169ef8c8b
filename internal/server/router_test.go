package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/netpurchase/internal/config"
	"github.com/vanshika/netpurchase/internal/detector"
	"github.com/vanshika/netpurchase/internal/domain"
	"github.com/vanshika/netpurchase/internal/graph"
	"github.com/vanshika/netpurchase/internal/logging"
	"github.com/vanshika/netpurchase/internal/metrics"
)

type healthResponse struct {
	Status   string                    `json:"status"`
	Error    string                    `json:"error"`
	Progress detector.ProgressSnapshot `json:"progress"`
}

func TestHealthzReportsProgress(t *testing.T) {
	progress := detector.NewProgress()
	progress.SetPhase(domain.PhaseStream)
	progress.AddSkipped(2)

	router := NewRouter(logging.Discard(), RouterDependencies{
		Health:   GraphHealthService{Client: graph.NewMemoryClient()},
		Progress: progress,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, domain.PhaseStream, body.Progress.Phase)
	assert.Equal(t, int64(2), body.Progress.Skipped)
}

func TestHealthzDegradedWhenGraphUnreachable(t *testing.T) {
	client := graph.NewMemoryClient().WithConnectivityError(errors.New("bolt refused"))
	router := NewRouter(logging.Discard(), RouterDependencies{
		Health: GraphHealthService{Client: client},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "bolt refused", body.Error)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.PurchaseFlagged()
	router := NewRouter(logging.Discard(), RouterDependencies{Metrics: m.Handler()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "netpurchase_purchases_flagged_total 1")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Defaults().Ops
	srv := New(logging.Discard(), cfg, NewRouter(logging.Discard(), RouterDependencies{}))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
