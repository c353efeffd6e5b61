package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/poolstate"
	"github.com/StabilityNexus/Fate/internal/server/handler"
)

type fakePools struct{}

func (fakePools) List(context.Context, domain.PoolFilter) []domain.PoolSnapshot {
	return []domain.PoolSnapshot{{ID: "0x1", Name: "one"}}
}

func (fakePools) Get(_ context.Context, id string) (domain.PoolSnapshot, error) {
	if id != "0x1" {
		return domain.PoolSnapshot{}, domain.ErrNotFound
	}
	return domain.PoolSnapshot{ID: "0x1", Name: "one"}, nil
}

func (p fakePools) Refresh(ctx context.Context, id string) (domain.PoolSnapshot, error) {
	return p.Get(ctx, id)
}

func (fakePools) Assets() []domain.Asset { return nil }

type fakePositions struct{}

func (fakePositions) Position(_ context.Context, poolID, addr string, _ domain.AvgCost) (domain.UserPosition, error) {
	return domain.UserPosition{PoolID: poolID, Address: addr}, nil
}

type fakeTrades struct {
	mu   sync.Mutex
	buys int
}

func (f *fakeTrades) Buy(context.Context, domain.BuyRequest) domain.TxOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buys++
	return domain.TxOutcome{State: domain.StateSucceeded}
}

func (f *fakeTrades) Sell(context.Context, domain.SellRequest) domain.TxOutcome {
	return domain.TxOutcome{State: domain.StateSucceeded}
}

func (f *fakeTrades) Settle(context.Context, domain.SettleRequest) domain.TxOutcome {
	return domain.TxOutcome{State: domain.StateSucceeded}
}

func (f *fakeTrades) CreatePool(context.Context, domain.CreatePoolRequest) domain.TxOutcome {
	return domain.TxOutcome{State: domain.StateSucceeded}
}

func (f *fakeTrades) History(context.Context, string, domain.ListOpts) ([]domain.TxRecord, error) {
	return nil, nil
}

type countingLimiter struct {
	mu   sync.Mutex
	seen map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[key]++
	return l.seen[key] <= limit, nil
}

type routeRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) ObserveHTTP(_, route string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func newTestServer(t *testing.T, cfg Config, limiter domain.RateLimiter, obs *routeRecorder) (*httptest.Server, *fakeTrades) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trades := &fakeTrades{}
	handlers := Handlers{
		Health:    handler.NewHealthHandler(nil, map[string]bool{"trading": true}, logger),
		Pools:     handler.NewPoolHandler(fakePools{}, poolstate.FeeUnitRaw, logger),
		Positions: handler.NewPositionHandler(fakePositions{}, logger),
		Trades:    handler.NewTradeHandler(trades, logger),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "fate_up 1\n")
		}),
	}
	srv := NewServer(cfg, handlers, nil, limiter, obs, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, trades
}

func TestRoutes(t *testing.T) {
	obs := &routeRecorder{}
	ts, _ := newTestServer(t, Config{}, nil, obs)

	for path, want := range map[string]int{
		"/api/health":                        http.StatusOK,
		"/api/pools":                         http.StatusOK,
		"/api/pools/0x1":                     http.StatusOK,
		"/api/pools/0x2":                     http.StatusNotFound,
		"/api/pools/0x1/position?address=0x": http.StatusBadRequest,
		"/api/assets":                        http.StatusOK,
		"/api/transactions":                  http.StatusOK,
		"/metrics":                           http.StatusOK,
		"/api/orders":                        http.StatusNotFound,
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}

	assert.Contains(t, obs.routes, "GET /api/pools/{id}")
	assert.Contains(t, obs.routes, "unmatched")
}

func TestWritesRequireAPIKey(t *testing.T) {
	ts, trades := newTestServer(t, Config{APIKey: "secret"}, nil, &routeRecorder{})

	resp, err := http.Post(ts.URL+"/api/pools/0x1/buy", "application/json", strings.NewReader(`{"amount":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/pools/0x1/buy", strings.NewReader(`{"amount":1}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, trades.buys)

	// reads stay open
	resp, err = http.Get(ts.URL + "/api/pools")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimitApplied(t *testing.T) {
	limiter := &countingLimiter{seen: map[string]int{}}
	ts, _ := newTestServer(t, Config{RateLimit: 2, RateWindow: time.Minute}, limiter, &routeRecorder{})

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/api/pools")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
