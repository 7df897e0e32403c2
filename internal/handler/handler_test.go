package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carter2099/best-bets/internal/analyzer"
	"github.com/carter2099/best-bets/internal/client/jupiter"
	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/pipeline"
	"github.com/carter2099/best-bets/internal/repository"
	"github.com/carter2099/best-bets/internal/repository/memory"
	"github.com/carter2099/best-bets/internal/service"
)

const (
	mintA = "So11111111111111111111111111111111111111112"
	mintB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func do(t *testing.T, engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	_, err := store.InsertTokensIfAbsent(ctx, []models.Token{
		{Address: mintA, Symbol: "SOL", NeedsAnalysis: true, IsNew: true},
		{Address: mintB, Symbol: "USDC", NeedsAnalysis: true, IsNew: true},
	})
	require.NoError(t, err)
	require.NoError(t, store.SaveAnalysis(ctx, repository.AnalysisUpdate{Address: mintA, Score: 55, Outcome: analyzer.OutcomeScored}))
	_, err = store.RecomputeRanks(ctx, 20)
	require.NoError(t, err)
	return store
}

type fakeTopCache struct {
	items []models.Token
	ok    bool
	err   error
}

func (f fakeTopCache) Top(context.Context) ([]models.Token, bool, error) { return f.items, f.ok, f.err }

func TestTopServesCacheThenStore(t *testing.T) {
	store := seededStore(t)

	hit := NewEngine("test", nil, &TokensHandler{Repo: store, Cache: fakeTopCache{items: []models.Token{{Address: "cached"}}, ok: true}})
	rec, env := do(t, hit, http.MethodGet, "/api/tokens/top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cache", env.Meta["source"])
	assert.Contains(t, string(env.Data), `"address":"cached"`)

	miss := NewEngine("test", nil, &TokensHandler{Repo: store, Cache: fakeTopCache{err: errors.New("redis down")}})
	rec, env = do(t, miss, http.MethodGet, "/api/tokens/top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "store", env.Meta["source"])
	var items []tokenView
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, mintA, items[0].Address)
	assert.Equal(t, 1, *items[0].Rank)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestListAndGetTokens(t *testing.T) {
	engine := NewEngine("test", nil, &TokensHandler{Repo: seededStore(t)})

	rec, env := do(t, engine, http.MethodGet, "/api/tokens?needs_analysis=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []tokenView
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, mintB, items[0].Address)
	assert.EqualValues(t, 1, env.Meta["total"])

	rec, _ = do(t, engine, http.MethodGet, "/api/tokens?order_by=drop_table", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, engine, http.MethodGet, "/api/tokens/"+mintA, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"symbol":"SOL"`)

	rec, _ = do(t, engine, http.MethodGet, "/api/tokens/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, engine, http.MethodGet, "/api/tokens/"+mintA+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist []historyView
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, analyzer.OutcomeScored, hist[0].Outcome)
}

func TestReanalyzeRequeuesToken(t *testing.T) {
	store := seededStore(t)
	engine := NewEngine("test", nil, &TokensHandler{Repo: store})

	rec, _ := do(t, engine, http.MethodPost, "/api/tokens/"+mintA+"/reanalyze", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tok, err := store.GetToken(context.Background(), mintA)
	require.NoError(t, err)
	assert.True(t, tok.NeedsAnalysis)
	require.NotNil(t, tok.Score)

	rec, _ = do(t, engine, http.MethodPost, "/api/tokens/unknown/reanalyze", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubListing struct{ tokens []jupiter.Token }

func (s stubListing) NewTokens(context.Context) ([]jupiter.Token, error) { return s.tokens, nil }

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, address string) (analyzer.Result, error) {
	return analyzer.Result{Address: address, Outcome: analyzer.OutcomeScored, Score: float64(len(address))}, nil
}

func TestScanRoutes(t *testing.T) {
	store := memory.New()
	scans := &service.ScanService{
		Repo:     store,
		Listing:  stubListing{tokens: []jupiter.Token{{Mint: mintA}, {Mint: mintB}}},
		Analyzer: stubAnalyzer{},
	}
	engine := NewEngine("test", nil, &ScansHandler{Scans: scans, TestLimit: 50})

	rec, env := do(t, engine, http.MethodPost, "/api/scans/test-scan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Scan   scanView        `json:"scan"`
		Tokens []scanTokenView `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, models.ScanTypeTest, body.Scan.ScanType)
	require.Len(t, body.Tokens, 2)
	assert.Equal(t, 1, body.Tokens[0].Rank)

	rec, _ = do(t, engine, http.MethodGet, "/api/scans", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, engine, http.MethodGet, "/api/scans/latest?type=test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		Scan   scanView        `json:"scan"`
		Tokens []scanTokenView `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &latest))
	assert.Equal(t, body.Scan.ID, latest.Scan.ID)
	assert.Len(t, latest.Tokens, 2)
	rec, _ = do(t, engine, http.MethodGet, "/api/scans/latest?type=daily", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, engine, http.MethodGet, "/api/scans/latest?type=weekly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, engine, http.MethodGet, "/api/scans/1/tokens", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, engine, http.MethodGet, "/api/scans/42/tokens", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, engine, http.MethodGet, "/api/scans/abc/tokens", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, engine, http.MethodPost, "/api/scans/test-scan?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, engine, http.MethodDelete, "/api/scans/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))
}

type fakePipeline struct {
	mu      sync.Mutex
	running bool
	stopErr error
}

func (f *fakePipeline) Start(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakePipeline) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.running = false
	return nil
}

func (f *fakePipeline) Status() pipeline.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return pipeline.Status{State: "running"}
	}
	return pipeline.Status{State: "stopped"}
}

type fakeBreaker struct {
	name  string
	state gobreaker.State
}

func (f fakeBreaker) Name() string           { return f.name }
func (f fakeBreaker) State() gobreaker.State { return f.state }

func TestPipelineRoutes(t *testing.T) {
	p := &fakePipeline{}
	engine := NewEngine("test", nil, &PipelineHandler{
		Pipeline: p,
		Pending:  seededStore(t),
		Breakers: []Breaker{
			fakeBreaker{name: "quote", state: gobreaker.StateOpen},
			fakeBreaker{name: "holders", state: gobreaker.StateClosed},
		},
		BaseCtx: context.Background(),
	})

	_, env := do(t, engine, http.MethodPost, "/api/pipeline/start", "")
	assert.Contains(t, string(env.Data), `"started":true`)
	_, env = do(t, engine, http.MethodPost, "/api/pipeline/start", "")
	assert.Contains(t, string(env.Data), `"started":false`)

	_, env = do(t, engine, http.MethodGet, "/api/pipeline/status", "")
	var status struct {
		State         string        `json:"state"`
		PendingTokens *int64        `json:"pending_tokens"`
		Breakers      []breakerView `json:"breakers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "running", status.State)
	require.NotNil(t, status.PendingTokens)
	assert.Equal(t, int64(1), *status.PendingTokens)
	assert.Equal(t, []breakerView{{Provider: "quote", State: "open"}, {Provider: "holders", State: "closed"}}, status.Breakers)

	rec, _ := do(t, engine, http.MethodPost, "/api/pipeline/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	p.running = true
	p.stopErr = context.DeadlineExceeded
	rec, _ = do(t, engine, http.MethodPost, "/api/pipeline/stop", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestSwitchRoutes(t *testing.T) {
	store := memory.New()
	settings := &service.SystemSettingsService{Repo: store}
	require.NoError(t, settings.EnsureDefaultSwitches(context.Background()))
	engine := NewEngine("test", nil, &SettingsHandler{Repo: store, Settings: settings})

	rec, _ := do(t, engine, http.MethodPut, "/api/settings/switches/daily_scan", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, settings.IsEnabled(context.Background(), service.FeatureDailyScan, true))

	rec, _ = do(t, engine, http.MethodPut, "/api/settings/switches/daily_scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, env := do(t, engine, http.MethodGet, "/api/settings/switches", "")
	assert.Contains(t, string(env.Data), `"name":"pipeline_autostart"`)
}

func TestHealthRoutes(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	engine := NewEngine("test", nil, &HealthHandler{DB: ok, Cache: ok, Metrics: http.NotFoundHandler()})
	rec, _ := do(t, engine, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, engine, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	engine = NewEngine("test", nil, &HealthHandler{DB: ok, Cache: down})
	rec, _ = do(t, engine, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	engine = NewEngine("test", nil, &HealthHandler{})
	rec, _ = do(t, engine, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
