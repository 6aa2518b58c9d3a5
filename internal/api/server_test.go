package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/range-market/internal/market"
	"github.com/GoPolymarket/range-market/internal/paper"
	"github.com/GoPolymarket/range-market/internal/pricing"
)

type mockService struct {
	tradeReq  market.TradeRequest
	tradeErr  error
	createErr error
	curveQ    market.CurveQuery
	listLimit int
	markets   map[string]market.Market
}

func newMockService() *mockService {
	return &mockService{markets: map[string]market.Market{
		"m-1": {ID: "m-1", Title: "Rainfall", Domain: pricing.Domain{Min: 0, Max: 100}},
	}}
}

func (m *mockService) EvaluateTrade(_ context.Context, req market.TradeRequest) (market.TradeEvaluation, error) {
	m.tradeReq = req
	if m.tradeErr != nil {
		return market.TradeEvaluation{}, m.tradeErr
	}
	return market.TradeEvaluation{
		MarketID: req.MarketID,
		Ranges:   []pricing.Range{{Lo: 0, Hi: 100}},
		TradeResult: pricing.TradeResult{
			Side:      pricing.Buy,
			DeltaMass: 1,
			CostUSD:   15045,
			FeeUSD:    45,
		},
	}, nil
}

func (m *mockService) CreateMarket(_ context.Context, req market.CreateMarketRequest) (market.Market, error) {
	if m.createErr != nil {
		return market.Market{}, m.createErr
	}
	return market.Market{ID: "new", Title: req.Title, Tx: "paper-tx-000001"}, nil
}

func (m *mockService) Get(_ context.Context, id string) (market.Market, error) {
	mk, ok := m.markets[id]
	if !ok {
		return market.Market{}, &market.Error{Kind: market.KindNotFound, Message: fmt.Sprintf("market %q not found", id)}
	}
	return mk, nil
}

func (m *mockService) List(_ context.Context, limit int) ([]market.Market, error) {
	m.listLimit = limit
	return []market.Market{m.markets["m-1"]}, nil
}

func (m *mockService) Curve(ctx context.Context, id string, q market.CurveQuery) (market.CurveReport, error) {
	m.curveQ = q
	if _, err := m.Get(ctx, id); err != nil {
		return market.CurveReport{}, err
	}
	return market.CurveReport{MarketID: id, Mode: 50, Depth: pricing.DepthModerate}, nil
}

type stubPaper struct{ snap paper.Snapshot }

func (p stubPaper) Snapshot() paper.Snapshot { return p.snap }

func newTestServer(svc MarketService, pp PaperProvider) *Server {
	return NewServer(Options{Addr: ":0", Mode: "paper"}, svc, pp, nil)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (kind, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Kind, body.Error.Message
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(newMockService(), nil)
	w := do(t, s.Handler(), http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "paper", resp["mode"])
}

func TestHandleTrade(t *testing.T) {
	svc := newMockService()
	s := newTestServer(svc, nil)

	w := do(t, s.Handler(), http.MethodPost, "/api/trade", `{"marketId":"m-1","side":"buy","amountUSD":10000,"range":[40,60]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NotNil(t, svc.tradeReq.AmountUSD)
	assert.Equal(t, 10000.0, *svc.tradeReq.AmountUSD)
	assert.Nil(t, svc.tradeReq.NotionalUSD)
	assert.Equal(t, []float64{40, 60}, svc.tradeReq.Range)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "m-1", resp["marketId"])
	assert.Equal(t, 15045.0, resp["costUSD"])
	assert.Equal(t, 1.0, resp["deltaMass"])
}

func TestHandleTradeMalformedJSON(t *testing.T) {
	s := newTestServer(newMockService(), nil)
	w := do(t, s.Handler(), http.MethodPost, "/api/trade", `{"marketId":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	kind, _ := decodeError(t, w)
	assert.Equal(t, "validation", kind)
}

func TestErrorKindStatusMapping(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		kind    string
		message string
	}{
		{&market.Error{Kind: market.KindValidation, Message: "side is required"}, http.StatusBadRequest, "validation", "side is required"},
		{&market.Error{Kind: market.KindNotFound, Message: "market \"x\" not found"}, http.StatusNotFound, "not_found", "market \"x\" not found"},
		{&market.Error{Kind: market.KindInvalidParameter, Message: "bad variance"}, http.StatusUnprocessableEntity, "invalid_parameter", "bad variance"},
		{&market.Error{Kind: market.KindUpstream, Message: "insufficient gas"}, http.StatusBadGateway, "upstream_failure", "insufficient gas"},
		{errors.New("database is locked"), http.StatusInternalServerError, "unexpected", "internal error"},
	}
	for _, tc := range cases {
		svc := newMockService()
		svc.tradeErr = tc.err
		s := newTestServer(svc, nil)

		w := do(t, s.Handler(), http.MethodPost, "/api/trade", `{"marketId":"m-1","side":"buy","notionalUSD":1}`)
		assert.Equal(t, tc.status, w.Code, tc.kind)
		kind, msg := decodeError(t, w)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, tc.message, msg)
	}
}

func TestHandleCreateMarket(t *testing.T) {
	s := newTestServer(newMockService(), nil)
	w := do(t, s.Handler(), http.MethodPost, "/api/markets", `{"title":"Rainfall","unit":"mm","category":"weather","expiry":"2030-01-01T00:00:00Z","coefficients":[1,2]}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Success bool          `json:"success"`
		Tx      string        `json:"tx"`
		Market  market.Market `json:"market"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "paper-tx-000001", resp.Tx)
	assert.Equal(t, "Rainfall", resp.Market.Title)
}

func TestHandleCreateMarketUpstreamFailure(t *testing.T) {
	svc := newMockService()
	svc.createErr = &market.Error{Kind: market.KindUpstream, Message: "nonce too low"}
	s := newTestServer(svc, nil)

	w := do(t, s.Handler(), http.MethodPost, "/api/markets", `{"title":"Rainfall"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	_, msg := decodeError(t, w)
	assert.Equal(t, "nonce too low", msg)
}

func TestHandleListMarkets(t *testing.T) {
	svc := newMockService()
	s := newTestServer(svc, nil)

	w := do(t, s.Handler(), http.MethodGet, "/api/markets?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.listLimit)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1.0, resp["count"])

	do(t, s.Handler(), http.MethodGet, "/api/markets?limit=abc", "")
	assert.Equal(t, 0, svc.listLimit, "invalid limit falls back to the service default")
}

func TestHandleGetMarket(t *testing.T) {
	s := newTestServer(newMockService(), nil)

	w := do(t, s.Handler(), http.MethodGet, "/api/markets/m-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var m market.Market
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "Rainfall", m.Title)

	w = do(t, s.Handler(), http.MethodGet, "/api/markets/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCurve(t *testing.T) {
	svc := newMockService()
	s := newTestServer(svc, nil)

	w := do(t, s.Handler(), http.MethodGet, "/api/markets/m-1/curve?lo=10&hi=20.5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, svc.curveQ.Lo)
	require.NotNil(t, svc.curveQ.Hi)
	assert.Equal(t, 10.0, *svc.curveQ.Lo)
	assert.Equal(t, 20.5, *svc.curveQ.Hi)
	assert.Nil(t, svc.curveQ.X)

	w = do(t, s.Handler(), http.MethodGet, "/api/markets/m-1/curve?x=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, msg := decodeError(t, w)
	assert.Equal(t, "x must be a number", msg)
}

func TestHandlePaper(t *testing.T) {
	s := newTestServer(newMockService(), stubPaper{snap: paper.Snapshot{TotalRegistrations: 3, LastTx: "paper-tx-000003"}})
	w := do(t, s.Handler(), http.MethodGet, "/api/paper", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3.0, resp["total_registrations"])
	assert.Equal(t, "paper-tx-000003", resp["last_tx"])

	live := newTestServer(newMockService(), nil)
	w = do(t, live.Handler(), http.MethodGet, "/api/paper", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	s := newTestServer(newMockService(), nil)

	w := do(t, s.Handler(), http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s.Handler(), http.MethodDelete, "/api/markets/m-1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	s := NewServer(Options{Addr: ":0", RateLimit: 1, Burst: 2}, newMockService(), nil, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own budget")
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	clock = clock.Add(time.Minute)
	assert.True(t, l.allow("10.0.0.2"))
	assert.Equal(t, 2, l.size())

	clock = clock.Add(limiterIdleTTL + time.Second)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 1, l.size(), "idle buckets are dropped on the next sweep")

	clock = clock.Add(time.Minute)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 1, l.size())
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(Options{Addr: ":0", AllowedOrigins: []string{"https://app.example"}}, newMockService(), nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/trade", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(Options{Addr: "127.0.0.1:0"}, newMockService(), nil, nil)
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
