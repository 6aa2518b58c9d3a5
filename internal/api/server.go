package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GoPolymarket/range-market/internal/market"
	"github.com/GoPolymarket/range-market/internal/paper"
)

const maxBodyBytes = 1 << 20

// MarketService is the part of the market service exposed over HTTP.
type MarketService interface {
	EvaluateTrade(ctx context.Context, req market.TradeRequest) (market.TradeEvaluation, error)
	CreateMarket(ctx context.Context, req market.CreateMarketRequest) (market.Market, error)
	Get(ctx context.Context, id string) (market.Market, error)
	List(ctx context.Context, limit int) ([]market.Market, error)
	Curve(ctx context.Context, id string, q market.CurveQuery) (market.CurveReport, error)
}

// PaperProvider exposes the paper gateway ledger (nil in live mode).
type PaperProvider interface {
	Snapshot() paper.Snapshot
}

type Options struct {
	Addr           string
	Mode           string
	RateLimit      float64
	Burst          int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the HTTP boundary of the pricing service.
type Server struct {
	httpServer *http.Server
	svc        MarketService
	paper      PaperProvider
	logger     *zap.Logger
	mode       string
	startedAt  time.Time
	limiter    *clientLimiter
}

// NewServer creates a new API server bound to opts.Addr.
func NewServer(opts Options, svc MarketService, paperProvider PaperProvider, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:       svc,
		paper:     paperProvider,
		logger:    logger,
		mode:      opts.Mode,
		startedAt: time.Now(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(rate.Limit(opts.RateLimit), opts.Burst)
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/trade", s.handleTrade).Methods(http.MethodPost)
	r.HandleFunc("/api/markets", s.handleCreateMarket).Methods(http.MethodPost)
	r.HandleFunc("/api/markets", s.handleListMarkets).Methods(http.MethodGet)
	r.HandleFunc("/api/markets/{id}", s.handleGetMarket).Methods(http.MethodGet)
	r.HandleFunc("/api/markets/{id}/curve", s.handleCurve).Methods(http.MethodGet)
	r.HandleFunc("/api/paper", s.handlePaper).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusNotFound, errorBody("not_found", "route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody("method_not_allowed", "method not allowed"))
	})
	r.Use(s.logRequests, s.rateLimit)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("api server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func errorBody(kind, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{"kind": kind, "message": message},
	}
}

// statusFor maps a service error kind onto an HTTP status.
func statusFor(kind market.ErrorKind) int {
	switch kind {
	case market.KindValidation:
		return http.StatusBadRequest
	case market.KindNotFound:
		return http.StatusNotFound
	case market.KindInvalidParameter:
		return http.StatusUnprocessableEntity
	case market.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := market.KindOf(err)
	s.writeJSON(w, statusFor(kind), errorBody(string(kind), market.PublicMessage(err)))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody(string(market.KindValidation), "invalid JSON body"))
		return false
	}
	return true
}

// GET /api/health: liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"mode":     s.mode,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// POST /api/trade: project a trade onto a market's prior curve.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req market.TradeRequest
	if !s.decode(w, r, &req) {
		return
	}
	ev, err := s.svc.EvaluateTrade(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ev)
}

// POST /api/markets: validate, register and store a new market.
func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req market.CreateMarketRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, err := s.svc.CreateMarket(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"tx":      m.Tx,
		"market":  m,
	})
}

// GET /api/markets: newest markets first.
func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	markets, err := s.svc.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"markets": markets, "count": len(markets)})
}

// GET /api/markets/{id}
func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// GET /api/markets/{id}/curve?lo=&hi=&x=: analytics over the prior curve.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	var q market.CurveQuery
	params := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"lo", &q.Lo}, {"hi", &q.Hi}, {"x", &q.X}} {
		v := strings.TrimSpace(params.Get(p.name))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody(string(market.KindValidation), p.name+" must be a number"))
			return
		}
		*p.dst = &f
	}

	report, err := s.svc.Curve(r.Context(), mux.Vars(r)["id"], q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// GET /api/paper: paper gateway ledger.
func (s *Server) handlePaper(w http.ResponseWriter, _ *http.Request) {
	if s.paper == nil {
		s.writeJSON(w, http.StatusNotFound, errorBody(string(market.KindNotFound), "paper gateway not active"))
		return
	}
	snap := s.paper.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":                s.mode,
		"total_registrations": snap.TotalRegistrations,
		"total_rejections":    snap.TotalRejections,
		"last_tx":             snap.LastTx,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			s.writeJSON(w, http.StatusTooManyRequests, errorBody("rate_limited", "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 3 * time.Minute

// clientLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ttl are swept at most once per ttl.
type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		limit:     limit,
		burst:     burst,
		ttl:       limiterIdleTTL,
		now:       time.Now,
		lastSweep: time.Now(),
		clients:   make(map[string]*clientBucket),
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) >= l.ttl {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
