package paper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/range-market/internal/market"
)

type Config struct {
	TxPrefix string `yaml:"tx_prefix"`
	// RejectCategories makes registrations in these categories fail, so the
	// failure path can be exercised without a relay.
	RejectCategories []string `yaml:"reject_categories"`
}

// Registration is one market booked by the paper gateway.
type Registration struct {
	Tx        string              `json:"tx"`
	Payload   market.Registration `json:"payload"`
	Timestamp time.Time           `json:"timestamp"`
}

type Snapshot struct {
	TotalRegistrations int    `json:"total_registrations"`
	TotalRejections    int    `json:"total_rejections"`
	LastTx             string `json:"last_tx,omitempty"`
}

// Gateway is an in-memory registration gateway used in paper and shadow
// modes. It hands out sequential fake transaction ids.
type Gateway struct {
	mu sync.Mutex

	cfg Config

	sequence      int64
	rejected      int
	registrations map[string]Registration // marketID -> booked registration
	reject        map[string]bool
}

func NewGateway(cfg Config) *Gateway {
	prefix := strings.TrimSpace(cfg.TxPrefix)
	if prefix == "" {
		prefix = "paper-tx"
	}
	reject := make(map[string]bool, len(cfg.RejectCategories))
	for _, c := range cfg.RejectCategories {
		reject[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return &Gateway{
		cfg:           Config{TxPrefix: prefix, RejectCategories: cfg.RejectCategories},
		registrations: make(map[string]Registration),
		reject:        reject,
	}
}

// Register books reg and returns a successful receipt, unless the market id
// was already booked or its category is configured to be rejected.
func (g *Gateway) Register(ctx context.Context, reg market.Registration) (market.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return market.Receipt{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reject[strings.ToLower(reg.Category)] {
		g.rejected++
		return market.Receipt{Success: false, Error: fmt.Sprintf("category %q rejected by paper gateway", reg.Category)}, nil
	}
	if prev, ok := g.registrations[reg.MarketID]; ok {
		return market.Receipt{Success: true, Tx: prev.Tx}, nil
	}

	g.sequence++
	tx := fmt.Sprintf("%s-%06d", g.cfg.TxPrefix, g.sequence)
	g.registrations[reg.MarketID] = Registration{
		Tx:        tx,
		Payload:   reg,
		Timestamp: time.Now().UTC(),
	}
	return market.Receipt{Success: true, Tx: tx}, nil
}

// Lookup returns the booked registration for a market id.
func (g *Gateway) Lookup(marketID string) (Registration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.registrations[marketID]
	return r, ok
}

func (g *Gateway) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := Snapshot{
		TotalRegistrations: len(g.registrations),
		TotalRejections:    g.rejected,
	}
	if g.sequence > 0 {
		snap.LastTx = fmt.Sprintf("%s-%06d", g.cfg.TxPrefix, g.sequence)
	}
	return snap
}
