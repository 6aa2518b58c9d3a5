package market

import (
	"context"
	"math"
	"time"

	"github.com/GoPolymarket/range-market/internal/pricing"
)

// Market is a stored range market. The pricing core only ever sees the
// snapshot parts of it (domain, prior, stats).
type Market struct {
	ID              string                  `json:"id"`
	Title           string                  `json:"title"`
	Unit            string                  `json:"unit"`
	Category        string                  `json:"category"`
	Description     string                  `json:"description,omitempty"`
	DescriptionHTML string                  `json:"descriptionHtml,omitempty"`
	Expiry          time.Time               `json:"expiry"`
	Domain          pricing.Domain          `json:"domain"`
	Prior           pricing.PriorJSON       `json:"prior"`
	Stats           pricing.Stats           `json:"stats"`
	Coefficients    []float64               `json:"coefficients"`
	Ranges          []pricing.Range         `json:"ranges,omitempty"`
	Seed            []pricing.WeightedRange `json:"seed,omitempty"`
	Tx              string                  `json:"tx,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

// PriorSpec returns the typed prior of the market. Records without a prior
// type fall back to a normal built from the published mean and variance.
func (m Market) PriorSpec() (pricing.Prior, error) {
	if m.Prior.Type == "" {
		return pricing.Normal{Mean: m.Stats.Mean, Variance: m.Stats.Variance}, nil
	}
	return m.Prior.Prior()
}

// DefaultStats are the published stats of a uniform prior over d: midpoint
// mean, width^2/12 variance rounded to cents, zero skew and kurtosis 3.
func DefaultStats(d pricing.Domain) pricing.Stats {
	w := d.Width()
	return pricing.Stats{
		Mean:     (d.Min + d.Max) / 2,
		Variance: math.Round(w*w/12*100) / 100,
		Skew:     0,
		Kurtosis: 3,
	}
}

// Repository reads and writes market records.
type Repository interface {
	Get(ctx context.Context, id string) (Market, error)
	Create(ctx context.Context, m *Market) error
	List(ctx context.Context, limit int) ([]Market, error)
}

// Registration is the payload handed to the on-chain gateway.
type Registration struct {
	MarketID     string      `json:"marketId"`
	Title        string      `json:"title"`
	Unit         string      `json:"unit"`
	Category     string      `json:"category"`
	ExpiryUnix   int64       `json:"expiry"`
	DomainMin    float64     `json:"domainMin"`
	DomainMax    float64     `json:"domainMax"`
	Coefficients []float64   `json:"coefficients"`
	Ranges       [][]float64 `json:"ranges,omitempty"`
}

// Receipt is what the gateway reports back: {success, tx} or
// {success:false, error}.
type Receipt struct {
	Success bool   `json:"success"`
	Tx      string `json:"tx,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Gateway registers markets on-chain.
type Gateway interface {
	Register(ctx context.Context, reg Registration) (Receipt, error)
}

// Notifier announces creation outcomes. Optional.
type Notifier interface {
	NotifyMarketCreated(ctx context.Context, m Market) error
	NotifyRegistrationFailed(ctx context.Context, title, reason string) error
}

// TradeRequest is the trade evaluation input. Either notionalUSD or amountUSD
// must be present.
type TradeRequest struct {
	MarketID     string      `json:"marketId" validate:"required"`
	Side         string      `json:"side" validate:"required,oneof=buy sell"`
	Range        []float64   `json:"range,omitempty" validate:"omitempty,len=2"`
	Ranges       [][]float64 `json:"ranges,omitempty" validate:"omitempty,dive,len=2"`
	Coefficients []float64   `json:"coefficients,omitempty"`
	NotionalUSD  *float64    `json:"notionalUSD,omitempty"`
	AmountUSD    *float64    `json:"amountUSD,omitempty"`
}

// TradeEvaluation is the projected trade plus the inputs it was computed
// from.
type TradeEvaluation struct {
	MarketID string          `json:"marketId"`
	Ranges   []pricing.Range `json:"ranges"`
	Density  pricing.Density `json:"density"`
	pricing.TradeResult
}

// CreateMarketRequest is the market creation input.
type CreateMarketRequest struct {
	Title        string      `json:"title" validate:"required,max=160"`
	Unit         string      `json:"unit" validate:"required,max=32"`
	Category     string      `json:"category" validate:"required,max=64"`
	Description  string      `json:"description,omitempty" validate:"max=2000"`
	Expiry       string      `json:"expiry" validate:"required"`
	Coefficients []float64   `json:"coefficients" validate:"required,min=1"`
	Ranges       [][]float64 `json:"ranges,omitempty"`
}

// CurveQuery selects the analytics reported for a market's prior curve.
// Nil fields fall back to the whole domain (Lo/Hi) and the mode (X).
type CurveQuery struct {
	Lo *float64
	Hi *float64
	X  *float64
}

// CurveReport summarises a market's discretized prior.
type CurveReport struct {
	MarketID    string          `json:"marketId"`
	Domain      pricing.Domain  `json:"domain"`
	Density     pricing.Density `json:"density"`
	Moments     pricing.Moments `json:"moments"`
	TotalMass   float64         `json:"totalMass"`
	Mode        float64         `json:"mode"`
	Median      float64         `json:"median"`
	Range       pricing.Range   `json:"range"`
	Probability float64         `json:"probability"`
	DepthAt     float64         `json:"depthAt"`
	Depth       pricing.Depth   `json:"depth"`
}
