package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/GoPolymarket/range-market/internal/config"
	"github.com/GoPolymarket/range-market/internal/market"
	"github.com/GoPolymarket/range-market/internal/paper"
	"github.com/GoPolymarket/range-market/internal/pricing"
	"github.com/GoPolymarket/range-market/internal/store"
)

var units = []struct {
	unit     string
	category string
	subject  func() string
}{
	{"mm", "weather", func() string { return "Rainfall in " + gofakeit.City() }},
	{"°C", "weather", func() string { return "Peak temperature in " + gofakeit.City() }},
	{"%", "politics", func() string { return "Turnout in " + gofakeit.City() }},
	{"USD", "finance", func() string { return gofakeit.Company() + " closing price" }},
	{"k", "business", func() string { return gofakeit.Company() + " headcount" }},
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	n := flag.Int("n", 10, "number of demo markets to create")
	seed := flag.Int64("seed", 0, "random seed (0 uses the clock)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	gofakeit.Seed(*seed)

	db, err := store.Open(store.Options{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close(db) }()

	repo := store.NewRepository(db)
	ledger := paper.NewGateway(paper.Config{TxPrefix: "seed-tx"})
	params := cfg.Pricing.Params()
	ctx := context.Background()

	for i := 0; i < *n; i++ {
		m, err := demoMarket(params)
		if err != nil {
			log.Fatalf("build market: %v", err)
		}
		receipt, err := ledger.Register(ctx, market.Registration{
			MarketID:     m.ID,
			Title:        m.Title,
			Unit:         m.Unit,
			Category:     m.Category,
			ExpiryUnix:   m.Expiry.Unix(),
			DomainMin:    m.Domain.Min,
			DomainMax:    m.Domain.Max,
			Coefficients: m.Coefficients,
		})
		if err != nil {
			log.Fatalf("register: %v", err)
		}
		m.Tx = receipt.Tx
		if err := repo.Create(ctx, &m); err != nil {
			log.Fatalf("store market: %v", err)
		}
		fmt.Printf("%s  %-8s %-48s mean=%.2f var=%.2f\n", m.ID, m.Prior.Type, m.Title, m.Stats.Mean, m.Stats.Variance)
	}
	log.Printf("seeded %d markets (seed=%d)", *n, *seed)
}

// demoMarket builds a market with a random prior family over the default
// domain. Published stats are the moments of the discretized prior.
func demoMarket(params pricing.Params) (market.Market, error) {
	d := params.DefaultDomain
	u := units[gofakeit.Number(0, len(units)-1)]

	var prior pricing.Prior
	switch gofakeit.Number(0, 3) {
	case 0:
		mean := gofakeit.Float64Range(d.Min+0.2*d.Width(), d.Min+0.8*d.Width())
		sd := gofakeit.Float64Range(0.05*d.Width(), 0.2*d.Width())
		prior = pricing.Normal{Mean: mean, Variance: sd * sd}
	case 1:
		prior = pricing.Beta{Alpha: gofakeit.Float64Range(1.2, 6), Beta: gofakeit.Float64Range(1.2, 6)}
	case 2:
		mid := d.Min + 0.4*d.Width()
		prior = pricing.LogNormal{Mu: math.Log(math.Max(mid, 1)), Sigma: gofakeit.Float64Range(0.2, 0.6)}
	default:
		prior = pricing.Uniform{}
	}

	density, err := pricing.Evaluate(prior, d, params.Resolution)
	if err != nil {
		return market.Market{}, err
	}
	moments := pricing.ComputeMoments(density)

	coeffs := make([]float64, gofakeit.Number(3, 8))
	for i := range coeffs {
		coeffs[i] = float64(gofakeit.Number(0, 10))
	}
	coeffs[0]++

	now := time.Now().UTC()
	return market.Market{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(u.subject()),
		Unit:         u.unit,
		Category:     u.category,
		Description:  gofakeit.Sentence(12),
		Expiry:       now.AddDate(0, 0, gofakeit.Number(7, 180)).Truncate(time.Hour),
		Domain:       d,
		Prior:        pricing.EncodePrior(prior),
		Stats:        pricing.Stats{Mean: moments.Mean, Variance: moments.Variance, Kurtosis: 3},
		Coefficients: coeffs,
		Seed:         pricing.ToRanges(coeffs, d),
		CreatedAt:    now,
	}, nil
}
