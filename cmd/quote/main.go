package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/GoPolymarket/range-market/internal/pricing"
)

type quote struct {
	Prior       pricing.PriorJSON       `json:"prior"`
	Domain      pricing.Domain          `json:"domain"`
	Ranges      []pricing.Range         `json:"ranges"`
	Buckets     []pricing.WeightedRange `json:"buckets,omitempty"`
	Moments     pricing.Moments         `json:"moments"`
	Mode        float64                 `json:"mode"`
	Probability float64                 `json:"probability"`
	Depth       pricing.Depth           `json:"depth"`
	Trade       pricing.TradeResult     `json:"trade"`
}

func main() {
	kind := flag.String("prior", "normal", "prior family: normal|lognormal|beta|uniform")
	p1 := flag.Float64("p1", 50, "first prior parameter (mean, mu or alpha)")
	p2 := flag.Float64("p2", 100, "second prior parameter (variance, sigma or beta)")
	domainMin := flag.Float64("min", 0, "domain minimum")
	domainMax := flag.Float64("max", 100, "domain maximum")
	resolution := flag.Int("resolution", 200, "points in the discretized prior")
	side := flag.String("side", "buy", "trade side: buy|sell")
	notional := flag.Float64("notional", 1000, "trade notional in USD")
	lo := flag.Float64("lo", 0, "range low (ignored when -coeffs is set)")
	hi := flag.Float64("hi", 0, "range high; lo == hi means the whole domain")
	coeffs := flag.String("coeffs", "", "comma-separated coefficients used instead of -lo/-hi")
	withDensity := flag.Bool("density", false, "include the projected density in the output")
	flag.Parse()

	domain := pricing.Domain{Min: *domainMin, Max: *domainMax}
	prior, err := buildPrior(*kind, *p1, *p2)
	if err != nil {
		log.Fatalf("prior: %v", err)
	}
	s, err := pricing.ParseSide(*side)
	if err != nil {
		log.Fatalf("side: %v", err)
	}

	params := pricing.DefaultParams()
	params.Resolution = *resolution
	density, err := pricing.Evaluate(prior, domain, params.Resolution)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}

	q := quote{Prior: pricing.EncodePrior(prior), Domain: domain}
	if strings.TrimSpace(*coeffs) != "" {
		cs, err := parseCoefficients(*coeffs)
		if err != nil {
			log.Fatalf("coeffs: %v", err)
		}
		q.Buckets = pricing.ToRanges(cs, domain)
		q.Ranges = pricing.PositiveBuckets(cs, domain)
	} else if *hi > *lo {
		q.Ranges = []pricing.Range{{Lo: *lo, Hi: *hi}}
	}
	q.Ranges = pricing.ClampRanges(q.Ranges, domain)
	if len(q.Ranges) == 0 {
		q.Ranges = []pricing.Range{domain.Full()}
	}

	moments := pricing.ComputeMoments(density)
	stats := pricing.Stats{Mean: moments.Mean, Variance: moments.Variance, Kurtosis: 3}
	res, err := pricing.NewSimulator(params).Project(density, q.Ranges, domain, s, *notional, stats)
	if err != nil {
		log.Fatalf("project: %v", err)
	}
	if !*withDensity {
		res.NewDensity = nil
	}

	q.Moments = moments
	q.Mode = pricing.FindMode(density)
	for _, r := range q.Ranges {
		q.Probability += pricing.CumulativeProbability(density, r)
	}
	q.Depth = params.LiquidityDepth(density, q.Mode)
	q.Trade = res

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(q); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func buildPrior(kind string, p1, p2 float64) (pricing.Prior, error) {
	switch pricing.PriorKind(strings.ToLower(strings.TrimSpace(kind))) {
	case pricing.KindNormal:
		return pricing.Normal{Mean: p1, Variance: p2}, nil
	case pricing.KindLogNormal:
		return pricing.LogNormal{Mu: p1, Sigma: p2}, nil
	case pricing.KindBeta:
		return pricing.Beta{Alpha: p1, Beta: p2}, nil
	case pricing.KindUniform:
		return pricing.Uniform{}, nil
	default:
		return nil, fmt.Errorf("unknown prior %q", kind)
	}
}

func parseCoefficients(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
