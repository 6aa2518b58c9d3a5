package pricing

import (
	"fmt"
	"math"
)

// PriorKind names a prior family.
type PriorKind string

const (
	KindNormal    PriorKind = "normal"
	KindLogNormal PriorKind = "lognormal"
	KindBeta      PriorKind = "beta"
	KindUniform   PriorKind = "uniform"
)

// Prior is an analytic density family. The set of implementations is closed:
// Normal, LogNormal, Beta and Uniform.
type Prior interface {
	Kind() PriorKind
	validate() error
	// sampler returns the density over d with per-prior constants computed
	// once.
	sampler(d Domain) func(x float64) float64
}

type Normal struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

func (Normal) Kind() PriorKind { return KindNormal }

func (n Normal) validate() error {
	if !(n.Variance > 0) || !isFinite(n.Variance) || !isFinite(n.Mean) {
		return fmt.Errorf("%w: normal variance must be > 0, got %g", ErrInvalidParameter, n.Variance)
	}
	return nil
}

func (n Normal) sampler(Domain) func(float64) float64 {
	norm := 1 / math.Sqrt(2*math.Pi*n.Variance)
	return func(x float64) float64 {
		dx := x - n.Mean
		return math.Exp(-dx*dx/(2*n.Variance)) * norm
	}
}

// LogNormal has support (0, inf); points at or below zero evaluate to 0.
type LogNormal struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

func (LogNormal) Kind() PriorKind { return KindLogNormal }

func (l LogNormal) validate() error {
	if !(l.Sigma > 0) || !isFinite(l.Sigma) || !isFinite(l.Mu) {
		return fmt.Errorf("%w: lognormal sigma must be > 0, got %g", ErrInvalidParameter, l.Sigma)
	}
	return nil
}

func (l LogNormal) sampler(Domain) func(float64) float64 {
	norm := 1 / (l.Sigma * math.Sqrt(2*math.Pi))
	return func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		z := math.Log(x) - l.Mu
		return math.Exp(-z*z/(2*l.Sigma*l.Sigma)) * norm / x
	}
}

// Beta is mapped linearly from [0,1] onto the domain and rescaled by the
// domain width so it stays a density over real outcomes.
type Beta struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

func (Beta) Kind() PriorKind { return KindBeta }

func (b Beta) validate() error {
	if !(b.Alpha > 0) || !(b.Beta > 0) || !isFinite(b.Alpha) || !isFinite(b.Beta) {
		return fmt.Errorf("%w: beta alpha and beta must be > 0, got %g/%g", ErrInvalidParameter, b.Alpha, b.Beta)
	}
	return nil
}

func (b Beta) sampler(d Domain) func(float64) float64 {
	la, _ := math.Lgamma(b.Alpha)
	lb, _ := math.Lgamma(b.Beta)
	lab, _ := math.Lgamma(b.Alpha + b.Beta)
	// 1/B(alpha,beta) rescaled by the domain width.
	norm := math.Exp(lab-la-lb) / d.Width()
	return func(x float64) float64 {
		u := (x - d.Min) / d.Width()
		if u < 0 || u > 1 {
			return 0
		}
		return math.Pow(u, b.Alpha-1) * math.Pow(1-u, b.Beta-1) * norm
	}
}

type Uniform struct{}

func (Uniform) Kind() PriorKind { return KindUniform }

func (Uniform) validate() error { return nil }

func (Uniform) sampler(d Domain) func(float64) float64 {
	y := 1 / d.Width()
	return func(float64) float64 { return y }
}

// PriorJSON is the wire form of a prior: a "type" tag plus the parameters of
// that family.
type PriorJSON struct {
	Type     PriorKind `json:"type"`
	Mean     float64   `json:"mean,omitempty"`
	Variance float64   `json:"variance,omitempty"`
	Mu       float64   `json:"mu,omitempty"`
	Sigma    float64   `json:"sigma,omitempty"`
	Alpha    float64   `json:"alpha,omitempty"`
	Beta     float64   `json:"beta,omitempty"`
}

// Prior converts the wire form into a typed prior. Unknown tags fail with
// ErrInvalidParameter.
func (p PriorJSON) Prior() (Prior, error) {
	switch p.Type {
	case KindNormal:
		return Normal{Mean: p.Mean, Variance: p.Variance}, nil
	case KindLogNormal:
		return LogNormal{Mu: p.Mu, Sigma: p.Sigma}, nil
	case KindBeta:
		return Beta{Alpha: p.Alpha, Beta: p.Beta}, nil
	case KindUniform:
		return Uniform{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown prior type %q", ErrInvalidParameter, p.Type)
	}
}

// EncodePrior is the inverse of PriorJSON.Prior.
func EncodePrior(p Prior) PriorJSON {
	switch v := p.(type) {
	case Normal:
		return PriorJSON{Type: KindNormal, Mean: v.Mean, Variance: v.Variance}
	case LogNormal:
		return PriorJSON{Type: KindLogNormal, Mu: v.Mu, Sigma: v.Sigma}
	case Beta:
		return PriorJSON{Type: KindBeta, Alpha: v.Alpha, Beta: v.Beta}
	default:
		return PriorJSON{Type: KindUniform}
	}
}

// Evaluate samples prior at resolution equally spaced points spanning the
// domain, both ends inclusive. A non-positive resolution uses the default of
// 200. No renormalization is applied.
func Evaluate(prior Prior, domain Domain, resolution int) (Density, error) {
	if prior == nil {
		return nil, fmt.Errorf("%w: prior is required", ErrInvalidParameter)
	}
	if err := domain.Validate(); err != nil {
		return nil, err
	}
	if err := prior.validate(); err != nil {
		return nil, err
	}
	if resolution <= 0 {
		resolution = DefaultParams().Resolution
	}

	pdf := prior.sampler(domain)
	out := make(Density, resolution)
	step := 0.0
	if resolution > 1 {
		step = domain.Width() / float64(resolution-1)
	}
	for i := range out {
		x := domain.Min + float64(i)*step
		if i == resolution-1 && resolution > 1 {
			x = domain.Max
		}
		y := pdf(x)
		// Endpoint singularities (e.g. beta with alpha < 1) are reported as 0.
		if !isFinite(y) || y < 0 {
			y = 0
		}
		out[i] = PdfPoint{X: x, Y: y}
	}
	return out, nil
}
