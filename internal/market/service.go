package market

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/GoPolymarket/range-market/internal/pricing"
)

// Service evaluates trades against stored markets and seeds new ones. It
// keeps no state between calls beyond its collaborators.
type Service struct {
	repo     Repository
	gateway  Gateway
	notifier Notifier
	sim      *pricing.Simulator
	params   pricing.Params
	logger   *zap.Logger
	now      func() time.Time

	validate    *validator.Validate
	strict      *bluemonday.Policy
	ugc         *bluemonday.Policy
	markdown    goldmark.Markdown
	listDefault int
}

// Option customises a Service.
type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithListLimit sets the page size used when List is called without a limit.
func WithListLimit(n int) Option { return func(s *Service) { s.listDefault = n } }

func NewService(repo Repository, gateway Gateway, params pricing.Params, opts ...Option) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Service{
		repo:        repo,
		gateway:     gateway,
		sim:         pricing.NewSimulator(params),
		params:      params,
		logger:      zap.NewNop(),
		now:         time.Now,
		validate:    v,
		strict:      bluemonday.StrictPolicy(),
		ugc:         bluemonday.UGCPolicy(),
		markdown:    goldmark.New(),
		listDefault: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateTrade projects a trade onto the market's prior curve.
func (s *Service) EvaluateTrade(ctx context.Context, req TradeRequest) (TradeEvaluation, error) {
	req.MarketID = strings.TrimSpace(req.MarketID)
	req.Side = strings.ToLower(strings.TrimSpace(req.Side))
	if err := s.validate.Struct(req); err != nil {
		return TradeEvaluation{}, describeValidation(err)
	}
	notional, err := req.notional()
	if err != nil {
		return TradeEvaluation{}, err
	}
	side, err := pricing.ParseSide(req.Side)
	if err != nil {
		return TradeEvaluation{}, validationError("side must be buy or sell")
	}

	m, err := s.Get(ctx, req.MarketID)
	if err != nil {
		return TradeEvaluation{}, err
	}
	base, err := s.density(m)
	if err != nil {
		return TradeEvaluation{}, err
	}

	ranges := resolveRanges(req, m.Domain)
	res, err := s.sim.Project(base, ranges, m.Domain, side, notional, m.Stats)
	if err != nil {
		return TradeEvaluation{}, s.classify("project trade", err)
	}

	s.logger.Debug("trade evaluated",
		zap.String("market_id", m.ID),
		zap.String("side", string(side)),
		zap.Float64("notional_usd", notional),
		zap.Float64("cost_usd", res.CostUSD),
		zap.Int("ranges", len(ranges)),
	)
	return TradeEvaluation{
		MarketID:    m.ID,
		Ranges:      ranges,
		Density:     base,
		TradeResult: res,
	}, nil
}

// CreateMarket validates the request, registers the market through the
// gateway and stores it with a uniform prior over the default domain.
func (s *Service) CreateMarket(ctx context.Context, req CreateMarketRequest) (Market, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Unit = strings.TrimSpace(req.Unit)
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)
	req.Expiry = strings.TrimSpace(req.Expiry)
	if err := s.validate.Struct(req); err != nil {
		return Market{}, describeValidation(err)
	}

	now := s.now()
	expiry, err := time.Parse(time.RFC3339, req.Expiry)
	if err != nil {
		return Market{}, validationError("expiry must be an ISO-8601 datetime")
	}
	if expiry.Unix() <= 0 {
		return Market{}, validationError("expiry must be a positive unix timestamp")
	}
	if !expiry.After(now) {
		return Market{}, validationError("expiry must be in the future")
	}
	for i, c := range req.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Market{}, validationError("coefficients[%d] must be a finite number", i)
		}
	}

	domain := s.params.DefaultDomain
	ranges := make([]pricing.Range, 0, len(req.Ranges))
	for i, pair := range req.Ranges {
		if len(pair) != 2 {
			return Market{}, validationError("ranges[%d] must be a [min,max] pair", i)
		}
		if r, ok := (pricing.Range{Lo: pair[0], Hi: pair[1]}).Clamp(domain); ok {
			ranges = append(ranges, r)
		}
	}

	title := s.strict.Sanitize(req.Title)
	if title == "" {
		return Market{}, validationError("title is required")
	}
	html, err := s.renderDescription(req.Description)
	if err != nil {
		return Market{}, s.classify("render description", err)
	}

	m := Market{
		ID:              uuid.NewString(),
		Title:           title,
		Unit:            s.strict.Sanitize(req.Unit),
		Category:        strings.ToLower(s.strict.Sanitize(req.Category)),
		Description:     req.Description,
		DescriptionHTML: html,
		Expiry:          expiry.UTC(),
		Domain:          domain,
		Prior:           pricing.EncodePrior(pricing.Uniform{}),
		Stats:           DefaultStats(domain),
		Coefficients:    append([]float64(nil), req.Coefficients...),
		Ranges:          ranges,
		Seed:            pricing.ToRanges(req.Coefficients, domain),
	}

	receipt, err := s.gateway.Register(ctx, registrationFor(m))
	if err != nil {
		s.notifyFailure(ctx, m.Title, err.Error())
		return Market{}, wrapError(KindUpstream, "market registration failed", err)
	}
	if !receipt.Success {
		reason := receipt.Error
		if reason == "" {
			reason = "gateway rejected registration"
		}
		s.notifyFailure(ctx, m.Title, reason)
		return Market{}, &Error{Kind: KindUpstream, Message: reason}
	}

	m.Tx = receipt.Tx
	m.CreatedAt = now.UTC()
	if err := s.repo.Create(ctx, &m); err != nil {
		return Market{}, s.classify("store market", err)
	}

	s.logger.Info("market created",
		zap.String("market_id", m.ID),
		zap.String("title", m.Title),
		zap.String("tx", m.Tx),
		zap.Int("coefficients", len(m.Coefficients)),
		zap.Int("ranges", len(m.Ranges)),
	)
	if s.notifier != nil {
		if err := s.notifier.NotifyMarketCreated(ctx, m); err != nil {
			s.logger.Warn("notify market created", zap.Error(err))
		}
	}
	return m, nil
}

// Get returns a stored market or a not_found error.
func (s *Service) Get(ctx context.Context, id string) (Market, error) {
	if strings.TrimSpace(id) == "" {
		return Market{}, validationError("marketId is required")
	}
	m, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrMarketNotFound) {
		return Market{}, &Error{Kind: KindNotFound, Message: fmt.Sprintf("market %q not found", id), Err: err}
	}
	if err != nil {
		return Market{}, s.classify("load market", err)
	}
	return m, nil
}

// List returns up to limit markets, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Market, error) {
	if limit <= 0 {
		limit = s.listDefault
	}
	markets, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, s.classify("list markets", err)
	}
	return markets, nil
}

// Curve reports read-only analytics over the market's prior curve.
func (s *Service) Curve(ctx context.Context, id string, q CurveQuery) (CurveReport, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return CurveReport{}, err
	}
	d, err := s.density(m)
	if err != nil {
		return CurveReport{}, err
	}

	r := m.Domain.Full()
	if q.Lo != nil {
		r.Lo = *q.Lo
	}
	if q.Hi != nil {
		r.Hi = *q.Hi
	}
	clamped, ok := r.Clamp(m.Domain)
	if !ok {
		return CurveReport{}, validationError("range [%g,%g] does not overlap the market domain", r.Lo, r.Hi)
	}

	mode := pricing.FindMode(d)
	at := mode
	if q.X != nil {
		at = *q.X
	}

	return CurveReport{
		MarketID:    m.ID,
		Domain:      m.Domain,
		Density:     d,
		Moments:     pricing.ComputeMoments(d),
		TotalMass:   pricing.TotalMass(d),
		Mode:        mode,
		Median:      pricing.Quantile(d, 0.5),
		Range:       clamped,
		Probability: pricing.CumulativeProbability(d, clamped),
		DepthAt:     at,
		Depth:       s.params.LiquidityDepth(d, at),
	}, nil
}

func (s *Service) density(m Market) (pricing.Density, error) {
	prior, err := m.PriorSpec()
	if err != nil {
		return nil, s.classify("decode prior", err)
	}
	d, err := pricing.Evaluate(prior, m.Domain, s.params.Resolution)
	if err != nil {
		return nil, s.classify("evaluate prior", err)
	}
	return d, nil
}

func (s *Service) renderDescription(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return string(s.ugc.SanitizeBytes(buf.Bytes())), nil
}

func (s *Service) notifyFailure(ctx context.Context, title, reason string) {
	s.logger.Warn("market registration failed", zap.String("title", title), zap.String("reason", reason))
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRegistrationFailed(ctx, title, reason); err != nil {
		s.logger.Warn("notify registration failure", zap.Error(err))
	}
}

// classify maps pricing parameter errors to invalid_parameter and logs
// anything else as unexpected.
func (s *Service) classify(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, pricing.ErrInvalidParameter) {
		return wrapError(KindInvalidParameter, err.Error(), err)
	}
	s.logger.Error("unexpected failure", zap.String("op", op), zap.Error(err))
	return wrapError(KindUnexpected, op, err)
}

func (r TradeRequest) notional() (float64, error) {
	var v *float64
	switch {
	case r.NotionalUSD != nil:
		v = r.NotionalUSD
	case r.AmountUSD != nil:
		v = r.AmountUSD
	default:
		return 0, validationError("notionalUSD or amountUSD is required")
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, validationError("notional must be a non-negative number")
	}
	return *v, nil
}

// resolveRanges picks the first source yielding a usable range: explicit
// ranges, the single range, positively weighted coefficient buckets, and
// finally the whole domain.
func resolveRanges(req TradeRequest, d pricing.Domain) []pricing.Range {
	var sources [][]pricing.Range
	if len(req.Ranges) > 0 {
		rs := make([]pricing.Range, 0, len(req.Ranges))
		for _, pair := range req.Ranges {
			rs = append(rs, pricing.Range{Lo: pair[0], Hi: pair[1]})
		}
		sources = append(sources, rs)
	}
	if len(req.Range) == 2 {
		sources = append(sources, []pricing.Range{{Lo: req.Range[0], Hi: req.Range[1]}})
	}
	if len(req.Coefficients) > 0 {
		sources = append(sources, pricing.PositiveBuckets(req.Coefficients, d))
	}

	for _, src := range sources {
		if rs := pricing.ClampRanges(src, d); len(rs) > 0 {
			return rs
		}
	}
	return []pricing.Range{d.Full()}
}

func registrationFor(m Market) Registration {
	ranges := make([][]float64, 0, len(m.Ranges))
	for _, r := range m.Ranges {
		ranges = append(ranges, []float64{r.Lo, r.Hi})
	}
	return Registration{
		MarketID:     m.ID,
		Title:        m.Title,
		Unit:         m.Unit,
		Category:     m.Category,
		ExpiryUnix:   m.Expiry.Unix(),
		DomainMin:    m.Domain.Min,
		DomainMax:    m.Domain.Max,
		Coefficients: m.Coefficients,
		Ranges:       ranges,
	}
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationError("invalid request")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return validationError("%s is required", fe.Field())
	case "oneof":
		return validationError("%s must be one of [%s]", fe.Field(), fe.Param())
	case "len":
		return validationError("%s must be a pair of numbers", fe.Field())
	case "min":
		return validationError("%s must have at least %s entries", fe.Field(), fe.Param())
	case "max":
		return validationError("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return validationError("%s is invalid", fe.Field())
	}
}
