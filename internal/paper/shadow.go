package paper

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/GoPolymarket/range-market/internal/market"
)

// ShadowGateway logs the payload a live registration would send to endpoint
// and books it on the paper gateway instead.
type ShadowGateway struct {
	*Gateway
	endpoint string
	logger   *zap.Logger
}

func NewShadowGateway(g *Gateway, endpoint string, logger *zap.Logger) *ShadowGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShadowGateway{Gateway: g, endpoint: endpoint, logger: logger}
}

func (s *ShadowGateway) Register(ctx context.Context, reg market.Registration) (market.Receipt, error) {
	payload, err := json.Marshal(reg)
	if err != nil {
		return market.Receipt{}, err
	}
	s.logger.Info("shadow registration",
		zap.String("market_id", reg.MarketID),
		zap.String("endpoint", s.endpoint),
		zap.ByteString("payload", payload),
	)
	return s.Gateway.Register(ctx, reg)
}
