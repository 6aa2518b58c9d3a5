package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"

	"github.com/GoPolymarket/range-market/internal/market"
)

const polygonChainID = 137

// CreatorAddress derives the hex address that signs market registrations.
func CreatorAddress(privateKey string) (string, error) {
	signer, err := auth.NewPrivateKeySigner(strings.TrimSpace(privateKey), polygonChainID)
	if err != nil {
		return "", fmt.Errorf("chain: signer: %w", err)
	}
	return signer.Address().Hex(), nil
}

// HTTPGateway registers markets by posting them to the on-chain relay.
type HTTPGateway struct {
	endpoint   string
	creator    string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway for endpoint. creator is sent with every
// registration so the relay can attribute the market.
func NewHTTPGateway(endpoint, creator string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		endpoint:   endpoint,
		creator:    creator,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type registerRequest struct {
	market.Registration
	Creator string `json:"creator,omitempty"`
}

// Register posts reg to the relay. A relay that answers with an error body
// yields an unsuccessful receipt; transport failures are returned as errors.
func (g *HTTPGateway) Register(ctx context.Context, reg market.Registration) (market.Receipt, error) {
	body, err := json.Marshal(registerRequest{Registration: reg, Creator: g.creator})
	if err != nil {
		return market.Receipt{}, fmt.Errorf("chain: encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return market.Receipt{}, fmt.Errorf("chain: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reg.MarketID)
	if g.creator != "" {
		req.Header.Set("X-Creator-Address", g.creator)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return market.Receipt{}, fmt.Errorf("chain: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return market.Receipt{}, fmt.Errorf("chain: read response: %w", err)
	}

	var receipt market.Receipt
	decodeErr := json.Unmarshal(raw, &receipt)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := receipt.Error
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("relay returned %d", resp.StatusCode)
		}
		return market.Receipt{Success: false, Error: msg}, nil
	}
	if decodeErr != nil {
		return market.Receipt{}, fmt.Errorf("chain: decode receipt: %w", decodeErr)
	}
	if receipt.Success && receipt.Tx == "" {
		return market.Receipt{Success: false, Error: "relay returned no transaction hash"}, nil
	}
	return receipt, nil
}
