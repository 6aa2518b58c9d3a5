package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoPolymarket/range-market/internal/market"
)

func sampleRegistration() market.Registration {
	return market.Registration{
		MarketID:     "3f1c9a2e-0000-4000-8000-000000000001",
		Title:        "Rainfall",
		Unit:         "mm",
		Category:     "weather",
		ExpiryUnix:   1780272000,
		DomainMin:    0,
		DomainMax:    100,
		Coefficients: []float64{1, 2, 1},
		Ranges:       [][]float64{{0, 20}},
	}
}

func TestRegisterSuccess(t *testing.T) {
	var got registerRequest
	var idem, creator, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idem = r.Header.Get("Idempotency-Key")
		creator = r.Header.Get("X-Creator-Address")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(market.Receipt{Success: true, Tx: "0xfeed"})
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "0xCreator", time.Second)
	receipt, err := g.Register(context.Background(), sampleRegistration())
	require.NoError(t, err)

	assert.Equal(t, market.Receipt{Success: true, Tx: "0xfeed"}, receipt)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, sampleRegistration().MarketID, idem)
	assert.Equal(t, "0xCreator", creator)
	assert.Equal(t, "0xCreator", got.Creator)
	assert.Equal(t, sampleRegistration(), got.Registration)
}

func TestRegisterRelayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(market.Receipt{Success: false, Error: "insufficient gas"})
	}))
	defer server.Close()

	receipt, err := NewHTTPGateway(server.URL, "", time.Second).Register(context.Background(), sampleRegistration())
	require.NoError(t, err)
	assert.False(t, receipt.Success)
	assert.Equal(t, "insufficient gas", receipt.Error)
}

func TestRegisterRelayErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	receipt, err := NewHTTPGateway(server.URL, "", time.Second).Register(context.Background(), sampleRegistration())
	require.NoError(t, err)
	assert.False(t, receipt.Success)
	assert.Equal(t, "relay returned 502", receipt.Error)
}

func TestRegisterSuccessWithoutTx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	receipt, err := NewHTTPGateway(server.URL, "", time.Second).Register(context.Background(), sampleRegistration())
	require.NoError(t, err)
	assert.False(t, receipt.Success)
}

func TestRegisterMalformedReceipt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewHTTPGateway(server.URL, "", time.Second).Register(context.Background(), sampleRegistration())
	assert.ErrorContains(t, err, "decode receipt")
}

func TestRegisterHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPGateway(server.URL, "", 5*time.Second).Register(ctx, sampleRegistration())
	assert.Error(t, err)
}

func TestCreatorAddressRejectsGarbage(t *testing.T) {
	_, err := CreatorAddress("not-a-key")
	assert.Error(t, err)
}
