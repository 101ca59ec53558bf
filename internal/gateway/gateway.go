// Package gateway talks to the external payment provider. Orders are
// created remotely; signatures are verified locally against the shared
// secret, so settlement never needs a second round trip.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Config struct {
	BaseURL string
	KeyID   string
	Secret  string
	Timeout time.Duration
}

// Client is the surface the payment services depend on.
type Client interface {
	// CreateOrder registers an order for amount in minor units and
	// returns the provider's order reference.
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency string) (string, error)
	// VerifySignature checks the provider signature over
	// orderRef|paymentRef.
	VerifySignature(orderRef, paymentRef, signature string) bool
}

type HTTPClient struct {
	baseURL    string
	keyID      string
	secret     string
	httpClient *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		keyID:   cfg.KeyID,
		secret:  cfg.Secret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) CreateOrder(ctx context.Context, amountMinorUnits int64, currency string) (string, error) {
	body, err := json.Marshal(createOrderRequest{Amount: amountMinorUnits, Currency: currency})
	if err != nil {
		return "", fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var result createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("gateway returned empty order id")
	}
	return result.ID, nil
}

func (c *HTTPClient) VerifySignature(orderRef, paymentRef, signature string) bool {
	return VerifySignature(c.secret, orderRef, paymentRef, signature)
}

// VerifySignature computes HMAC-SHA256 over "orderRef|paymentRef" with
// secret and compares it to the hex signature in constant time.
func VerifySignature(secret, orderRef, paymentRef, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the signature VerifySignature accepts. Exported for the
// sandbox tooling and tests.
func Sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}
