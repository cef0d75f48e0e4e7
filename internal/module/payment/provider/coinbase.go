package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const coinbaseAPIVersion = "2018-03-22"

// CoinbaseProvider implements the CryptoProvider interface for
// Coinbase Commerce hosted charges.
type CoinbaseProvider struct {
	apiKey        string
	baseURL       string
	webhookSecret string
	client        *http.Client
}

// CoinbaseConfig holds Coinbase Commerce configuration.
type CoinbaseConfig struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
}

// NewCoinbaseProvider creates a new Coinbase Commerce provider.
func NewCoinbaseProvider(config *CoinbaseConfig, client *http.Client) *CoinbaseProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CoinbaseProvider{
		apiKey:        config.APIKey,
		baseURL:       strings.TrimSuffix(config.BaseURL, "/"),
		webhookSecret: config.WebhookSecret,
		client:        client,
	}
}

// Name returns the provider name.
func (p *CoinbaseProvider) Name() string {
	return "coinbase"
}

type coinbaseCharge struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	HostedURL string            `json:"hosted_url"`
	Metadata  map[string]string `json:"metadata"`
	ExpiresAt time.Time         `json:"expires_at"`
	Pricing   struct {
		Local struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"local"`
	} `json:"pricing"`
	Timeline []struct {
		Status string    `json:"status"`
		Time   time.Time `json:"time"`
	} `json:"timeline"`
}

type coinbaseEnvelope struct {
	Data  coinbaseCharge `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCharge creates a fixed-price hosted charge.
func (p *CoinbaseProvider) CreateCharge(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*CryptoCharge, error) {
	body := map[string]interface{}{
		"name":         "Bricollano booking",
		"description":  description,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   formatMinorUnits(amount),
			"currency": strings.ToUpper(currency),
		},
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}

	var envelope coinbaseEnvelope
	if err := p.do(ctx, http.MethodPost, "/charges", body, &envelope); err != nil {
		return nil, err
	}
	return p.toCryptoCharge(&envelope.Data, amount, currency), nil
}

// GetCharge retrieves a charge by id or code.
func (p *CoinbaseProvider) GetCharge(ctx context.Context, chargeID string) (*CryptoCharge, error) {
	var envelope coinbaseEnvelope
	if err := p.do(ctx, http.MethodGet, "/charges/"+chargeID, nil, &envelope); err != nil {
		return nil, err
	}
	return p.toCryptoCharge(&envelope.Data, 0, ""), nil
}

// VerifyWebhookSignature verifies the X-CC-Webhook-Signature HMAC.
func (p *CoinbaseProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: webhook signature mismatch", ErrRejected)
	}
	return nil
}

func (p *CoinbaseProvider) do(ctx context.Context, method, path string, body interface{}, out *coinbaseEnvelope) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CC-Api-Key", p.apiKey)
	req.Header.Set("X-CC-Version", coinbaseAPIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("coinbase %s %s: %w: %v", method, path, ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w: %v", ErrTransient, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("coinbase %s %s: %w: status %d", method, path, ErrTransient, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := "unknown error"
		if out.Error != nil {
			msg = out.Error.Message
		}
		return fmt.Errorf("coinbase %s %s: %w: %s", method, path, ErrRejected, msg)
	}

	return nil
}

func (p *CoinbaseProvider) toCryptoCharge(c *coinbaseCharge, amount int64, currency string) *CryptoCharge {
	charge := &CryptoCharge{
		ID:        c.ID,
		Code:      c.Code,
		HostedURL: c.HostedURL,
		Amount:    amount,
		Currency:  currency,
		Status:    "NEW",
		Metadata:  c.Metadata,
	}
	if !c.ExpiresAt.IsZero() {
		charge.ExpiresAt = c.ExpiresAt.Unix()
	}
	if len(c.Timeline) > 0 {
		last := c.Timeline[len(c.Timeline)-1]
		charge.Status = last.Status
		if last.Status == "COMPLETED" || last.Status == "RESOLVED" {
			charge.ResolvedAt = last.Time.Unix()
		}
	}
	return charge
}

// formatMinorUnits renders cents as a decimal amount string ("10050" -> "100.50").
func formatMinorUnits(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
