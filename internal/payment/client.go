// internal/payment/client.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Client is the JSON-over-HTTP gateway adapter.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, currency string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		currency: currency,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chargeRequest struct {
	Reference    string `json:"reference"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PayerName    string `json:"payer_name"`
	PayerEmail   string `json:"payer_email"`
	PayerContact string `json:"payer_contact,omitempty"`
}

type chargeResponse struct {
	Success    bool   `json:"success"`
	PaymentRef string `json:"payment_ref"`
	ErrorCode  string `json:"error_code"`
}

// AuthorizeAndCapture posts a single charge. A 2xx with success=false and a
// 402/422 both map to DeclinedError; anything else unexpected maps to
// GatewayError and is retryable by the user.
func (c *Client) AuthorizeAndCapture(ctx context.Context, reference string, amount int64, payer Payer) (Result, error) {
	body, err := json.Marshal(chargeRequest{
		Reference:    reference,
		Amount:       amount,
		Currency:     c.currency,
		PayerName:    payer.Name,
		PayerEmail:   payer.Email,
		PayerContact: payer.Contact,
	})
	if err != nil {
		return Result{}, GatewayError{Err: fmt.Errorf("encode charge request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return Result{}, GatewayError{Err: fmt.Errorf("build charge request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, GatewayError{Err: fmt.Errorf("charge request failed: %w", err)}
	}
	defer resp.Body.Close()

	var charge chargeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&charge)

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return Result{}, DeclinedError{Code: charge.ErrorCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.Warn().Int("status", resp.StatusCode).Str("reference", reference).Msg("Payment gateway returned error status")
		return Result{}, GatewayError{Status: resp.StatusCode}
	case decodeErr != nil:
		return Result{}, GatewayError{Err: fmt.Errorf("decode charge response: %w", decodeErr)}
	case !charge.Success:
		return Result{}, DeclinedError{Code: charge.ErrorCode}
	}

	return Result{PaymentRef: charge.PaymentRef}, nil
}
