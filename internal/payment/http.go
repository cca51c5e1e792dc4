package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfirmer calls the payment provider's confirmation endpoint. The
// order id is sent as the Idempotency-Key header so the provider can
// deduplicate retries on its side too.
type HTTPConfirmer struct {
	URL    string
	Client *http.Client
}

// NewHTTPConfirmer returns a confirmer for url with the given timeout.
func NewHTTPConfirmer(url string, timeout time.Duration) *HTTPConfirmer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPConfirmer{URL: url, Client: &http.Client{Timeout: timeout}}
}

type confirmRequest struct {
	OrderID      string `json:"order_id"`
	PaymentToken string `json:"payment_token"`
	Amount       int64  `json:"amount"`
}

type confirmResponse struct {
	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
	Message    string `json:"message"`
}

// Confirm posts the order to the provider. 2xx with status "succeeded" is a
// success; 408, 429, 5xx and transport errors map to ErrUnavailable; every
// other response is ErrDeclined.
func (h *HTTPConfirmer) Confirm(ctx context.Context, orderID, paymentToken string, amount int64) (Result, error) {
	body, err := json.Marshal(confirmRequest{OrderID: orderID, PaymentToken: paymentToken, Amount: amount})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", orderID)

	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Result{}, fmt.Errorf("%w: provider returned %d", ErrDeclined, resp.StatusCode)
	}

	var out confirmResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if out.Status != "succeeded" {
		msg := out.Message
		if msg == "" {
			msg = out.Status
		}
		return Result{}, fmt.Errorf("%w: %s", ErrDeclined, msg)
	}
	if out.Amount != 0 && out.Amount != amount {
		return Result{}, fmt.Errorf("%w: provider confirmed %d, expected %d", ErrDeclined, out.Amount, amount)
	}
	return Result{OrderID: orderID, Ref: out.PaymentRef, Amount: amount}, nil
}
