package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type httpProvider struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = new(httpProvider)

func NewHttpProvider(baseUrl string, apiKey string, timeout time.Duration) *httpProvider {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpProvider{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// call retries transient provider failures. Creation requests carry an
// idempotency key, so a retried create cannot double-charge.
func (p *httpProvider) call(ctx context.Context, method string, path string, body any) (*Payment, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}
	var payment Payment
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, p.baseUrl+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("payment provider transient error: status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("payment provider returned status %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (p *httpProvider) CreatePayment(ctx context.Context, spec *PaymentSpec) (*Payment, error) {
	return p.call(ctx, http.MethodPost, "/payments", spec)
}

func (p *httpProvider) CheckPaymentStatus(ctx context.Context, id string) (*Payment, error) {
	return p.call(ctx, http.MethodGet, "/payments/"+id, nil)
}

func (p *httpProvider) CancelPayment(ctx context.Context, id string) (*Payment, error) {
	return p.call(ctx, http.MethodPost, "/payments/"+id+"/cancel", nil)
}

func (p *httpProvider) RefundPayment(ctx context.Context, id string, amount string, reason string) (*Payment, error) {
	body := map[string]any{}
	if amount != "" {
		body["amount"] = amount
	}
	if reason != "" {
		body["reason"] = reason
	}
	return p.call(ctx, http.MethodPost, "/payments/"+id+"/refund", body)
}
