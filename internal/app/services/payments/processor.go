package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/emphub/workforce/internal/app/domain/payment"
	"github.com/emphub/workforce/pkg/logger"
)

// HTTPProcessor talks to a Stripe-style payment processor over HTTPS. It
// makes a single attempt per call with a bounded timeout.
type HTTPProcessor struct {
	client    *http.Client
	baseURL   string
	secretKey string
	log       *logger.Logger
}

// NewHTTPProcessor constructs a processor client for the given API base URL.
func NewHTTPProcessor(client *http.Client, baseURL, secretKey string, log *logger.Logger) (*HTTPProcessor, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("processor endpoint required")
	}
	if secretKey == "" {
		return nil, fmt.Errorf("processor secret key required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("payment-processor")
	}
	return &HTTPProcessor{
		client:    client,
		baseURL:   baseURL,
		secretKey: secretKey,
		log:       log,
	}, nil
}

// CreateIntent requests a card-payable payment intent for the amount in
// minor currency units.
func (p *HTTPProcessor) CreateIntent(ctx context.Context, amountMinor int64, currency string) (payment.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return payment.Intent{}, fmt.Errorf("build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return payment.Intent{}, fmt.Errorf("intent request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return payment.Intent{}, fmt.Errorf("read intent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := gjson.GetBytes(body, "error.message").String()
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		return payment.Intent{}, fmt.Errorf("processor status %d: %s", resp.StatusCode, message)
	}

	clientSecret := gjson.GetBytes(body, "client_secret").String()
	if clientSecret == "" {
		return payment.Intent{}, fmt.Errorf("processor response missing client secret")
	}

	return payment.Intent{
		ProcessorID:  gjson.GetBytes(body, "id").String(),
		ClientSecret: clientSecret,
		Status:       normalizeIntentStatus(gjson.GetBytes(body, "status").String()),
	}, nil
}

// GetIntentStatus fetches the current processor-side status of an intent.
func (p *HTTPProcessor) GetIntentStatus(ctx context.Context, processorID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/payment_intents/"+url.PathEscape(processorID), nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("processor status %d", resp.StatusCode)
	}

	return gjson.GetBytes(body, "status").String(), nil
}

// normalizeIntentStatus maps processor statuses onto the ledger's three
// intent states. Anything not terminal stays pending.
func normalizeIntentStatus(raw string) string {
	switch raw {
	case "succeeded":
		return payment.IntentStatusSucceeded
	case "canceled":
		return payment.IntentStatusFailed
	default:
		return payment.IntentStatusPending
	}
}
