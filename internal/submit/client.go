// Package submit implements the resilient order-submission client:
// local validation, a retried idempotent POST against the durable
// store, and typed classification of every failure mode.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/storefront/internal/core/apperr"
	"github.com/vietddude/storefront/internal/core/config"
	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/metrics"
	"github.com/vietddude/storefront/internal/retry"
)

// Payload is an order submission request.
type Payload struct {
	SessionID     string                 `json:"session_id"`
	Customer      domain.CustomerContact `json:"customer"`
	Items         []domain.LineItem      `json:"items"`
	Pricing       domain.Pricing         `json:"pricing"`
	DiscountCents int64                  `json:"discount_cents"`
	TipCents      int64                  `json:"tip_cents"`
}

// Client submits orders to the external order store.
type Client struct {
	http     *http.Client
	endpoint string
	policy   retry.Policy
}

// NewClient creates a submission client from configuration.
func NewClient(cfg config.SubmitConfig) *Client {
	return &Client{
		http:     &http.Client{},
		endpoint: cfg.Endpoint,
		policy: retry.Policy{
			MaxAttempts:    cfg.MaxAttempts,
			BaseDelay:      cfg.BaseDelay,
			MaxDelay:       30 * time.Second,
			AttemptTimeout: cfg.AttemptTimeout,
			OnRetry: func(attempt int, err error) {
				metrics.SubmitAttempts.WithLabelValues(apperr.KindOf(err).String()).Inc()
				slog.Debug("Retrying order submission", "attempt", attempt, "error", err)
			},
		},
	}
}

// orderResponse is the store's creation response.
type orderResponse struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmitOrder places an order against the external store. Validation
// failures short-circuit locally with no network call. The network
// call is retried under the configured policy; every attempt reuses
// one idempotency key so the store creates at most one order no matter
// how many attempts raced. On terminal failure the most recent error
// is returned and no order exists to reconcile.
func (c *Client) SubmitOrder(ctx context.Context, payload *Payload) (*domain.Order, error) {
	if err := validate(payload); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Validation("", fmt.Sprintf("unencodable payload: %v", err))
	}

	// One key for the whole submission, not per attempt.
	idempotencyKey := uuid.NewString()

	resp, err := retry.Do(ctx, c.policy, func(ctx context.Context) (*orderResponse, error) {
		return c.attempt(ctx, body, idempotencyKey)
	})
	if err != nil {
		return nil, err
	}

	metrics.SubmitAttempts.WithLabelValues("ok").Inc()
	return &domain.Order{
		ID:          resp.ID,
		OrderNumber: resp.OrderNumber,
		SessionID:   payload.SessionID,
		Customer:    payload.Customer,
		Items:       payload.Items,
		Pricing:     payload.Pricing,
		Status:      domain.OrderStatusPendingConfirmation,
		CreatedAt:   resp.CreatedAt,
	}, nil
}

// attempt performs one POST and classifies the outcome.
func (c *Client) attempt(ctx context.Context, body []byte, idempotencyKey string) (*orderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Permanent(fmt.Sprintf("invalid submit request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.SubmitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		// Context errors pass through so the scheduler can classify
		// a deadline hit as a timeout.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperr.RateLimit(retryAfter(resp))
	case resp.StatusCode >= 500:
		return nil, apperr.Server(resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Validation("", fmt.Sprintf("order rejected (%d): %s", resp.StatusCode, msg))
	}

	var created orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, apperr.Retriable(fmt.Sprintf("malformed store response: %v", err))
	}
	if created.ID == "" {
		return nil, apperr.Retriable("store response missing order id")
	}
	return &created, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

func validate(payload *Payload) error {
	if payload == nil {
		return apperr.Validation("", "payload is required")
	}
	if payload.SessionID == "" {
		return apperr.Validation("session_id", "session id is required")
	}
	if len(payload.Items) == 0 {
		return apperr.Validation("items", "order must contain at least one item")
	}
	for _, li := range payload.Items {
		if li.ItemID == "" {
			return apperr.Validation("items", "line item is missing its item id")
		}
		if li.Quantity <= 0 {
			return apperr.Validation("items", fmt.Sprintf("item %s has non-positive quantity", li.ItemID))
		}
		if li.UnitPriceCents < 0 {
			return apperr.Validation("items", fmt.Sprintf("item %s has negative price", li.ItemID))
		}
	}
	if payload.Customer.Email == "" && payload.Customer.Phone == "" {
		return apperr.Validation("customer", "an email or phone contact is required")
	}
	return nil
}
