package submit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/storefront/internal/core/apperr"
	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/retry"
)

func testClient(endpoint string, maxAttempts int) *Client {
	return &Client{
		http:     &http.Client{},
		endpoint: endpoint,
		policy: retry.Policy{
			MaxAttempts:    maxAttempts,
			BaseDelay:      time.Millisecond,
			MaxDelay:       5 * time.Millisecond,
			AttemptTimeout: time.Second,
		},
	}
}

func validPayload() *Payload {
	return &Payload{
		SessionID: "sess-1",
		Customer:  domain.CustomerContact{Name: "Dana", Email: "dana@example.com"},
		Items: []domain.LineItem{
			{ItemID: "ramen", Name: "Ramen", Quantity: 2, UnitPriceCents: 1200},
		},
		Pricing: domain.Pricing{SubtotalCents: 2400, TotalCents: 2400},
	}
}

func TestSubmitOrder_InvalidPayloadNeverHitsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	client := testClient(srv.URL, 3)

	tests := []struct {
		name    string
		mutate  func(*Payload)
		field   string
	}{
		{"missing session", func(p *Payload) { p.SessionID = "" }, "session_id"},
		{"no items", func(p *Payload) { p.Items = nil }, "items"},
		{"zero quantity", func(p *Payload) { p.Items[0].Quantity = 0 }, "items"},
		{"negative price", func(p *Payload) { p.Items[0].UnitPriceCents = -1 }, "items"},
		{"no contact", func(p *Payload) { p.Customer = domain.CustomerContact{Name: "Dana"} }, "customer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(payload)
			_, err := client.SubmitOrder(context.Background(), payload)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, appErr.Field)
			}
		})
	}

	if got := hits.Load(); got != 0 {
		t.Errorf("Expected zero requests for invalid payloads, got %d", got)
	}
}

func TestSubmitOrder_ServerErrorExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	client := testClient(srv.URL, 3)

	_, err := client.SubmitOrder(context.Background(), validPayload())
	if !apperr.Is(err, apperr.KindServer) {
		t.Errorf("Expected server error, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestSubmitOrder_RejectionDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"unknown menu item"}`))
	}))
	defer srv.Close()
	client := testClient(srv.URL, 3)

	_, err := client.SubmitOrder(context.Background(), validPayload())
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("Expected exactly 1 attempt for a 4xx rejection, got %d", got)
	}
}

func TestSubmitOrder_RateLimitCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	client := testClient(srv.URL, 1)

	_, err := client.SubmitOrder(context.Background(), validPayload())
	if !apperr.Is(err, apperr.KindRateLimit) {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected *apperr.Error, got %T", err)
	}
	if appErr.RetryAfter != 7*time.Second {
		t.Errorf("Expected RetryAfter 7s, got %s", appErr.RetryAfter)
	}
}

func TestSubmitOrder_IdempotencyKeyStableAcrossRetries(t *testing.T) {
	var keys []string
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ord-42","order_number":"ORD-2001","created_at":"2025-06-01T12:00:00Z"}`))
	}))
	defer srv.Close()
	client := testClient(srv.URL, 3)

	order, err := client.SubmitOrder(context.Background(), validPayload())
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(keys))
	}
	if keys[0] == "" {
		t.Fatal("Expected a non-empty idempotency key")
	}
	for i, key := range keys[1:] {
		if key != keys[0] {
			t.Errorf("Attempt %d sent key %q, want %q", i+2, key, keys[0])
		}
	}
	if order.ID != "ord-42" {
		t.Errorf("Expected order id ord-42, got %q", order.ID)
	}
}

func TestSubmitOrder_SuccessParsesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ord-7","order_number":"ORD-1007","created_at":"2025-06-01T12:00:00Z"}`))
	}))
	defer srv.Close()
	client := testClient(srv.URL, 3)

	payload := validPayload()
	order, err := client.SubmitOrder(context.Background(), payload)
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if order.ID != "ord-7" || order.OrderNumber != "ORD-1007" {
		t.Errorf("Unexpected order identity: %s / %s", order.ID, order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPendingConfirmation {
		t.Errorf("Expected pending status, got %s", order.Status)
	}
	if order.SessionID != payload.SessionID {
		t.Errorf("Expected session carried over, got %q", order.SessionID)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !order.CreatedAt.Equal(want) {
		t.Errorf("Expected created_at %s, got %s", want, order.CreatedAt)
	}
}

func TestSubmitOrder_MissingIDRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"order_number":"ORD-9"}`))
	}))
	defer srv.Close()
	client := testClient(srv.URL, 2)

	_, err := client.SubmitOrder(context.Background(), validPayload())
	if !apperr.Is(err, apperr.KindRetriable) {
		t.Errorf("Expected retriable error, got %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}
