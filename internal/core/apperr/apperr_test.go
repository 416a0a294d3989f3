package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindRetryable(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{Validation("email", "required"), false},
		{Permanent("order already delivered"), false},
		{InsufficientStock("item-1", 3, 1), false},
		{RateLimit(2 * time.Second), true},
		{Timeout(10 * time.Second), true},
		{Network(errors.New("connection refused")), true},
		{Server(503), true},
		{Retriable("store busy"), true},
		{errors.New("unclassified"), true},
	}

	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.retryable {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
}

func TestKindOf_WrappedChain(t *testing.T) {
	base := Server(502)
	wrapped := fmt.Errorf("submit failed: %w", base)

	if got := KindOf(wrapped); got != KindServer {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindServer)
	}
	if !Is(wrapped, KindServer) {
		t.Error("Expected Is to find KindServer through the wrap")
	}

	var appErr *Error
	if !errors.As(wrapped, &appErr) {
		t.Fatal("Expected errors.As to extract *Error")
	}
	if appErr.StatusCode != 502 {
		t.Errorf("Expected status 502, got %d", appErr.StatusCode)
	}
}

func TestError_KindData(t *testing.T) {
	rl := RateLimit(7 * time.Second)
	if rl.RetryAfter != 7*time.Second {
		t.Errorf("Expected RetryAfter 7s, got %s", rl.RetryAfter)
	}

	v := Validation("quantity", "must be positive")
	if v.Field != "quantity" {
		t.Errorf("Expected field quantity, got %s", v.Field)
	}
}
