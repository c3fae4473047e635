package errno

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(ErrNotFound, "Video not found in generation service")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("did not expect match with ErrUpstreamUnavailable")
	}

	wrapped := fmt.Errorf("refresh: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("expected match through fmt wrapping")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(ErrUpstreamUnavailable, "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if err.Message != ErrUpstreamUnavailable.Message {
		t.Fatalf("expected default message, got %q", err.Message)
	}
	if !IsRetryable(err) {
		t.Fatalf("upstream unavailable should be retryable")
	}
	if IsRetryable(New(ErrProtocol, "bad payload")) {
		t.Fatalf("protocol errors must not be retryable")
	}
}

func TestWithCode(t *testing.T) {
	err := WithCode(ErrUpstreamUnavailable, http.StatusUnprocessableEntity, "prompt rejected")
	if err.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected code %d", err.Code)
	}
	got, ok := From(fmt.Errorf("generate: %w", err))
	if !ok || got.Message != "prompt rejected" {
		t.Fatalf("From did not recover errno: %#v", got)
	}
}
