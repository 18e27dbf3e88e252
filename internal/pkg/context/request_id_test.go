package context

import (
	"context"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "rid-1")
	if got := GetRequestID(ctx); got != "rid-1" {
		t.Fatalf("expected rid-1, got %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	//nolint:staticcheck // nil context is tolerated
	if got := GetRequestID(nil); got != "" {
		t.Fatalf("expected empty for nil ctx, got %q", got)
	}
}

func TestClientIP_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithClientIP(context.Background(), "10.0.0.1")
	if got := GetClientIP(ctx); got != "10.0.0.1" {
		t.Fatalf("expected 10.0.0.1, got %q", got)
	}
	// a plain string key must not collide
	ctx = context.WithValue(context.Background(), "client_ip", "spoof") //nolint:staticcheck
	if got := GetClientIP(ctx); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
