package otel

import (
	"context"
	"testing"

	"dustchain/config"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =skip,tenant=dust")
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %v", got)
	}
	if got["api-key"] != "abc" || got["tenant"] != "dust" {
		t.Fatalf("unexpected headers %v", got)
	}
}

func TestInitWithoutExporters(t *testing.T) {
	cfg := FromTelemetry("dustd", "test", config.Telemetry{}, "")
	if cfg.Enabled() {
		t.Fatalf("expected exporters disabled")
	}
	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing service name to fail")
	}
}
