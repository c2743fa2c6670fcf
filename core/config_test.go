package core

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Delivery.MaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.attemptTimeout() != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %s", cfg.attemptTimeout())
	}
}

func TestConfigValidate(t *testing.T) {
	bad := Config{}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for missing service name")
	}
	negative := DefaultConfig()
	negative.Delivery.TimeoutSeconds = -1
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected error for negative timeout")
	}
	negative = DefaultConfig()
	negative.Delivery.MaxAttempts = -2
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected error for negative max attempts")
	}
}

func TestConfigAccessorFallbacks(t *testing.T) {
	zero := Config{ServiceName: "webhooks"}
	if zero.maxAttempts() != 3 {
		t.Fatalf("expected default max attempts fallback, got %d", zero.maxAttempts())
	}
	if zero.retryBatchLimit() != 100 {
		t.Fatalf("expected default batch limit fallback, got %d", zero.retryBatchLimit())
	}
	if zero.userAgent() != "go-webhooks/1.0" {
		t.Fatalf("expected default user agent fallback, got %q", zero.userAgent())
	}
	if zero.responseBodyLimit() != 2048 {
		t.Fatalf("expected default body limit fallback, got %d", zero.responseBodyLimit())
	}
}

func TestCfgxConfigProvider_MergesLoadedValues(t *testing.T) {
	provider := NewCfgxConfigProvider(staticRawConfigLoader{Values: map[string]any{
		"delivery": map[string]any{
			"timeout_seconds": 5,
			"user_agent":      "acme-hooks/2.0",
		},
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Delivery.TimeoutSeconds != 5 {
		t.Fatalf("expected loaded timeout, got %d", cfg.Delivery.TimeoutSeconds)
	}
	if cfg.Delivery.UserAgent != "acme-hooks/2.0" {
		t.Fatalf("expected loaded user agent, got %q", cfg.Delivery.UserAgent)
	}
	if cfg.Delivery.MaxAttempts != 3 {
		t.Fatalf("expected defaults backfilled, got %d", cfg.Delivery.MaxAttempts)
	}
}

func TestGoOptionsResolver_Precedence(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{Delivery: DeliveryConfig{TimeoutSeconds: 20, MaxAttempts: 5}}
	runtime := Config{Delivery: DeliveryConfig{TimeoutSeconds: 30}}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Delivery.TimeoutSeconds != 30 {
		t.Fatalf("runtime should win over loaded config, got %d", resolved.Delivery.TimeoutSeconds)
	}
	if resolved.Delivery.MaxAttempts != 5 {
		t.Fatalf("loaded config should win over defaults, got %d", resolved.Delivery.MaxAttempts)
	}
	if resolved.Delivery.RetryBatchLimit != 100 {
		t.Fatalf("defaults should fill the rest, got %d", resolved.Delivery.RetryBatchLimit)
	}
	if resolved.ServiceName != "webhooks" {
		t.Fatalf("expected default service name, got %q", resolved.ServiceName)
	}
}
