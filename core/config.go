package core

import (
	"fmt"
	"strings"
	"time"
)

type DeliveryConfig struct {
	TimeoutSeconds    int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxAttempts       int    `koanf:"max_attempts" mapstructure:"max_attempts"`
	RetryBatchLimit   int    `koanf:"retry_batch_limit" mapstructure:"retry_batch_limit"`
	UserAgent         string `koanf:"user_agent" mapstructure:"user_agent"`
	ResponseBodyLimit int    `koanf:"response_body_limit" mapstructure:"response_body_limit"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Delivery    DeliveryConfig `koanf:"delivery" mapstructure:"delivery"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "webhooks",
		Delivery: DeliveryConfig{
			TimeoutSeconds:    10,
			MaxAttempts:       3,
			RetryBatchLimit:   100,
			UserAgent:         "go-webhooks/1.0",
			ResponseBodyLimit: 2048,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Delivery.TimeoutSeconds < 0 {
		return fmt.Errorf("core: delivery.timeout_seconds must not be negative")
	}
	if c.Delivery.MaxAttempts < 0 {
		return fmt.Errorf("core: delivery.max_attempts must not be negative")
	}
	return nil
}

func (c Config) attemptTimeout() time.Duration {
	if c.Delivery.TimeoutSeconds <= 0 {
		return time.Duration(DefaultConfig().Delivery.TimeoutSeconds) * time.Second
	}
	return time.Duration(c.Delivery.TimeoutSeconds) * time.Second
}

func (c Config) maxAttempts() int {
	if c.Delivery.MaxAttempts <= 0 {
		return DefaultConfig().Delivery.MaxAttempts
	}
	return c.Delivery.MaxAttempts
}

func (c Config) retryBatchLimit() int {
	if c.Delivery.RetryBatchLimit <= 0 {
		return DefaultConfig().Delivery.RetryBatchLimit
	}
	return c.Delivery.RetryBatchLimit
}

func (c Config) userAgent() string {
	if strings.TrimSpace(c.Delivery.UserAgent) == "" {
		return DefaultConfig().Delivery.UserAgent
	}
	return strings.TrimSpace(c.Delivery.UserAgent)
}

func (c Config) responseBodyLimit() int {
	if c.Delivery.ResponseBodyLimit <= 0 {
		return DefaultConfig().Delivery.ResponseBodyLimit
	}
	return c.Delivery.ResponseBodyLimit
}
