// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.HTTPPort != 6966 || cfg.GRPCPort != 6565 {
		t.Errorf("ports = %d/%d, expected 6966/6565", cfg.HTTPPort, cfg.GRPCPort)
	}
	if cfg.MailboxCapacity != 1000 {
		t.Errorf("MailboxCapacity = %d, expected 1000", cfg.MailboxCapacity)
	}
	if cfg.ReplyTimeout != 5*time.Second {
		t.Errorf("ReplyTimeout = %v, expected 5s", cfg.ReplyTimeout)
	}
	if cfg.PriceChannel != "price_updates" {
		t.Errorf("PriceChannel = %q", cfg.PriceChannel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("REPLY_TIMEOUT", "250ms")
	t.Setenv("PRICE_FEED", "nats")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.HTTPPort != 8081 || cfg.StoreBackend != "sqlite" || cfg.ReplyTimeout != 250*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.UsesNATS() || cfg.UsesRedis() {
		t.Errorf("UsesNATS() = %v, UsesRedis() = %v", cfg.UsesNATS(), cfg.UsesRedis())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad http port", func(c *Config) { c.HTTPPort = 0 }, "HTTP_PORT"},
		{"same ports", func(c *Config) { c.GRPCPort = c.HTTPPort }, "must differ"},
		{"zero reply timeout", func(c *Config) { c.ReplyTimeout = 0 }, "REPLY_TIMEOUT"},
		{"empty mailbox", func(c *Config) { c.MailboxCapacity = 0 }, "MAILBOX_CAPACITY"},
		{"unknown store", func(c *Config) { c.StoreBackend = "postgres" }, "STORE_BACKEND"},
		{"unknown feed", func(c *Config) { c.PriceFeed = "kafka" }, "PRICE_FEED"},
		{"unknown asset field", func(c *Config) { c.PriceAssetField = "symbol" }, "PRICE_ASSET_FIELD"},
		{"unknown swap executor", func(c *Config) { c.SwapExecutor = "jupiter" }, "SWAP_EXECUTOR"},
		{"sqlite without path", func(c *Config) { c.StoreBackend = "sqlite"; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"sample ratio", func(c *Config) { c.OtelSampleRatio = 2 }, "OTEL_SAMPLE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse()
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, expected mention of %s", err, tt.wantErr)
			}
		})
	}
}
