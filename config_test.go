package goAccount

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "default valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "max validity negative",
			mutate: func(c *Config) {
				c.SessionKeys.MaxValidity = -1
			},
			wantValid: false,
		},
		{
			name: "max validity too large",
			mutate: func(c *Config) {
				c.SessionKeys.MaxValidity = 1<<63 - 1
			},
			wantValid: false,
		},
		{
			name: "verify hash without chain",
			mutate: func(c *Config) {
				c.Validation.VerifyUserOpHash = true
			},
			wantValid: false,
		},
		{
			name: "verify hash with chain",
			mutate: func(c *Config) {
				c.Validation.VerifyUserOpHash = true
				c.Validation.ChainID = 11155111
			},
			wantValid: true,
		},
		{
			name: "key prefix blank",
			mutate: func(c *Config) {
				c.Store.KeyPrefix = "  "
			},
			wantValid: false,
		},
		{
			name: "key prefix with separator",
			mutate: func(c *Config) {
				c.Store.KeyPrefix = "aa:prod"
			},
			wantValid: false,
		},
		{
			name: "grant ed25519 without keys",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
			},
			wantValid: false,
		},
		{
			name: "grant hs256 short secret",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
				c.Grant.SigningMethod = "hs256"
				c.Grant.PrivateKey = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "grant hs256 valid",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
				c.Grant.SigningMethod = "hs256"
				c.Grant.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
			},
			wantValid: true,
		},
		{
			name: "grant signing invalid",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
				c.Grant.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "grant leeway invalid",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
				c.Grant.SigningMethod = "hs256"
				c.Grant.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
				c.Grant.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "disabled grant ignores keys",
			mutate: func(c *Config) {
				c.Grant.SigningMethod = "rs256"
			},
			wantValid: true,
		},
		{
			name: "audit buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "latency without metrics",
			mutate: func(c *Config) {
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestHighSecurityConfigValid(t *testing.T) {
	cfg := HighSecurityConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid preset, got %v", err)
	}
	if cfg.SessionKeys.MaxValidity != 86400 {
		t.Fatalf("expected one day cap, got %d", cfg.SessionKeys.MaxValidity)
	}
	if !cfg.Audit.Enabled || cfg.Audit.DropIfFull {
		t.Fatalf("expected lossless audit, got %+v", cfg.Audit)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grant.PrivateKey = []byte{1, 2, 3}
	out := cloneConfig(cfg)
	cfg.Grant.PrivateKey[0] = 9
	if out.Grant.PrivateKey[0] != 1 {
		t.Fatal("clone must not alias key material")
	}
}
