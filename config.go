package goAccount

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Config controls an Account. Obtain a baseline from DefaultConfig and adjust
// fields before passing it to Builder.WithConfig.
type Config struct {
	SessionKeys SessionKeyConfig
	Validation  ValidationConfig
	Store       StoreConfig
	Grant       GrantConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
SESSION KEY CONFIG
====================================
*/

// SessionKeyConfig bounds session-key lifetimes.
type SessionKeyConfig struct {
	// MaxValidity caps validitySeconds in AddSessionKey. 0 = no cap.
	MaxValidity int64
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig controls ValidateUserOp.
type ValidationConfig struct {
	// PackSessionKeyWindow packs the session key expiry as validUntil, so the
	// EntryPoint enforces the window as well.
	PackSessionKeyWindow bool
	// VerifyUserOpHash recomputes the userOpHash from the operation and
	// rejects mismatches. Requires ChainID.
	VerifyUserOpHash bool
	ChainID          int64
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig namespaces the registry backend.
type StoreConfig struct {
	KeyPrefix string
}

/*
====================================
GRANT CONFIG
====================================
*/

// GrantConfig controls signed off-chain session grants.
type GrantConfig struct {
	Enabled       bool
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxTTL        time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		SessionKeys: SessionKeyConfig{
			MaxValidity: 0,
		},
		Validation: ValidationConfig{
			PackSessionKeyWindow: true,
			VerifyUserOpHash:     false,
		},
		Store: StoreConfig{
			KeyPrefix: "aa",
		},
		Grant: GrantConfig{
			Enabled:       false,
			SigningMethod: "ed25519",
			Issuer:        "goaccount",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration: uncapped session keys,
// session-key windows packed into validationData, grants and audit disabled.
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig caps session keys at one day and enables audit and
// metrics with DropIfFull disabled, so no event is lost under load.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.SessionKeys.MaxValidity = int64((24 * time.Hour).Seconds())
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Grant.PrivateKey = cloneBytes(cfg.Grant.PrivateKey)
	out.Grant.PublicKey = cloneBytes(cfg.Grant.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	if c.SessionKeys.MaxValidity < 0 {
		return errors.New("SessionKeys MaxValidity must be >= 0")
	}
	if c.SessionKeys.MaxValidity > math.MaxInt64/2 {
		return errors.New("SessionKeys MaxValidity too large")
	}

	if c.Validation.VerifyUserOpHash && c.Validation.ChainID <= 0 {
		return errors.New("Validation VerifyUserOpHash requires ChainID > 0")
	}

	if strings.TrimSpace(c.Store.KeyPrefix) == "" {
		return errors.New("Store KeyPrefix must not be empty")
	}
	if strings.ContainsAny(c.Store.KeyPrefix, " :") {
		return errors.New("Store KeyPrefix must not contain spaces or ':'")
	}

	if c.Grant.Enabled {
		switch c.Grant.SigningMethod {
		case "ed25519":
			if len(c.Grant.PrivateKey) == 0 {
				return errors.New("Grant ed25519 requires PrivateKey")
			}
			if len(c.Grant.PublicKey) == 0 {
				return errors.New("Grant ed25519 requires PublicKey")
			}
		case "hs256":
			if len(c.Grant.PrivateKey) < 32 {
				return errors.New("Grant hs256 requires PrivateKey of at least 32 bytes")
			}
		default:
			return errors.New("unsupported Grant signing method")
		}
		if c.Grant.Leeway < 0 || c.Grant.Leeway > 2*time.Minute {
			return errors.New("Grant Leeway must be between 0 and 2m")
		}
		if c.Grant.MaxTTL < 0 {
			return errors.New("Grant MaxTTL must be >= 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
