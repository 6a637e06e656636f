package goMFA

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goMFA APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session     SessionConfig
	OTP         OTPConfig
	Credential  CredentialConfig
	TOTP        TOTPConfig
	Issuance    IssuanceConfig
	Webhook     WebhookConfig
	Proof       ProofConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Security    SecurityConfig
	MultiTenant MultiTenantConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goMFA APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix     string
	ChallengeTTL    time.Duration
	MaxAttempts     int
	RetentionWindow time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig defines a public type used by goMFA APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	Digits int
}

// CredentialConfig defines a public type used by goMFA APIs.
//
// CredentialConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CredentialConfig struct {
	BcryptCost int
	DigestKey  []byte
	CodeTTL    time.Duration
}

// TOTPConfig defines a public type used by goMFA APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Digits                  int
	Period                  int
	Algorithm               string
	Skew                    int
	EnforceReplayProtection bool
}

// IssuanceConfig defines a public type used by goMFA APIs.
//
// IssuanceConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type IssuanceConfig struct {
	EnableThrottle bool
	MaxPerWindow   int
	Window         time.Duration
}

/*
====================================
WEBHOOK CONFIG
====================================
*/

// WebhookConfig defines a public type used by goMFA APIs.
//
// WebhookConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type WebhookConfig struct {
	SigningKey []byte
}

// ProofConfig defines a public type used by goMFA APIs.
//
// ProofConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProofConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// AuditConfig defines a public type used by goMFA APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goMFA APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by goMFA APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode          bool
	EnableIPThrottle        bool
	MaxVerifyAttemptsPerIP  int
	VerifyCooldownDuration  time.Duration
	AllowInsecureWebhookDev bool
}

/*
====================================
MULTI TENANT CONFIG
====================================
*/

// MultiTenantConfig defines a public type used by goMFA APIs.
//
// MultiTenantConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MultiTenantConfig struct {
	Enabled          bool
	EnforceIsolation bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig describes the highsecurityconfig operation and its observable behavior.
//
// HighSecurityConfig may return an error when input validation, dependency calls, or security checks fail.
// HighSecurityConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Session.ChallengeTTL = 2 * time.Minute
	cfg.Session.MaxAttempts = 3
	cfg.Credential.BcryptCost = 13
	cfg.TOTP.Skew = 0
	cfg.Issuance.MaxPerWindow = 2
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIPThrottle = true
	cfg.Security.MaxVerifyAttemptsPerIP = 10
	cfg.Security.VerifyCooldownDuration = 5 * time.Minute
	return cfg
}

// HighThroughputConfig describes the highthroughputconfig operation and its observable behavior.
//
// HighThroughputConfig may return an error when input validation, dependency calls, or security checks fail.
// HighThroughputConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func HighThroughputConfig() Config {
	cfg := defaultConfig()
	cfg.Session.ChallengeTTL = 5 * time.Minute
	cfg.Session.RetentionWindow = time.Hour
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIPThrottle = false
	cfg.Metrics.Enabled = true
	return cfg
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:     "amv",
			ChallengeTTL:    3 * time.Minute,
			MaxAttempts:     5,
			RetentionWindow: 24 * time.Hour,
		},
		OTP: OTPConfig{
			Digits: 6,
		},
		Credential: CredentialConfig{
			BcryptCost: 12,
			// Generated per call. Fine for development; deployments that
			// need stable lookup digests across restarts supply their own.
			DigestKey: randomKey(32),
			CodeTTL:   15 * time.Minute,
		},
		TOTP: TOTPConfig{
			Digits:                  6,
			Period:                  30,
			Algorithm:               "SHA1",
			Skew:                    1,
			EnforceReplayProtection: true,
		},
		Issuance: IssuanceConfig{
			EnableThrottle: true,
			MaxPerWindow:   3,
			Window:         10 * time.Minute,
		},
		Proof: ProofConfig{
			Enabled:       false,
			TTL:           5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "goMFA",
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
		Security: SecurityConfig{
			ProductionMode:          false,
			EnableIPThrottle:        false,
			MaxVerifyAttemptsPerIP:  20,
			VerifyCooldownDuration:  1 * time.Minute,
			AllowInsecureWebhookDev: false,
		},
		MultiTenant: MultiTenantConfig{
			Enabled:          false,
			EnforceIsolation: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.DigestKey = cloneBytes(cfg.Credential.DigestKey)
	out.Webhook.SigningKey = cloneBytes(cfg.Webhook.SigningKey)
	out.Proof.PrivateKey = cloneBytes(cfg.Proof.PrivateKey)
	out.Proof.PublicKey = cloneBytes(cfg.Proof.PublicKey)
	return out
}

func randomKey(n int) []byte {
	out := make([]byte, n)
	if _, err := rand.Read(out); err != nil {
		panic("config: crypto/rand unavailable: " + err.Error())
	}
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

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Session
	if c.Session.ChallengeTTL <= 0 {
		return errors.New("Session ChallengeTTL must be > 0")
	}
	if c.Session.MaxAttempts <= 0 {
		return errors.New("Session MaxAttempts must be > 0")
	}
	if c.Session.RetentionWindow < 0 {
		return errors.New("Session RetentionWindow must be >= 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// OTP
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}

	// Credential
	if c.Credential.BcryptCost < 4 || c.Credential.BcryptCost > 31 {
		return errors.New("Credential BcryptCost must be between 4 and 31")
	}
	if len(c.Credential.DigestKey) < 16 {
		return errors.New("Credential DigestKey must be >= 128 bits")
	}
	if c.Credential.CodeTTL <= 0 {
		return errors.New("Credential CodeTTL must be > 0")
	}

	// TOTP
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 {
		return errors.New("TOTP Period must be >= 15 seconds")
	}
	if c.TOTP.Skew < 0 {
		return errors.New("TOTP Skew must be >= 0")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
		// valid (empty treated as SHA1)
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256, or SHA512")
	}

	// Issuance
	if c.Issuance.EnableThrottle {
		if c.Issuance.MaxPerWindow <= 0 {
			return errors.New("Issuance MaxPerWindow must be > 0 when throttle is enabled")
		}
		if c.Issuance.Window <= 0 {
			return errors.New("Issuance Window must be > 0 when throttle is enabled")
		}
	}

	// Proof
	if c.Proof.Enabled {
		if c.Proof.TTL <= 0 {
			return errors.New("Proof TTL must be > 0")
		}
		if c.Proof.SigningMethod != "ed25519" && c.Proof.SigningMethod != "hs256" {
			return errors.New("unsupported Proof signing method")
		}
		if c.Proof.SigningMethod == "ed25519" && len(c.Proof.PrivateKey) == 0 {
			return errors.New("ed25519 requires Proof PrivateKey")
		}
		if c.Proof.SigningMethod == "ed25519" && len(c.Proof.PublicKey) == 0 {
			return errors.New("ed25519 requires Proof PublicKey")
		}
		if c.Proof.SigningMethod == "hs256" && len(c.Proof.PrivateKey) == 0 {
			return errors.New("hs256 requires Proof PrivateKey")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	// Security
	if c.Security.EnableIPThrottle {
		if c.Security.MaxVerifyAttemptsPerIP <= 0 {
			return errors.New("MaxVerifyAttemptsPerIP must be > 0 when IP throttle is enabled")
		}
		if c.Security.VerifyCooldownDuration <= 0 {
			return errors.New("VerifyCooldownDuration must be > 0 when IP throttle is enabled")
		}
	}

	if c.Security.ProductionMode {
		if c.Session.ChallengeTTL > 10*time.Minute {
			return errors.New("ProductionMode requires Session ChallengeTTL <= 10m")
		}
		if c.Session.MaxAttempts > 5 {
			return errors.New("ProductionMode requires Session MaxAttempts <= 5")
		}
		if c.Credential.BcryptCost < 12 {
			return errors.New("ProductionMode requires Credential BcryptCost >= 12")
		}
		if len(c.Credential.DigestKey) < 32 {
			return errors.New("ProductionMode requires Credential DigestKey >= 256 bits")
		}
		if c.TOTP.Skew > 2 {
			return errors.New("ProductionMode requires TOTP Skew <= 2")
		}
		if !c.TOTP.EnforceReplayProtection {
			return errors.New("ProductionMode requires TOTP EnforceReplayProtection")
		}
		if !c.Issuance.EnableThrottle {
			return errors.New("ProductionMode requires Issuance throttle")
		}
		if c.Security.AllowInsecureWebhookDev {
			return errors.New("ProductionMode forbids AllowInsecureWebhookDev")
		}
		if c.Proof.Enabled {
			if c.Proof.TTL > 15*time.Minute {
				return errors.New("ProductionMode requires Proof TTL <= 15m")
			}
			if c.Proof.SigningMethod == "hs256" && len(c.Proof.PrivateKey) < 32 {
				return errors.New("ProductionMode requires hs256 key length >= 256 bits")
			}
		}
	}

	return nil
}
