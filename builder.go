package goMFA

import (
	"errors"

	"github.com/MrEthical07/goMFA/credential"
	"github.com/MrEthical07/goMFA/internal/rate"
	"github.com/MrEthical07/goMFA/proof"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goMFA APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	secretProvider  TOTPSecretProvider
	passkeyVerifier PasskeyVerifier
	sender          ChallengeSender
	webhookVerifier SignatureVerifier
	auditSink       AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithTOTPSecretProvider describes the withtotpsecretprovider operation and its observable behavior.
//
// WithTOTPSecretProvider may return an error when input validation, dependency calls, or security checks fail.
// WithTOTPSecretProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTOTPSecretProvider(p TOTPSecretProvider) *Builder {
	b.secretProvider = p
	return b
}

// WithPasskeyVerifier describes the withpasskeyverifier operation and its observable behavior.
//
// WithPasskeyVerifier may return an error when input validation, dependency calls, or security checks fail.
// WithPasskeyVerifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPasskeyVerifier(v PasskeyVerifier) *Builder {
	b.passkeyVerifier = v
	return b
}

// WithChallengeSender describes the withchallengesender operation and its observable behavior.
//
// WithChallengeSender may return an error when input validation, dependency calls, or security checks fail.
// WithChallengeSender does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithChallengeSender(s ChallengeSender) *Builder {
	b.sender = s
	return b
}

// WithSignatureVerifier selects the webhook authentication strategy at
// composition time. Passing [InsecureSkipVerifier] is refused by Build when
// Security.ProductionMode is set.
func (b *Builder) WithSignatureVerifier(v SignatureVerifier) *Builder {
	b.webhookVerifier = v
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	webhookVerifier := b.webhookVerifier
	if webhookVerifier == nil && len(cfg.Webhook.SigningKey) > 0 {
		webhookVerifier = NewHMACVerifier(cfg.Webhook.SigningKey)
	}
	if _, insecure := webhookVerifier.(InsecureSkipVerifier); insecure {
		if cfg.Security.ProductionMode {
			return nil, errors.New("ProductionMode forbids InsecureSkipVerifier")
		}
		if !cfg.Security.AllowInsecureWebhookDev {
			return nil, errors.New("InsecureSkipVerifier requires AllowInsecureWebhookDev")
		}
	}

	engine := &Engine{
		config:          cloneConfig(cfg),
		sessionStore:    newMFASessionStore(b.redis, cfg.Session.RedisPrefix),
		codeStore:       newVerificationCodeStore(b.redis),
		webhookVerifier: webhookVerifier,
		secretProvider:  b.secretProvider,
		passkeyVerifier: b.passkeyVerifier,
		sender:          b.sender,
	}

	if cfg.Issuance.EnableThrottle {
		engine.issueLimiter = newIssuanceLimiter(b.redis, cfg.Issuance.MaxPerWindow, cfg.Issuance.Window)
	}
	engine.verifyLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:       cfg.Security.EnableIPThrottle,
		MaxVerifyAttempts:      cfg.Security.MaxVerifyAttemptsPerIP,
		VerifyCooldownDuration: cfg.Security.VerifyCooldownDuration,
	})
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.totp = newTOTPManager(cfg.TOTP)

	hasher, err := credential.NewHasher(cfg.Credential.BcryptCost)
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	coder, err := credential.NewCoder(cfg.Credential.DigestKey)
	if err != nil {
		return nil, err
	}
	engine.coder = coder

	if cfg.Proof.Enabled {
		pm, err := proof.NewManager(proof.Config{
			TTL:           cfg.Proof.TTL,
			SigningMethod: proof.SigningMethod(cfg.Proof.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Proof.PrivateKey),
			PublicKey:     cloneBytes(cfg.Proof.PublicKey),
			Issuer:        cfg.Proof.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.proofManager = pm
	}

	b.built = true

	return engine, nil
}
