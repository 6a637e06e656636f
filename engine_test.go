package goMFA

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeTOTPProvider struct {
	mu       sync.Mutex
	records  map[string]*TOTPRecord
	getErr   error
	saveErr  error
	lastSeen map[string]int64
}

func newFakeTOTPProvider() *fakeTOTPProvider {
	return &fakeTOTPProvider{
		records:  make(map[string]*TOTPRecord),
		lastSeen: make(map[string]int64),
	}
}

func (p *fakeTOTPProvider) GetTOTPSecret(_ context.Context, principalID string) (*TOTPRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	record, ok := p.records[principalID]
	if !ok {
		return nil, nil
	}
	out := *record
	return &out, nil
}

func (p *fakeTOTPProvider) UpdateTOTPLastUsedCounter(_ context.Context, principalID string, counter int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	if record, ok := p.records[principalID]; ok {
		record.LastUsedCounter = counter
	}
	p.lastSeen[principalID] = counter
	return nil
}

type fakePasskeyVerifier struct {
	ok  bool
	err error
}

func (v fakePasskeyVerifier) VerifyAssertion(context.Context, string, PasskeyAssertion) (bool, error) {
	return v.ok, v.err
}

func newTestEngine(t *testing.T, mutate func(*Builder, *Config)) (*Engine, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := DefaultConfig()
	cfg.Credential.BcryptCost = 4
	cfg.Issuance.EnableThrottle = false

	b := New().WithRedis(rdb)
	if mutate != nil {
		mutate(b, &cfg)
	}
	engine, err := b.WithConfig(cfg).Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func TestStartSessionValidation(t *testing.T) {
	engine, cleanup := newTestEngine(t, nil)
	defer cleanup()

	ctx := context.Background()

	if _, err := engine.StartSession(ctx, "", FactorSMSOTP); !errors.Is(err, ErrPrincipalInvalid) {
		t.Fatalf("expected ErrPrincipalInvalid, got %v", err)
	}
	if _, err := engine.StartSession(ctx, "alice", FactorKind(99)); !errors.Is(err, ErrFactorInvalid) {
		t.Fatalf("expected ErrFactorInvalid, got %v", err)
	}
	if _, err := engine.StartSession(ctx, "alice", FactorTOTP); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady without secret provider, got %v", err)
	}
	if _, err := engine.StartSession(ctx, "alice", FactorPasskey); !errors.Is(err, ErrPasskeyUnavailable) {
		t.Fatalf("expected ErrPasskeyUnavailable without verifier, got %v", err)
	}
}

func TestStartSessionReturnsCodeWithoutSender(t *testing.T) {
	engine, cleanup := newTestEngine(t, nil)
	defer cleanup()

	result, err := engine.StartSession(context.Background(), "alice", FactorSMSOTP)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if result.Handle == "" {
		t.Fatal("expected non-empty session handle")
	}
	if len(result.Code) != 6 {
		t.Fatalf("expected six-digit code without sender, got %q", result.Code)
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Fatal("expected future expiry")
	}
}

type failingSender struct{}

func (failingSender) SendCode(context.Context, string, string) error {
	return errors.New("carrier down")
}

func TestStartSessionSurfacesDeliveryFailure(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithChallengeSender(failingSender{})
	})
	defer cleanup()

	if _, err := engine.StartSession(context.Background(), "alice", FactorSMSOTP); !errors.Is(err, ErrChallengeDeliveryFailed) {
		t.Fatalf("expected ErrChallengeDeliveryFailed, got %v", err)
	}
}

func TestTOTPVerificationFlow(t *testing.T) {
	provider := newFakeTOTPProvider()
	secret := []byte("12345678901234567890")
	provider.records["alice"] = &TOTPRecord{Secret: secret, Enabled: true, LastUsedCounter: -1}

	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithTOTPSecretProvider(provider)
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorTOTP)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if result.Code != "" {
		t.Fatal("expected no server-issued code for totp sessions")
	}

	counter := time.Now().Unix() / 30
	code, err := hotpCode(secret, counter, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotp generation failed: %v", err)
	}

	outcome, err := engine.VerifyCode(ctx, result.Handle, code)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if outcome != OutcomeVerified {
		t.Fatalf("expected verified, got %v", outcome)
	}
	if provider.lastSeen["alice"] != counter {
		t.Fatalf("expected replay counter advanced to %d, got %d", counter, provider.lastSeen["alice"])
	}
}

func TestTOTPReplayBlocked(t *testing.T) {
	provider := newFakeTOTPProvider()
	secret := []byte("12345678901234567890")

	counter := time.Now().Unix() / 30
	// The current counter is already consumed, so replaying the current code
	// must burn an attempt instead of verifying.
	provider.records["alice"] = &TOTPRecord{Secret: secret, Enabled: true, LastUsedCounter: counter + 1}

	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithTOTPSecretProvider(provider)
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorTOTP)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	code, err := hotpCode(secret, counter, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotp generation failed: %v", err)
	}

	outcome, err := engine.VerifyCode(ctx, result.Handle, code)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if outcome != OutcomeInvalidCode {
		t.Fatalf("expected replayed code rejected as invalid, got %v", outcome)
	}
}

func TestTOTPNotEnrolled(t *testing.T) {
	provider := newFakeTOTPProvider()
	provider.records["alice"] = &TOTPRecord{Secret: nil, Enabled: false}

	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithTOTPSecretProvider(provider)
	})
	defer cleanup()

	if _, err := engine.StartSession(context.Background(), "alice", FactorTOTP); !errors.Is(err, ErrTOTPNotConfigured) {
		t.Fatalf("expected ErrTOTPNotConfigured, got %v", err)
	}
}

func TestLazyExpiryDoesNotBurnAttempt(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(_ *Builder, cfg *Config) {
		cfg.Session.ChallengeTTL = time.Second
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorSMSOTP)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	// Age the session past its deadline without touching Redis expiry.
	record, err := engine.sessionStore.Get(ctx, "0", result.Handle)
	if err != nil {
		t.Fatalf("session read failed: %v", err)
	}
	record.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := engine.sessionStore.Save(ctx, "0", result.Handle, record, time.Hour); err != nil {
		t.Fatalf("session rewrite failed: %v", err)
	}

	outcome, err := engine.VerifyCode(ctx, result.Handle, result.Code)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if outcome != OutcomeSessionExpired {
		t.Fatalf("expected expired outcome, got %v", outcome)
	}

	stamped, err := engine.sessionStore.Get(ctx, "0", result.Handle)
	if err != nil {
		t.Fatalf("session read failed: %v", err)
	}
	if stamped.Status != SessionExpired {
		t.Fatalf("expected terminal expired status, got %v", stamped.Status)
	}
	if stamped.Attempts != 0 {
		t.Fatalf("expected expiry to not burn an attempt, got %d", stamped.Attempts)
	}
}

func TestVerifyPasskeyFlow(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithPasskeyVerifier(fakePasskeyVerifier{ok: true})
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorPasskey)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	outcome, err := engine.VerifyPasskey(ctx, result.Handle, PasskeyAssertion{
		CredentialID: []byte("cred-1"),
		Signature:    []byte("sig"),
	})
	if err != nil {
		t.Fatalf("VerifyPasskey failed: %v", err)
	}
	if outcome != OutcomeVerified {
		t.Fatalf("expected verified, got %v", outcome)
	}
}

func TestVerifyPasskeyRejectionBurnsAttempt(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithPasskeyVerifier(fakePasskeyVerifier{ok: false})
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorPasskey)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	outcome, err := engine.VerifyPasskey(ctx, result.Handle, PasskeyAssertion{})
	if err != nil {
		t.Fatalf("VerifyPasskey failed: %v", err)
	}
	if outcome != OutcomeInvalidCode {
		t.Fatalf("expected invalid outcome for rejected assertion, got %v", outcome)
	}
}

func TestVerifyPasskeyVerifierErrorIsInfrastructure(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithPasskeyVerifier(fakePasskeyVerifier{err: errors.New("idp down")})
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorPasskey)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if _, err := engine.VerifyPasskey(ctx, result.Handle, PasskeyAssertion{}); !errors.Is(err, ErrPasskeyUnavailable) {
		t.Fatalf("expected ErrPasskeyUnavailable, got %v", err)
	}
}

func TestVerifyPasskeyOnCodeSessionIsFactorMismatch(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(b *Builder, _ *Config) {
		b.WithPasskeyVerifier(fakePasskeyVerifier{ok: true})
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorSMSOTP)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if _, err := engine.VerifyPasskey(ctx, result.Handle, PasskeyAssertion{}); !errors.Is(err, ErrFactorInvalid) {
		t.Fatalf("expected ErrFactorInvalid, got %v", err)
	}
}

func TestVerifyCodeWithProofMintsToken(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(_ *Builder, cfg *Config) {
		cfg.Proof.Enabled = true
		cfg.Proof.SigningMethod = "hs256"
		cfg.Proof.PrivateKey = []byte("hs256-test-secret-0123456789abcdef")
	})
	defer cleanup()

	ctx := context.Background()
	result, err := engine.StartSession(ctx, "alice", FactorSMSOTP)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	verify, err := engine.VerifyCodeWithProof(ctx, result.Handle, result.Code)
	if err != nil {
		t.Fatalf("VerifyCodeWithProof failed: %v", err)
	}
	if verify.Outcome != OutcomeVerified {
		t.Fatalf("expected verified, got %v", verify.Outcome)
	}
	if verify.Proof == "" {
		t.Fatal("expected a minted proof token")
	}

	claims, err := engine.ValidateProof(verify.Proof)
	if err != nil {
		t.Fatalf("ValidateProof failed: %v", err)
	}
	if claims.PID != "alice" || claims.Handle != result.Handle || claims.Factor != "sms_otp" {
		t.Fatalf("unexpected proof claims: %+v", claims)
	}
}

func TestVerifyCodeWithProofRequiresProofEnabled(t *testing.T) {
	engine, cleanup := newTestEngine(t, nil)
	defer cleanup()

	if _, err := engine.VerifyCodeWithProof(context.Background(), "handle", "000000"); !errors.Is(err, ErrProofDisabled) {
		t.Fatalf("expected ErrProofDisabled, got %v", err)
	}
	if _, err := engine.ValidateProof("token"); !errors.Is(err, ErrProofDisabled) {
		t.Fatalf("expected ErrProofDisabled from ValidateProof, got %v", err)
	}
}

func TestIssuanceThrottleLimitsStartSession(t *testing.T) {
	engine, cleanup := newTestEngine(t, func(_ *Builder, cfg *Config) {
		cfg.Issuance.EnableThrottle = true
		cfg.Issuance.MaxPerWindow = 2
		cfg.Issuance.Window = time.Minute
	})
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := engine.StartSession(ctx, "alice", FactorSMSOTP); err != nil {
			t.Fatalf("start %d failed: %v", i+1, err)
		}
	}
	if _, err := engine.StartSession(ctx, "alice", FactorSMSOTP); !errors.Is(err, ErrIssuanceRateLimited) {
		t.Fatalf("expected ErrIssuanceRateLimited, got %v", err)
	}
	// Other principals keep their own window.
	if _, err := engine.StartSession(ctx, "bob", FactorSMSOTP); err != nil {
		t.Fatalf("expected bob unaffected, got %v", err)
	}
}

func TestAuditEventsCarryRequestContext(t *testing.T) {
	sink := NewChannelSink(8)
	engine, cleanup := newTestEngine(t, func(b *Builder, cfg *Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 8
		b.WithAuditSink(sink)
	})
	defer cleanup()

	ctx := context.Background()
	ctx = WithClientIP(ctx, "10.0.0.1")
	ctx = WithUserAgent(ctx, "test-agent/1.0")

	if _, err := engine.StartSession(ctx, "alice", FactorSMSOTP); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != "mfa_session_started" {
			t.Fatalf("unexpected event type %q", event.EventType)
		}
		if event.IP != "10.0.0.1" {
			t.Fatalf("expected client IP recorded, got %q", event.IP)
		}
		if event.UserAgent != "test-agent/1.0" {
			t.Fatalf("expected user agent recorded, got %q", event.UserAgent)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an audit event for the started session")
	}
}

func TestNilEngineMethodsFailClosed(t *testing.T) {
	var engine *Engine

	if _, err := engine.StartSession(context.Background(), "alice", FactorSMSOTP); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.VerifyCode(context.Background(), "handle", "000000"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.ValidateProof("token"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if engine.AuditDropped() != 0 {
		t.Fatal("expected zero drops on nil engine")
	}
	engine.Close()
}
