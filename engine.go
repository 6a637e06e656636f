package goMFA

import (
	"time"

	"github.com/MrEthical07/goMFA/credential"
	"github.com/MrEthical07/goMFA/internal/rate"
	"github.com/MrEthical07/goMFA/proof"
)

// Engine defines a public type used by goMFA APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config          Config
	sessionStore    *mfaSessionStore
	codeStore       *verificationCodeStore
	issueLimiter    *issuanceLimiter
	verifyLimiter   *rate.Limiter
	hasher          *credential.Hasher
	coder           *credential.Coder
	totp            *totpManager
	proofManager    *proof.Manager
	webhookVerifier SignatureVerifier
	secretProvider  TOTPSecretProvider
	passkeyVerifier PasskeyVerifier
	sender          ChallengeSender
	audit           *auditDispatcher
	metrics         *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// sessionRecordTTL keeps terminal records readable for the retention window
// after the challenge deadline.
func (e *Engine) sessionRecordTTL() time.Duration {
	return e.config.Session.ChallengeTTL + e.config.Session.RetentionWindow
}

// ValidateProof describes the validateproof operation and its observable behavior.
//
// ValidateProof may return an error when input validation, dependency calls, or security checks fail.
// ValidateProof does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateProof(token string) (*proof.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.proofManager == nil {
		return nil, ErrProofDisabled
	}
	return e.proofManager.Parse(token)
}

// issueProof mints a verification proof for a just-verified session. Callers
// decide whether a missing manager is an error.
func (e *Engine) issueProof(principalID, tenantID, handle string, factor FactorKind) (string, error) {
	if e.proofManager == nil {
		return "", ErrProofDisabled
	}
	token, err := e.proofManager.Create(principalID, tenantID, handle, factor.String())
	if err != nil {
		return "", err
	}
	e.metricInc(MetricProofIssued)
	return token, nil
}
