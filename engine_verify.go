package goMFA

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/MrEthical07/goMFA/internal/rate"
)

// VerifyCode checks a submitted code against the session's factor and
// concludes the session when the check is decisive. The returned [Outcome] is
// the security decision; a non-nil error always means infrastructure failed
// and the attempt was not judged.
//
//	Docs: docs/engine.md
func (e *Engine) VerifyCode(ctx context.Context, handle, code string) (Outcome, error) {
	result, err := e.verifyCode(ctx, handle, code, false)
	if err != nil {
		return 0, err
	}
	return result.Outcome, nil
}

// VerifyCodeWithProof behaves like [Engine.VerifyCode] and additionally mints
// a signed verification proof when the outcome is [OutcomeVerified] and proof
// issuance is enabled.
//
//	Docs: docs/engine.md
func (e *Engine) VerifyCodeWithProof(ctx context.Context, handle, code string) (*VerifyResult, error) {
	if e != nil && e.proofManager == nil {
		return nil, ErrProofDisabled
	}
	return e.verifyCode(ctx, handle, code, true)
}

func (e *Engine) verifyCode(ctx context.Context, handle, code string, withProof bool) (*VerifyResult, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	tenantID := tenantIDFromContext(ctx)
	ip := clientIPFromContext(ctx)

	if e.verifyLimiter != nil {
		if err := e.verifyLimiter.CheckVerify(ctx, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitRateLimit(ctx, "verify", tenantID, nil)
				return nil, ErrVerifyRateLimited
			}
			return nil, ErrSessionUnavailable
		}
	}

	record, outcome, err := e.loadPendingSession(ctx, tenantID, handle)
	if err != nil {
		return nil, err
	}
	if record == nil {
		e.noteVerifyFailure(ctx, "", tenantID, handle, outcome, ip)
		return &VerifyResult{Outcome: outcome}, nil
	}

	var matched bool
	switch record.Factor {
	case FactorSMSOTP:
		matched = e.hasher.Matches(code, record.CodeHash)
	case FactorTOTP:
		ok, err := e.verifyTOTP(ctx, record.PrincipalID, code)
		if err != nil {
			return nil, err
		}
		matched = ok
	default:
		return nil, ErrFactorInvalid
	}

	if !matched {
		outcome, err := e.failAttempt(ctx, tenantID, handle)
		if err != nil {
			return nil, err
		}
		e.noteVerifyFailure(ctx, record.PrincipalID, tenantID, handle, outcome, ip)
		return &VerifyResult{Outcome: outcome}, nil
	}

	outcome, err = e.concludeVerified(ctx, tenantID, handle)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeVerified {
		e.noteVerifyFailure(ctx, record.PrincipalID, tenantID, handle, outcome, ip)
		return &VerifyResult{Outcome: outcome}, nil
	}

	result := &VerifyResult{Outcome: OutcomeVerified}
	if withProof {
		token, err := e.issueProof(record.PrincipalID, tenantID, handle, record.Factor)
		if err != nil {
			return nil, err
		}
		result.Proof = token
	}

	if record.Factor == FactorTOTP {
		e.metricInc(MetricTOTPSuccess)
	}
	e.noteVerifySuccess(ctx, record.PrincipalID, tenantID, handle, ip)
	return result, nil
}

// VerifyPasskey checks a WebAuthn assertion against a passkey session through
// the configured [PasskeyVerifier] and concludes the session accordingly.
//
//	Docs: docs/factors.md
func (e *Engine) VerifyPasskey(ctx context.Context, handle string, assertion PasskeyAssertion) (Outcome, error) {
	result, err := e.verifyPasskey(ctx, handle, assertion, false)
	if err != nil {
		return 0, err
	}
	return result.Outcome, nil
}

// VerifyPasskeyWithProof behaves like [Engine.VerifyPasskey] and additionally
// mints a signed verification proof on [OutcomeVerified].
func (e *Engine) VerifyPasskeyWithProof(ctx context.Context, handle string, assertion PasskeyAssertion) (*VerifyResult, error) {
	if e != nil && e.proofManager == nil {
		return nil, ErrProofDisabled
	}
	return e.verifyPasskey(ctx, handle, assertion, true)
}

func (e *Engine) verifyPasskey(ctx context.Context, handle string, assertion PasskeyAssertion, withProof bool) (*VerifyResult, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if e.passkeyVerifier == nil {
		return nil, ErrPasskeyUnavailable
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	tenantID := tenantIDFromContext(ctx)
	ip := clientIPFromContext(ctx)

	if e.verifyLimiter != nil {
		if err := e.verifyLimiter.CheckVerify(ctx, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitRateLimit(ctx, "verify", tenantID, nil)
				return nil, ErrVerifyRateLimited
			}
			return nil, ErrSessionUnavailable
		}
	}

	record, outcome, err := e.loadPendingSession(ctx, tenantID, handle)
	if err != nil {
		return nil, err
	}
	if record == nil {
		e.noteVerifyFailure(ctx, "", tenantID, handle, outcome, ip)
		return &VerifyResult{Outcome: outcome}, nil
	}
	if record.Factor != FactorPasskey {
		return nil, ErrFactorInvalid
	}

	ok, err := e.passkeyVerifier.VerifyAssertion(ctx, record.PrincipalID, assertion)
	if err != nil {
		return nil, ErrPasskeyUnavailable
	}

	if !ok {
		e.metricInc(MetricPasskeyFailure)
		outcome, err := e.failAttempt(ctx, tenantID, handle)
		if err != nil {
			return nil, err
		}
		e.noteVerifyFailure(ctx, record.PrincipalID, tenantID, handle, outcome, ip)
		return &VerifyResult{Outcome: outcome}, nil
	}

	outcome, err = e.concludeVerified(ctx, tenantID, handle)
	if err != nil {
		return nil, err
	}
	if outcome != OutcomeVerified {
		e.noteVerifyFailure(ctx, record.PrincipalID, tenantID, handle, outcome, ip)
		return &VerifyResult{Outcome: outcome}, nil
	}

	result := &VerifyResult{Outcome: OutcomeVerified}
	if withProof {
		token, err := e.issueProof(record.PrincipalID, tenantID, handle, record.Factor)
		if err != nil {
			return nil, err
		}
		result.Proof = token
	}

	e.metricInc(MetricPasskeySuccess)
	e.noteVerifySuccess(ctx, record.PrincipalID, tenantID, handle, ip)
	return result, nil
}

// loadPendingSession reads the session and resolves the dead states that do
// not cost an attempt. A nil record with a zero error means the returned
// outcome is final.
func (e *Engine) loadPendingSession(ctx context.Context, tenantID, handle string) (*mfaSessionRecord, Outcome, error) {
	record, err := e.sessionStore.Get(ctx, tenantID, handle)
	if err != nil {
		if errors.Is(err, errMFASessionNotFound) {
			return nil, OutcomeSessionNotFound, nil
		}
		return nil, 0, ErrSessionUnavailable
	}

	if record.Status != SessionPending {
		return nil, OutcomeSessionConcluded, nil
	}
	if time.Now().Unix() > record.ExpiresAt {
		// Lazy expiry: stamp the terminal status, never burn an attempt.
		if err := e.sessionStore.MarkExpired(ctx, tenantID, handle); err != nil {
			log.Print("goMFA: lazy expiry stamp failed")
		}
		return nil, OutcomeSessionExpired, nil
	}

	return record, 0, nil
}

func (e *Engine) verifyTOTP(ctx context.Context, principalID, code string) (bool, error) {
	if e.secretProvider == nil || e.totp == nil {
		return false, ErrEngineNotReady
	}

	record, err := e.secretProvider.GetTOTPSecret(ctx, principalID)
	if err != nil {
		return false, ErrTOTPUnavailable
	}
	if record == nil || !record.Enabled || len(record.Secret) == 0 {
		return false, ErrTOTPNotConfigured
	}

	ok, counter, err := e.totp.VerifyCode(record.Secret, code, time.Now())
	if err != nil {
		return false, ErrTOTPUnavailable
	}
	if !ok {
		e.metricInc(MetricTOTPFailure)
		return false, nil
	}

	if e.config.TOTP.EnforceReplayProtection {
		if counter <= record.LastUsedCounter {
			e.metricInc(MetricTOTPReplayBlocked)
			return false, nil
		}
		if err := e.secretProvider.UpdateTOTPLastUsedCounter(ctx, principalID, counter); err != nil {
			return false, ErrTOTPUnavailable
		}
	}

	return true, nil
}

// failAttempt burns one attempt and translates store sentinels into outcomes.
func (e *Engine) failAttempt(ctx context.Context, tenantID, handle string) (Outcome, error) {
	exhausted, err := e.sessionStore.RecordFailure(ctx, tenantID, handle)
	if err != nil {
		switch {
		case errors.Is(err, errMFASessionNotFound):
			return OutcomeSessionNotFound, nil
		case errors.Is(err, errMFASessionExpired):
			return OutcomeSessionExpired, nil
		case errors.Is(err, errMFASessionConcluded):
			return OutcomeSessionConcluded, nil
		default:
			return 0, ErrSessionUnavailable
		}
	}
	if exhausted {
		return OutcomeAttemptsExhausted, nil
	}
	return OutcomeInvalidCode, nil
}

// concludeVerified flips the session to verified and translates races into
// outcomes: a competing conclusion or expiry is a decision, not an error.
func (e *Engine) concludeVerified(ctx context.Context, tenantID, handle string) (Outcome, error) {
	err := e.sessionStore.MarkVerified(ctx, tenantID, handle)
	if err != nil {
		switch {
		case errors.Is(err, errMFASessionNotFound):
			return OutcomeSessionNotFound, nil
		case errors.Is(err, errMFASessionExpired):
			return OutcomeSessionExpired, nil
		case errors.Is(err, errMFASessionConcluded):
			return OutcomeSessionConcluded, nil
		default:
			return 0, ErrSessionUnavailable
		}
	}
	return OutcomeVerified, nil
}

func (e *Engine) noteVerifySuccess(ctx context.Context, principalID, tenantID, handle, ip string) {
	if e.verifyLimiter != nil {
		// Limiter reset is best-effort and must not block a verified outcome.
		if err := e.verifyLimiter.ResetVerify(ctx, ip); err != nil {
			log.Print("goMFA: verify limiter reset failed")
		}
	}
	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, principalID, tenantID, handle, nil, nil)
}

func (e *Engine) noteVerifyFailure(ctx context.Context, principalID, tenantID, handle string, outcome Outcome, ip string) {
	if e.verifyLimiter != nil {
		if err := e.verifyLimiter.IncrementVerify(ctx, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			log.Print("goMFA: verify limiter increment failed")
		}
	}

	switch outcome {
	case OutcomeInvalidCode:
		e.metricInc(MetricVerifyFailure)
	case OutcomeSessionExpired:
		e.metricInc(MetricVerifyExpired)
	case OutcomeSessionNotFound:
		e.metricInc(MetricVerifyNotFound)
	case OutcomeSessionConcluded:
		e.metricInc(MetricVerifyConcluded)
	case OutcomeAttemptsExhausted:
		e.metricInc(MetricAttemptsExhausted)
	}

	eventType := auditEventVerifyFailure
	if outcome == OutcomeAttemptsExhausted {
		eventType = auditEventAttemptsExhausted
	}
	e.emitAudit(ctx, eventType, false, principalID, tenantID, handle, nil, func() map[string]string {
		return map[string]string{
			"outcome": outcome.String(),
		}
	})
}
