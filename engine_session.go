package goMFA

import (
	"context"
	"time"

	"github.com/MrEthical07/goMFA/internal"
	"github.com/google/uuid"
)

// StartSession opens a pending MFA session for the principal and factor and
// returns an opaque handle the client uses for verification. SMS sessions get
// a fresh OTP: delivered through the configured [ChallengeSender] when one is
// wired, returned in [StartResult.Code] otherwise. TOTP sessions carry no
// server-issued code; verification runs against the authenticator secret.
// Passkey sessions defer entirely to the external verifier.
//
//	Docs: docs/session.md
func (e *Engine) StartSession(ctx context.Context, principalID string, factor FactorKind) (*StartResult, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if principalID == "" {
		return nil, ErrPrincipalInvalid
	}
	if !validFactor(factor) {
		return nil, ErrFactorInvalid
	}

	tenantID := tenantIDFromContext(ctx)

	if e.issueLimiter != nil {
		if err := e.issueLimiter.Check(ctx, tenantID, principalID); err != nil {
			if err == ErrIssuanceRateLimited {
				e.metricInc(MetricSessionStartRateLimited)
				e.emitRateLimit(ctx, "issuance", tenantID, func() map[string]string {
					return map[string]string{
						"principal_id": principalID,
					}
				})
			}
			return nil, err
		}
	}

	switch factor {
	case FactorTOTP:
		if e.secretProvider == nil {
			return nil, ErrEngineNotReady
		}
		record, err := e.secretProvider.GetTOTPSecret(ctx, principalID)
		if err != nil {
			return nil, ErrTOTPUnavailable
		}
		if record == nil || !record.Enabled || len(record.Secret) == 0 {
			return nil, ErrTOTPNotConfigured
		}
	case FactorPasskey:
		if e.passkeyVerifier == nil {
			return nil, ErrPasskeyUnavailable
		}
	}

	var (
		code     string
		codeHash []byte
	)
	if factor == FactorSMSOTP {
		otp, err := internal.NewOTP(e.config.OTP.Digits)
		if err != nil {
			return nil, err
		}
		hash, err := e.hasher.Hash(otp)
		if err != nil {
			return nil, err
		}
		code = otp
		codeHash = hash
	}

	handle := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(e.config.Session.ChallengeTTL)

	record := &mfaSessionRecord{
		PrincipalID: principalID,
		TenantID:    tenantID,
		Factor:      factor,
		Status:      SessionPending,
		Attempts:    0,
		MaxAttempts: uint16(e.config.Session.MaxAttempts),
		CodeHash:    codeHash,
		CreatedAt:   now.Unix(),
		ExpiresAt:   expiresAt.Unix(),
	}

	if err := e.sessionStore.Save(ctx, tenantID, handle, record, e.sessionRecordTTL()); err != nil {
		e.emitAudit(ctx, auditEventSessionStarted, false, principalID, tenantID, handle, ErrSessionUnavailable, nil)
		return nil, ErrSessionUnavailable
	}

	if e.issueLimiter != nil {
		if err := e.issueLimiter.Record(ctx, tenantID, principalID); err != nil && err != ErrIssuanceRateLimited {
			return nil, err
		}
	}

	result := &StartResult{
		Handle:    handle,
		Factor:    factor,
		ExpiresAt: expiresAt,
	}

	if factor == FactorSMSOTP {
		if e.sender != nil {
			if err := e.sender.SendCode(ctx, principalID, code); err != nil {
				e.metricInc(MetricChallengeDeliveryFailed)
				e.emitAudit(ctx, auditEventChallengeDelivered, false, principalID, tenantID, handle, ErrChallengeDeliveryFailed, nil)
				return nil, ErrChallengeDeliveryFailed
			}
			e.metricInc(MetricChallengeDelivered)
			e.emitAudit(ctx, auditEventChallengeDelivered, true, principalID, tenantID, handle, nil, nil)
		} else {
			result.Code = code
		}
	}

	e.metricInc(MetricSessionStarted)
	e.emitAudit(ctx, auditEventSessionStarted, true, principalID, tenantID, handle, nil, func() map[string]string {
		return map[string]string{
			"factor": factor.String(),
		}
	})

	return result, nil
}
