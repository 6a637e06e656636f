package goMFA

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSessionStarted     = "mfa_session_started"
	auditEventChallengeDelivered = "mfa_challenge_delivered"
	auditEventVerifySuccess      = "mfa_verify_success"
	auditEventVerifyFailure      = "mfa_verify_failure"
	auditEventAttemptsExhausted  = "mfa_attempts_exhausted"
	auditEventCodeIssued         = "verification_code_issued"
	auditEventCodeResolved       = "verification_code_resolved"
	auditEventWebhookAccepted    = "webhook_accepted"
	auditEventWebhookRejected    = "webhook_rejected"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode defines a public type used by goMFA APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidFactor    AuditErrorCode = "invalid_factor"
	auditErrInvalidPrincipal AuditErrorCode = "invalid_principal"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrCodeInvalid      AuditErrorCode = "code_invalid"
	auditErrDeliveryFailed   AuditErrorCode = "delivery_failed"
	auditErrTOTPInvalid      AuditErrorCode = "totp_invalid"
	auditErrWebhookInvalid   AuditErrorCode = "webhook_invalid"
	auditErrProofDisabled    AuditErrorCode = "proof_disabled"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	tenantID string,
	handle string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if tenantID == "" {
		tenantID = tenantIDFromContext(ctx)
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		TenantID:    tenantID,
		Handle:      handle,
		IP:          clientIPFromContext(ctx),
		UserAgent:   userAgentFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	tenantID string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", tenantID, "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrFactorInvalid):
		return auditErrInvalidFactor
	case errors.Is(err, ErrPrincipalInvalid):
		return auditErrInvalidPrincipal
	case errors.Is(err, ErrIssuanceRateLimited),
		errors.Is(err, ErrVerifyRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrVerificationCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrChallengeDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrTOTPNotConfigured):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrWebhookPayloadInvalid):
		return auditErrWebhookInvalid
	case errors.Is(err, ErrProofDisabled):
		return auditErrProofDisabled
	case errors.Is(err, ErrSessionUnavailable),
		errors.Is(err, ErrCodeUnavailable),
		errors.Is(err, ErrTOTPUnavailable),
		errors.Is(err, ErrPasskeyUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
