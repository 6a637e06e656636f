package goMFA

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MrEthical07/goMFA/internal"
)

// IssueVerificationCode mints a short shareable lookup code for the principal
// and indexes it by keyed digest. The plaintext code is returned exactly once;
// only the digest reaches Redis.
//
//	Docs: docs/webhooks.md
func (e *Engine) IssueVerificationCode(ctx context.Context, principalID string) (string, time.Time, error) {
	if e == nil || e.codeStore == nil || e.coder == nil {
		return "", time.Time{}, ErrEngineNotReady
	}
	if principalID == "" {
		return "", time.Time{}, ErrPrincipalInvalid
	}

	tenantID := tenantIDFromContext(ctx)

	if e.issueLimiter != nil {
		if err := e.issueLimiter.Check(ctx, tenantID, principalID); err != nil {
			if err == ErrIssuanceRateLimited {
				e.emitRateLimit(ctx, "code_issuance", tenantID, func() map[string]string {
					return map[string]string{
						"principal_id": principalID,
					}
				})
			}
			return "", time.Time{}, err
		}
	}

	code, err := internal.NewLookupCode()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(e.config.Credential.CodeTTL)
	record := &verificationCodeRecord{
		PrincipalID: principalID,
		ExpiresAt:   expiresAt.Unix(),
	}
	if err := e.codeStore.Save(ctx, tenantID, e.coder.Digest(code), record, e.config.Credential.CodeTTL); err != nil {
		return "", time.Time{}, ErrCodeUnavailable
	}

	if e.issueLimiter != nil {
		if err := e.issueLimiter.Record(ctx, tenantID, principalID); err != nil && err != ErrIssuanceRateLimited {
			return "", time.Time{}, err
		}
	}

	e.metricInc(MetricCodeIssued)
	e.emitAudit(ctx, auditEventCodeIssued, true, principalID, tenantID, "", nil, nil)

	return code, expiresAt, nil
}

// ResolveVerificationCode consumes a lookup code and returns the principal it
// was issued to. Codes are single-use; unknown, expired, and consumed codes
// are indistinguishable to the caller.
//
//	Docs: docs/webhooks.md
func (e *Engine) ResolveVerificationCode(ctx context.Context, code string) (string, error) {
	if e == nil || e.codeStore == nil || e.coder == nil {
		return "", ErrEngineNotReady
	}

	tenantID := tenantIDFromContext(ctx)

	if !isLookupCode(code) {
		e.metricInc(MetricCodeResolveFailed)
		e.emitAudit(ctx, auditEventCodeResolved, false, "", tenantID, "", ErrVerificationCodeInvalid, nil)
		return "", ErrVerificationCodeInvalid
	}

	record, err := e.codeStore.Consume(ctx, tenantID, e.coder.Digest(code))
	if err != nil {
		if err == errVerificationCodeNotFound {
			e.metricInc(MetricCodeResolveFailed)
			e.emitAudit(ctx, auditEventCodeResolved, false, "", tenantID, "", ErrVerificationCodeInvalid, nil)
			return "", ErrVerificationCodeInvalid
		}
		return "", ErrCodeUnavailable
	}

	e.metricInc(MetricCodeResolved)
	e.emitAudit(ctx, auditEventCodeResolved, true, record.PrincipalID, tenantID, "", nil, nil)

	return record.PrincipalID, nil
}

// HandleDeliveryReceipt authenticates an inbound provider webhook and decodes
// the delivery receipt it carries. A bad signature is a decision, not an
// error: the result reports Accepted=false and the payload is never parsed.
// When the receipt references a lookup code, the code is resolved to its
// principal.
//
//	Docs: docs/webhooks.md
func (e *Engine) HandleDeliveryReceipt(ctx context.Context, payload []byte, signature string) (*ReceiptResult, error) {
	if e == nil || e.webhookVerifier == nil {
		return nil, ErrEngineNotReady
	}

	tenantID := tenantIDFromContext(ctx)

	if !e.webhookVerifier.Verify(payload, signature) {
		e.metricInc(MetricWebhookRejected)
		e.emitAudit(ctx, auditEventWebhookRejected, false, "", tenantID, "", nil, nil)
		return &ReceiptResult{Accepted: false}, nil
	}

	var receipt DeliveryReceipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		e.metricInc(MetricWebhookRejected)
		e.emitAudit(ctx, auditEventWebhookRejected, false, "", tenantID, "", ErrWebhookPayloadInvalid, nil)
		return nil, ErrWebhookPayloadInvalid
	}

	result := &ReceiptResult{
		Accepted: true,
		Receipt:  &receipt,
	}

	if receipt.Code != "" {
		principalID, err := e.ResolveVerificationCode(ctx, receipt.Code)
		if err != nil && err != ErrVerificationCodeInvalid {
			return nil, err
		}
		result.PrincipalID = principalID
	}

	e.metricInc(MetricWebhookAccepted)
	e.emitAudit(ctx, auditEventWebhookAccepted, true, result.PrincipalID, tenantID, "", nil, func() map[string]string {
		return map[string]string{
			"message_id": receipt.MessageID,
			"status":     receipt.Status,
		}
	})

	return result, nil
}

func isLookupCode(code string) bool {
	if len(code) != 9 || code[:3] != "VER" {
		return false
	}
	for i := 3; i < len(code); i++ {
		c := code[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
