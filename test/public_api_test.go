package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	goMFA "github.com/MrEthical07/goMFA"
	"github.com/MrEthical07/goMFA/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goMFA.New

	var _ *goMFA.Engine
	var _ goMFA.Config
	var _ goMFA.StartResult
	var _ goMFA.VerifyResult
	var _ goMFA.ReceiptResult
	var _ goMFA.TOTPSecretProvider
	var _ goMFA.PasskeyVerifier
	var _ goMFA.ChallengeSender
	var _ goMFA.SignatureVerifier
	var _ goMFA.AuditSink

	var _ error = goMFA.ErrEngineNotReady
	var _ error = goMFA.ErrFactorInvalid
	var _ error = goMFA.ErrPrincipalInvalid
	var _ error = goMFA.ErrIssuanceRateLimited
	var _ error = goMFA.ErrVerifyRateLimited
	var _ error = goMFA.ErrVerificationCodeInvalid
	var _ error = goMFA.ErrTOTPNotConfigured
	var _ error = goMFA.ErrProofDisabled

	var _ func(*goMFA.Engine) func(http.Handler) http.Handler = middleware.RequireProof

	var _ func(*goMFA.Engine, context.Context, string, goMFA.FactorKind) (*goMFA.StartResult, error) = (*goMFA.Engine).StartSession
	var _ func(*goMFA.Engine, context.Context, string, string) (goMFA.Outcome, error) = (*goMFA.Engine).VerifyCode
	var _ func(*goMFA.Engine, context.Context, string, string) (*goMFA.VerifyResult, error) = (*goMFA.Engine).VerifyCodeWithProof
	var _ func(*goMFA.Engine, context.Context, string, goMFA.PasskeyAssertion) (goMFA.Outcome, error) = (*goMFA.Engine).VerifyPasskey
	var _ func(*goMFA.Engine, context.Context, string) (string, time.Time, error) = (*goMFA.Engine).IssueVerificationCode
	var _ func(*goMFA.Engine, context.Context, string) (string, error) = (*goMFA.Engine).ResolveVerificationCode
	var _ func(*goMFA.Engine, context.Context, []byte, string) (*goMFA.ReceiptResult, error) = (*goMFA.Engine).HandleDeliveryReceipt
}
