package middleware

import (
	"net/http"

	goMFA "github.com/MrEthical07/goMFA"
)

// PrincipalResolver extracts the principal a request claims to act for. Return
// an empty string to reject.
type PrincipalResolver func(r *http.Request) string

// RequireProofForPrincipal validates the bearer proof and additionally checks
// that it was issued to the principal the resolver names. A proof for a
// different principal is rejected even when otherwise valid.
//
//	Docs: docs/proof.md
func RequireProofForPrincipal(engine *goMFA.Engine, resolve PrincipalResolver) func(http.Handler) http.Handler {
	base := RequireProof(engine)
	return func(next http.Handler) http.Handler {
		return base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ProofClaimsFromContext(r.Context())
			if !ok || resolve == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			principal := resolve(r)
			if principal == "" || principal != claims.PID {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}
