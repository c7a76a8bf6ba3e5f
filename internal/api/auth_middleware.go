// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package api

import (
	"net/http"
	"strings"

	"github.com/elevow/table-sub009/internal/auth"
	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/logging"
)

// requireAdmin rejects requests without a valid bearer token carrying the
// admin role. With auth_mode "none" it is a pass-through.
func requireAdmin(cfg config.SecurityConfig, jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	if cfg.AuthMode == "none" {
		logging.Warn().Msg("Admin API authentication disabled (security.auth_mode=none)")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if jwtManager == nil {
				respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Authentication is not configured", nil)
				return
			}

			token, err := auth.BearerToken(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="table-admin"`)
				respondError(w, http.StatusUnauthorized, codeUnauthorized, "Missing bearer token", nil)
				return
			}

			claims, err := jwtManager.ValidateToken(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="table-admin", error="invalid_token"`)
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
				respondError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid or expired token", nil)
				return
			}

			if !strings.EqualFold(claims.Role, cfg.AdminRole) {
				logging.Ctx(r.Context()).Warn().
					Str("subject", sanitizeLogValue(claims.Subject)).
					Str("role", sanitizeLogValue(claims.Role)).
					Msg("Non-admin token rejected")
				respondError(w, http.StatusForbidden, codeForbidden, "Admin role required", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithClaims(r.Context(), claims)))
		})
	}
}
