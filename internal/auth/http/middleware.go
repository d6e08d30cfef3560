package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/tovera/authcore/internal/auth/domain"
	"github.com/tovera/authcore/pkg/httpx"
	"github.com/tovera/authcore/pkg/slogx"
)

// requireSession resolves the bearer token and puts the account id and role
// into the request context.
func (r *Router) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		token := bearerToken(req)
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
			return
		}

		sess, err := r.SessionService.Resolve(ctx, token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired session")
			return
		}

		account, err := r.store.Accounts().GetAccountByID(ctx, sess.AccountID)
		if err != nil {
			slogx.FromContext(ctx).Warn("session references missing account", "account_id", sess.AccountID)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired session")
			return
		}

		ctx = context.WithValue(ctx, httpx.CtxKeyAccountID, account.ID)
		ctx = context.WithValue(ctx, httpx.CtxKeyRole, account.Role)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// requireAdmin gates the administrative surface. Must run inside
// requireSession.
func (r *Router) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		role, _ := req.Context().Value(httpx.CtxKeyRole).(string)
		if role != domain.RoleAdmin {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "administrator role required")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func accountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(httpx.CtxKeyAccountID).(string)
	return id
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
