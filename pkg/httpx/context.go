package httpx

import "net/http"

// Context keys populated by the session middleware.
type ctxKey string

const (
	CtxKeyAccountID ctxKey = "account_id"
	CtxKeyRole      ctxKey = "role"
)

// Middleware is the common middleware shape used across the router.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in declaration order (the first listed is the
// outermost).
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
