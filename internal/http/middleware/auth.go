package middleware

import (
	"crypto/subtle"

	"github.com/valyala/fasthttp"

	"statsink/internal/config"
)

// RequireToken rejects requests whose Authorization header does not match
// the shared token. It runs before any domain logic, so an unauthorized
// request can never touch state.
func RequireToken(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	token := []byte(cfg.AuthToken)
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			auth := ctx.Request.Header.Peek("Authorization")
			if len(auth) == 0 || subtle.ConstantTimeCompare(auth, token) != 1 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetContentType("application/json")
				ctx.SetBodyString(`{"error":"Unauthorized"}`)
				return
			}
			next(ctx)
		}
	}
}
