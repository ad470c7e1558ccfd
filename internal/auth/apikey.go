// Package auth guards the API with a static shared secret.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/sakif/usersvc/internal/apperror"
	"github.com/sakif/usersvc/internal/handler"
)

// HeaderName is the request header carrying the API key.
const HeaderName = "X-API-Key"

// msgInvalidKey is returned for a missing, wrong or unconfigured key alike.
const msgInvalidKey = "Could not validate credentials"

// RequireAPIKey is a middleware that rejects requests whose X-API-Key header
// does not equal key. It answers 403 before the request body is read or any
// handler runs.
//
// An empty key rejects every request: a server started without a secret
// serves nothing instead of serving everything.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
func RequireAPIKey(key string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Valid(want, r.Header.Get(HeaderName)) {
				logger.Warn("rejected request with invalid API key",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Bool("header_present", r.Header.Get(HeaderName) != ""),
				)
				handler.WriteError(w, apperror.Unauthorized(msgInvalidKey))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Valid reports whether got matches the configured key want. The comparison
// takes the same time for every got of a given length.
func Valid(want []byte, got string) bool {
	if len(want) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(want, []byte(got)) == 1
}
