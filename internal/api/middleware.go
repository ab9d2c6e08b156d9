// Package api implements the REST surface using chi.
package api

import (
	"context"
	"net/http"

	"github.com/jacksnnn/fabublox-process-selector/internal/session"
)

// SessionCookie is the cookie carrying the opaque session ID.
const SessionCookie = "_selector_session"

type ctxKey int

const sessionKey ctxKey = iota

// RequireSession returns middleware that resolves the caller's session
// from its cookie and rejects unauthenticated requests. Downstream
// handlers read the session with SessionFrom and pass it explicitly into
// service calls.
func RequireSession(sessions session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody("authorization required"))
				return
			}
			sess, err := sessions.SessionByID(r.Context(), cookie.Value)
			if err != nil || !sess.Authenticated() {
				writeJSON(w, http.StatusUnauthorized, errorBody("authorization required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
		})
	}
}

// SessionFrom returns the authenticated session placed by RequireSession,
// or nil outside the middleware.
func SessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}
