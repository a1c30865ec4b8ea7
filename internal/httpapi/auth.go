package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ohhaus/cafe-booking/internal/store"
)

type authContextKey struct{}

// SessionStore resolves a session token to an actor.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (store.Session, error)
}

// AuthMiddleware resolves the session token and stashes the actor in the
// request context. Availability reads and health stay public.
func AuthMiddleware(sessions SessionStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := sessions.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	session, ok := ctx.Value(authContextKey{}).(store.Session)
	return session, ok
}

// ContextWithSession is for tests and internal callers that bypass the
// middleware.
func ContextWithSession(ctx context.Context, session store.Session) context.Context {
	return context.WithValue(ctx, authContextKey{}, session)
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/debug/vars":
		return true
	case "/api/availability", "/api/availability/free":
		return r.Method == http.MethodGet
	default:
		return r.Method == http.MethodOptions
	}
}
