package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "futurecoin_session"

type contextKey string

// userContextKey carries the authenticated username through the
// request context.
const userContextKey contextKey = "auth_user"

// Sessions wraps the cookie store and the auth middleware.
type Sessions struct {
	store *sessions.CookieStore
}

func NewSessions(secret string, secure bool) *Sessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// Set writes the session cookie for a logged-in user.
func (s *Sessions) Set(w http.ResponseWriter, r *http.Request, username string, isAdmin bool) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values["user"] = username
	session.Values["is_admin"] = isAdmin
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	delete(session.Values, "user")
	delete(session.Values, "is_admin")
	return session.Save(r, w)
}

// Current returns the logged-in username and admin flag, if any.
func (s *Sessions) Current(r *http.Request) (string, bool, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		return "", false, false
	}
	username, ok := session.Values["user"].(string)
	if !ok || username == "" {
		return "", false, false
	}
	isAdmin, _ := session.Values["is_admin"].(bool)
	return username, isAdmin, true
}

// RequireAuth rejects unauthenticated requests with a 401 JSON body
// and stores the username in the request context otherwise.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _, ok := s.Current(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UsernameFromContext returns the username stored by RequireAuth.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(userContextKey).(string)
	return username
}
