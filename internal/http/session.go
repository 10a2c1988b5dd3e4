package http

import (
	"log/slog"
	"net/http"
	"time"

	"hausmate/internal/core"
)

const sessionCookie = "hausmate_session"

// authedHandler is a handler that runs with a signed-in user.
type authedHandler func(w http.ResponseWriter, r *http.Request, user *core.User)

// requireUser resolves the session cookie to a user and redirects to the
// login page when there is none.
func (s *Server) requireUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, user)
	}
}

// currentUser returns the user carried by the session cookie, if any.
func (s *Server) currentUser(r *http.Request) (*core.User, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}
	claims, err := s.sessions.Validate(cookie.Value)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(r.Context(), id)
	if err != nil {
		slog.WarnContext(r.Context(), "Session for unknown user", "user_id", id)
		return nil, err
	}
	return user, nil
}

func (s *Server) setSession(w http.ResponseWriter, token string, duration time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(duration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
