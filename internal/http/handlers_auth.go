package http

import (
	"errors"
	"log/slog"
	"net/http"

	"hausmate/internal/auth"
)

// authFormData feeds the login and register templates.
type authFormData struct {
	Error string
	Email string
	Name  string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentUser(r); err == nil {
		http.Redirect(w, r, "/houses", http.StatusSeeOther)
		return
	}
	s.render(w, r, "home.html", nil)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", authFormData{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := sanitizeInput(r.Form.Get("name"))
	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	if name == "" || email == "" {
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", authFormData{Error: "Name and email are required", Email: email, Name: name})
		return
	}

	user, err := s.authn.Register(r.Context(), name, email, password)
	switch {
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrEmailExists):
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "register.html", authFormData{Error: err.Error(), Email: email, Name: name})
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Registration failed", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID)

	// Issue a session right away so new users land on their house list
	// without a second login step.
	token, err := s.sessions.Generate(user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token generation failed", "error", err, "user_id", user.ID)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setSession(w, token, s.sessions.TokenDuration())
	http.Redirect(w, r, "/houses", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", authFormData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.authn.Authenticate(r.Context(), email, password)
	if err != nil {
		s.renderStatus(w, r, http.StatusUnauthorized, "login.html", authFormData{Error: "Invalid email or password", Email: email})
		return
	}

	token, err := s.sessions.Generate(user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token generation failed", "error", err, "user_id", user.ID)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	s.setSession(w, token, s.sessions.TokenDuration())
	http.Redirect(w, r, "/houses", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
