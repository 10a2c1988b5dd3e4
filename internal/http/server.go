// Package http serves the server-rendered web UI.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"

	"hausmate/internal/auth"
	"hausmate/internal/middleware/ratelimit"
	"hausmate/internal/middleware/security"
	"hausmate/internal/middleware/trace"
	"hausmate/internal/services"
	appweb "hausmate/web"
)

type Server struct {
	http.Server

	templates *template.Template
	ledger    *services.LedgerService
	authn     *auth.PasswordAuthenticator
	sessions  *auth.JWTManager
	users     auth.UserStorage

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, authn *auth.PasswordAuthenticator, sessions *auth.JWTManager, users auth.UserStorage) *Server {
	mux := http.NewServeMux()

	s := &Server{
		ledger:      ledger,
		authn:       authn,
		sessions:    sessions,
		users:       users,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /houses", s.requireUser(s.handleHouseList))
	mux.HandleFunc("GET /houses/create", s.requireUser(s.handleHouseForm))
	mux.HandleFunc("POST /houses/create", s.requireUser(s.handleHouseCreate))
	mux.HandleFunc("GET /houses/{houseID}", s.requireUser(s.handleHouseDetail))
	mux.HandleFunc("POST /houses/{houseID}/update", s.requireUser(s.handleHouseUpdate))
	mux.HandleFunc("POST /houses/{houseID}/delete", s.requireUser(s.handleHouseDelete))
	mux.HandleFunc("POST /houses/{houseID}/roommates/create", s.requireUser(s.handleRoommateCreate))
	mux.HandleFunc("GET /houses/{houseID}/roommates/{roommateID}", s.requireUser(s.handleRoommateDetail))
	mux.HandleFunc("GET /houses/{houseID}/bills/create", s.requireUser(s.handleBillForm))
	mux.HandleFunc("POST /houses/{houseID}/bills/create", s.requireUser(s.handleBillCreate))
	mux.HandleFunc("GET /houses/{houseID}/bills/{billID}", s.requireUser(s.handleBillDetail))
	mux.HandleFunc("GET /payments/{paymentID}/pay", s.requireUser(s.handlePaymentForm))
	mux.HandleFunc("POST /payments/{paymentID}/pay", s.requireUser(s.handlePaymentCreate))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traced := trace.NewMiddleware(extractClientIP)
	limited := s.limitWrites(headers.Middleware(mux))

	s.Server = http.Server{
		Addr:    addr,
		Handler: traced.Middleware(limited),
	}
	return s
}

// limitWrites rate limits mutating requests only; reads stay unthrottled.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limit := s.rateLimiter.Middleware(extractClientIP)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limit.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}
