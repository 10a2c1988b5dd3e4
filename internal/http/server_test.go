package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hausmate/internal/auth"
	"hausmate/internal/services"
	"hausmate/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ledger := services.NewLedgerService(repo, nil)
	authn := auth.NewPasswordAuthenticator(repo)
	sessions := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	return NewServer(":0", ledger, authn, sessions, repo)
}

func do(t *testing.T, srv *Server, method, target, cookie string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns the session cookie.
func register(t *testing.T, srv *Server, name, email string) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/register", "", url.Values{
		"name":     {name},
		"email":    {email},
		"password": {"password123"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register status = %d, want 303", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatalf("no session cookie set on register")
	return ""
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	if rec := do(t, srv, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/houses", "", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("location = %q, want /login", loc)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "Alex", "alex@example.com")

	rec := do(t, srv, http.MethodPost, "/login", "", url.Values{
		"email":    {"alex@example.com"},
		"password": {"wrong password"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid email or password") {
		t.Fatalf("body missing error message")
	}
}

func TestHouseBillPaymentFlow(t *testing.T) {
	srv := newTestServer(t)
	cookie := register(t, srv, "Alex", "alex@example.com")

	rec := do(t, srv, http.MethodPost, "/houses/create", cookie, url.Values{"name": {"Baker Street"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create house = %d, body %s", rec.Code, rec.Body.String())
	}
	houseURL := rec.Header().Get("Location")

	rec = do(t, srv, http.MethodGet, houseURL, cookie, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Baker Street") {
		t.Fatalf("house detail = %d", rec.Code)
	}
	// Creator appears as the seeded roommate.
	if !strings.Contains(rec.Body.String(), "Alex") {
		t.Fatalf("house detail missing creator roommate")
	}

	rec = do(t, srv, http.MethodPost, houseURL+"/roommates/create", cookie, url.Values{"name": {"Sam"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("add roommate = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, houseURL+"/bills/create", cookie, url.Values{
		"name":   {"Electric"},
		"amount": {"64.00"},
		"owner":  {"1"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create bill = %d, body %s", rec.Code, rec.Body.String())
	}
	billURL := rec.Header().Get("Location")

	rec = do(t, srv, http.MethodGet, billURL, cookie, nil)
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("bill detail = %d", rec.Code)
	}
	// 64.00 split two ways.
	if !strings.Contains(body, "32.00") {
		t.Fatalf("bill detail missing 32.00 shares:\n%s", body)
	}

	rec = do(t, srv, http.MethodPost, "/payments/2/pay", cookie, url.Values{"amount": {"10.00"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("record payment = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodGet, billURL, cookie, nil)
	if !strings.Contains(rec.Body.String(), "22.00") {
		t.Fatalf("bill detail missing updated balance:\n%s", rec.Body.String())
	}

	// Paying more than the outstanding share is rejected.
	rec = do(t, srv, http.MethodPost, "/payments/2/pay", cookie, url.Values{"amount": {"999.00"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overpayment = %d, want 422", rec.Code)
	}

	// Roommate page shows the owed table.
	rec = do(t, srv, http.MethodGet, houseURL+"/roommates/2", cookie, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "22.00") {
		t.Fatalf("roommate detail = %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestInvalidBillAmount(t *testing.T) {
	srv := newTestServer(t)
	cookie := register(t, srv, "Alex", "alex@example.com")

	rec := do(t, srv, http.MethodPost, "/houses/create", cookie, url.Values{"name": {"Baker Street"}})
	houseURL := rec.Header().Get("Location")

	rec = do(t, srv, http.MethodPost, houseURL+"/bills/create", cookie, url.Values{
		"name":   {"Electric"},
		"amount": {"not-a-number"},
		"owner":  {"1"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid amount") {
		t.Fatalf("body missing validation message")
	}
}

func TestHouseIsolationBetweenUsers(t *testing.T) {
	srv := newTestServer(t)
	alex := register(t, srv, "Alex", "alex@example.com")
	sam := register(t, srv, "Sam", "sam@example.com")

	rec := do(t, srv, http.MethodPost, "/houses/create", alex, url.Values{"name": {"Baker Street"}})
	houseURL := rec.Header().Get("Location")

	rec = do(t, srv, http.MethodGet, houseURL, sam, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign house access = %d, want 403", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/houses", sam, nil)
	if strings.Contains(rec.Body.String(), "Baker Street") {
		t.Fatalf("house list leaked another user's house")
	}
}
