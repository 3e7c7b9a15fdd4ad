package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultCSRFConfig_Development(t *testing.T) {
	authKey := []byte("12345678901234567890123456789012")
	cfg := DefaultCSRFConfig(authKey, true)

	if len(cfg.AuthKey) != 32 {
		t.Errorf("expected 32-byte AuthKey, got %d bytes", len(cfg.AuthKey))
	}

	// Trusted origins must be host:port values, not full URLs, or the
	// csrf library will never match them.
	if len(cfg.TrustedOrigins) != 2 {
		t.Errorf("expected 2 TrustedOrigins in dev mode, got %d", len(cfg.TrustedOrigins))
	}
	for _, origin := range cfg.TrustedOrigins {
		if strings.HasPrefix(origin, "http") {
			t.Errorf("TrustedOrigin should be host:port, not full URL: %s", origin)
		}
	}
}

func TestDefaultCSRFConfig_Production(t *testing.T) {
	authKey := []byte("12345678901234567890123456789012")
	cfg := DefaultCSRFConfig(authKey, false)

	if len(cfg.TrustedOrigins) != 0 {
		t.Errorf("expected no TrustedOrigins in production, got %d", len(cfg.TrustedOrigins))
	}
}

func TestCSRF_BlocksCrossSitePOST(t *testing.T) {
	authKey := []byte("12345678901234567890123456789012")
	handler := CSRF(CSRFConfig{AuthKey: authKey})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "https://example.com/login", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-site POST status = %d; want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCSRF_AllowsSameOriginPOST(t *testing.T) {
	authKey := []byte("12345678901234567890123456789012")
	handler := CSRF(CSRFConfig{AuthKey: authKey})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "https://example.com/login", nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("same-origin POST status = %d; want %d", rec.Code, http.StatusOK)
	}
}

func TestCSRF_AllowsGET(t *testing.T) {
	authKey := []byte("12345678901234567890123456789012")
	handler := CSRF(CSRFConfig{AuthKey: authKey})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d; want %d", rec.Code, http.StatusOK)
	}
}
