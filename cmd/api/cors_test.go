package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := withCORS(ok, []string{"https://flex.twilio.com"})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/v1/tasks/WR1/wrapup", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if got := preflight("https://flex.twilio.com").Header().Get("Access-Control-Allow-Origin"); got != "https://flex.twilio.com" {
		t.Fatalf("expected flex origin allowed, got %q", got)
	}
	if got := preflight("https://evil.example").Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected unknown origin rejected, got %q", got)
	}
}
