package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFromFallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}

func TestComponentTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	Component(With(context.Background(), l), "hangupby").Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["component"] != "hangupby" {
		t.Fatalf("expected component attribute, got %v", rec)
	}
}

func TestMiddlewarePropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	var fromCtx, fromGin *slog.Logger
	r.GET("/x", func(c *gin.Context) {
		fromCtx = From(c.Request.Context())
		fromGin = FromGin(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("expected request id echoed")
	}
	if fromCtx != fromGin || fromCtx == slog.Default() {
		t.Fatalf("expected the request logger in both contexts")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-1"`)) {
		t.Fatalf("expected request summary with request id, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		env, level string
		want       slog.Level
	}{
		{"local", "", slog.LevelDebug},
		{"production", "", slog.LevelInfo},
		{"production", "debug", slog.LevelDebug},
		{"dev", "WARN", slog.LevelWarn},
		{"staging", "loud", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.env, tc.level); got != tc.want {
			t.Fatalf("ParseLevel(%q, %q) = %v, want %v", tc.env, tc.level, got, tc.want)
		}
	}
}

func TestMiddlewareSummaryCarriesIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	r.POST("/v1/tasks/:sid/wrapup", func(c *gin.Context) {
		c.Set("worker_sid", "WK1")
		c.Status(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/tasks/WR1/wrapup", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if rec["worker_sid"] != "WK1" || rec["sid"] != "WR1" || rec["path"] != "/v1/tasks/:sid/wrapup" {
		t.Fatalf("unexpected summary: %v", rec)
	}
}
