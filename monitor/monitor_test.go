package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthReflectsPing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	Register(r, Options{})
	if w := serve(r, "/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	down := gin.New()
	Register(down, Options{Ping: func(ctx context.Context) error { return errors.New("db unreachable") }})
	w := serve(down, "/health")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "db unreachable") {
		t.Fatalf("expected 503 with reason, got %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsAndLogsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	Register(r, Options{LogToken: "tok"})
	if w := serve(r, "/metrics"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %d", w.Code)
	}
	if w := serve(r, "/logs?token=wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := serve(r, "/monitor?token=tok"); w.Code != http.StatusOK || strings.Contains(w.Body.String(), "tok'") {
		t.Fatalf("unexpected monitor page response %d", w.Code)
	}

	closed := gin.New()
	Register(closed, Options{})
	if w := serve(closed, "/logs?token="); w.Code != http.StatusNotFound {
		t.Fatalf("expected logs route to be absent without a token, got %d", w.Code)
	}
}
