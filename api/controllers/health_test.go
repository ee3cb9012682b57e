package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(envHeader) != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	cases := []struct {
		name     string
		db       Pinger
		redis    Pinger
		status   int
		contains string
	}{
		{name: "db only", db: stubPinger{}, status: http.StatusOK, contains: `"database":"up"`},
		{name: "db and redis", db: stubPinger{}, redis: stubPinger{}, status: http.StatusOK, contains: `"redis":"up"`},
		{name: "db down", db: stubPinger{err: errors.New("boom")}, status: http.StatusServiceUnavailable, contains: `"database":"down"`},
		{name: "redis down", db: stubPinger{}, redis: stubPinger{err: errors.New("boom")}, status: http.StatusServiceUnavailable, contains: `"redis":"down"`},
		{name: "no db", status: http.StatusServiceUnavailable, contains: "DEPENDENCY_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthReady(cfg, nil, tc.db, tc.redis).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.contains) {
				t.Fatalf("expected %q in %s", tc.contains, rec.Body.String())
			}
		})
	}
}
