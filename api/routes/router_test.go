package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tripcrew-backend/internal/trips"
	pkgAuth "github.com/angelmondragon/tripcrew-backend/pkg/auth"
	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
	"github.com/angelmondragon/tripcrew-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubTripsService struct {
	trips.Service
	caller uuid.UUID
}

func (s *stubTripsService) ListMyTrips(ctx context.Context, callerID uuid.UUID) ([]trips.UserTripDTO, error) {
	s.caller = callerID
	return []trips.UserTripDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "tripcrew", ExpirationMinutes: 10},
		JoinRateLimit: config.JoinRateLimitConfig{
			Window:    time.Minute,
			IPLimit:   5,
			UserLimit: 5,
		},
	}
}

func newTestRouter(t *testing.T, svc trips.Service) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}})
	return NewRouter(testConfig(), logg, stubPinger{}, nil, svc, metrics.NewHTTPMetrics(reg), reg), reg
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.NewAuthority(testConfig().JWT).Mint(userID, "")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router, _ := newTestRouter(t, &stubTripsService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestTripRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t, &stubTripsService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trips/my-trips", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMyTripsUsesTokenIdentity(t *testing.T) {
	svc := &stubTripsService{}
	router, _ := newTestRouter(t, svc)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips/my-trips", nil)
	req.Header.Set("Authorization", bearer(t, userID))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.caller != userID {
		t.Fatalf("expected caller %s, got %s", userID, svc.caller)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	router, _ := newTestRouter(t, &stubTripsService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("expected health request counter, got:\n%s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &stubTripsService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/trips/create", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
}
