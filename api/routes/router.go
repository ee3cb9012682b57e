package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tripcrew-backend/api/controllers"
	tripcontrollers "github.com/angelmondragon/tripcrew-backend/api/controllers/trips"
	"github.com/angelmondragon/tripcrew-backend/api/middleware"
	"github.com/angelmondragon/tripcrew-backend/internal/trips"
	"github.com/angelmondragon/tripcrew-backend/pkg/auth"
	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
	"github.com/angelmondragon/tripcrew-backend/pkg/metrics"
	"github.com/angelmondragon/tripcrew-backend/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient may be nil, in which case
// join rate limiting and idempotency replay are disabled. gatherer may be nil
// to skip the /metrics endpoint.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	tripsService trips.Service,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		redisPinger controllers.Pinger
		rateStore   middleware.RateLimitStore
		idemStore   middleware.ReplayStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		rateStore = redisClient
		idemStore = redisClient
	}

	joinPolicy := middleware.NewJoinRateLimitPolicy(
		"join",
		cfg.JoinRateLimit.Window,
		cfg.JoinRateLimit.IPLimit,
		cfg.JoinRateLimit.UserLimit,
	)
	idempotent := middleware.Idempotency(idemStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/trips", func(r chi.Router) {
		r.Use(middleware.Auth(auth.NewAuthority(cfg.JWT), logg))

		r.With(idempotent).Post("/create", tripcontrollers.Create(tripsService, logg))
		r.With(middleware.JoinRateLimit(joinPolicy, rateStore, logg)).Post("/join", tripcontrollers.Join(tripsService, logg))
		r.Get("/my-trips", tripcontrollers.MyTrips(tripsService, logg))

		r.Route("/{tripId}", func(r chi.Router) {
			r.Get("/", tripcontrollers.Detail(tripsService, logg))
			r.Delete("/", tripcontrollers.Delete(tripsService, logg))
			r.Post("/lock", tripcontrollers.Lock(tripsService, logg))
			r.Post("/unlock", tripcontrollers.Unlock(tripsService, logg))
			r.With(idempotent).Post("/expense", tripcontrollers.AddExpense(tripsService, logg))
			r.Get("/balances", tripcontrollers.Balances(tripsService, logg))
			r.Post("/poll", tripcontrollers.CreatePoll(tripsService, logg))
			r.Delete("/poll/{pollId}", tripcontrollers.DeletePoll(tripsService, logg))
			r.Post("/vote", tripcontrollers.Vote(tripsService, logg))
			r.Delete("/member/{memberId}", tripcontrollers.RemoveMember(tripsService, logg))
		})
	})

	return r
}
