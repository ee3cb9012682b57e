package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tripcrew-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tripcrew-backend/pkg/errors"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	replayedHeader      = "Idempotent-Replayed"
	maxIdempotencyKey   = 128
	idempotencyTTL      = 24 * time.Hour
	idempotencyLeaseTTL = time.Minute
)

// idempotentRoutes lists the chi route patterns whose responses are replayed.
var idempotentRoutes = map[string]bool{
	http.MethodPost + " /api/v1/trips/create":           true,
	http.MethodPost + " /api/v1/trips/{tripId}/expense": true,
}

// ReplayStore is the redis surface used to remember responses.
type ReplayStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type replayRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"requestHash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the stored response when a client repeats an
// Idempotency-Key on trip creation or expense creation. The key is leased
// while the first request runs; 5xx responses release it so the client can
// retry. Requests without the header, and everything when store is nil, pass
// through untouched.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if store == nil || clientKey == "" || !idempotentRoutes[r.Method+" "+routePattern(r)] {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key is too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+r.URL.Path, clientKey)

			if existing, err := loadRecord(ctx, store, key); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup"))
				return
			} else if existing != nil {
				replay(ctx, logg, w, existing, hash)
				return
			}

			lease, _ := json.Marshal(replayRecord{Pending: true, RequestHash: hash})
			won, err := store.SetNX(ctx, key, string(lease), idempotencyLeaseTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lease"))
				return
			}
			if !won {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is in progress"))
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)
			settle(context.WithoutCancel(ctx), store, logg, key, hash, ww, captured.Bytes())
		})
	}
}

func loadRecord(ctx context.Context, store ReplayStore, key string) (*replayRecord, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec replayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, rec *replayRecord, hash string) {
	switch {
	case rec.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request body"))
	case rec.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is in progress"))
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

// settle stores the final response, or drops the lease on a server error.
func settle(ctx context.Context, store ReplayStore, logg *logger.Logger, key, hash string, ww chimw.WrapResponseWriter, body []byte) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		if err := store.Del(ctx, key); err != nil && logg != nil {
			logg.Error(ctx, "release idempotency lease", err)
		}
		return
	}
	payload, err := json.Marshal(replayRecord{
		RequestHash: hash,
		Status:      status,
		ContentType: ww.Header().Get("Content-Type"),
		Body:        body,
	})
	if err == nil {
		err = store.Set(ctx, key, string(payload), idempotencyTTL)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "persist idempotency record", err)
	}
}
