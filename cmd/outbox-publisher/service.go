package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
	"github.com/angelmondragon/tripcrew-backend/pkg/metrics"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/registry"
)

const (
	consumerName          = "outbox-publisher"
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type channelPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

type dedupeGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// ServiceParams lists the publisher's collaborators. Dedupe and Metrics may
// be nil.
type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Publisher     channelPublisher
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Dedupe        dedupeGuard
	Metrics       *metrics.OutboxMetrics
}

func (p ServiceParams) check() error {
	missing := map[string]bool{
		"config":            p.Config == nil,
		"logger":            p.Logger == nil,
		"database client":   p.DB == nil,
		"channel publisher": p.Publisher == nil,
		"outbox repository": p.Repository == nil,
		"event registry":    p.Registry == nil,
		"dlq repository":    p.DLQRepository == nil,
	}
	var err error
	for name, absent := range missing {
		if absent {
			err = multierr.Append(err, fmt.Errorf("%s is required", name))
		}
	}
	return err
}

// Service drains outbox_events onto the redis channel in batches.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	repo      outboxRepository
	publisher channelPublisher
	registry  registryResolver
	dlq       dlqRepository
	dedupe    dedupeGuard
	metrics   *metrics.OutboxMetrics

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.check(); err != nil {
		return nil, err
	}
	oc := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		publisher:    params.Publisher,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		dedupe:       params.Dedupe,
		metrics:      params.Metrics,
		batchSize:    orDefault(oc.BatchSize, defaultBatchSize),
		maxAttempts:  orDefault(oc.MaxAttempts, defaultMaxAttempts),
		pollInterval: orDefault(oc.PollInterval(), defaultPollInterval),
	}, nil
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{"redis", s.publisher.Ping},
	}
	var err error
	for _, c := range checks {
		if pingErr := c.ping(ctx); pingErr != nil {
			s.logg.Error(ctx, c.name+".ping_failed", pingErr)
			err = multierr.Append(err, fmt.Errorf("%s ping failed: %w", c.name, pingErr))
		}
	}
	return err
}

// Run polls until ctx is done. A full batch is followed immediately by the
// next one; an empty batch waits one poll interval and a failed batch backs
// off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	wait := time.Duration(0)
	for {
		if err := s.sleep(ctx, wait); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = jittered(nextBackoff(wait, s.pollInterval, maxBackoff))
		case processed:
			wait = 0
		default:
			wait = jittered(s.pollInterval)
		}
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current < base {
		current = base
	}
	return min(current*2, limit)
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
