package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/tripcrew-backend/pkg/db/types"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
	"github.com/angelmondragon/tripcrew-backend/pkg/metrics"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/registry"
)

const testChannel = "tripcrew:trip-events"

func voteEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventVoteCast,
		AggregateType: enums.AggregatePoll,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, uuid.NewString()),
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func voteResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Channel:       testChannel,
			AggregateType: enums.AggregatePoll,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.VoteCastEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{voteEvent(t, 0), voteEvent(t, 0)}}
	pub := &fakePublisher{errs: []error{errors.New("transient"), nil}}
	reg := prometheus.NewRegistry()
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: voteResolved()}, &fakeDLQRepo{}, nil)
	service.metrics = metrics.NewOutboxMetrics(reg)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows: %v", repo.published)
	}

	if got := counterTotal(t, reg, "outbox_published_total"); got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}
	if got := counterTotal(t, reg, "outbox_failed_total"); got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
}

func TestPublishedMessageCarriesEnvelope(t *testing.T) {
	event := voteEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: voteResolved()}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	if pub.sent[0].channel != testChannel {
		t.Fatalf("unexpected channel %q", pub.sent[0].channel)
	}

	var msg channelMessage
	if err := json.Unmarshal(pub.sent[0].payload, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.OutboxID != event.ID || msg.EventType != enums.EventVoteCast || msg.AggregateID != event.AggregateID {
		t.Fatalf("unexpected message %+v", msg)
	}
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Envelope, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 1 {
		t.Fatalf("expected envelope version 1, got %d", env.Version)
	}
}

func TestDedupeSkipsAlreadyDeliveredEvents(t *testing.T) {
	event := voteEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	guard := &fakeDedupe{seen: map[uuid.UUID]bool{event.ID: true}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: voteResolved()}, &fakeDLQRepo{}, nil)
	service.dedupe = guard

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 0 {
		t.Fatalf("expected no publish for a delivered event, got %d", len(pub.sent))
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("expected row marked published, got %v", repo.published)
	}
}

func TestDedupeReleasedWhenPublishFails(t *testing.T) {
	event := voteEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("redis down")}}
	guard := &fakeDedupe{seen: map[uuid.UUID]bool{}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: voteResolved()}, &fakeDLQRepo{}, nil)
	service.dedupe = guard

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if guard.seen[event.ID] {
		t.Fatalf("expected dedupe key released after failed publish")
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected row marked failed, got %v", repo.failed)
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := voteEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	resolver := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, resolver, dlqRepo, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := voteEvent(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("transient")}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: voteResolved()}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{resolved: voteResolved()}, &fakeDLQRepo{}, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestEnsureReadinessCombinesFailures(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{pingErr: errors.New("redis down")}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	service.db = &fakeDB{pingErr: errors.New("db down")}

	err := service.ensureReadiness(context.Background())
	if err == nil {
		t.Fatalf("expected readiness error")
	}
	for _, want := range []string{"database ping failed", "redis ping failed"} {
		if !bytes.Contains([]byte(err.Error()), []byte(want)) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("unexpected backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func TestJudge(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	transient := errors.New("transient")

	cases := []struct {
		name     string
		attempts int
		err      error
		verdict  verdict
		reason   enums.OutboxDLQErrorReason
	}{
		{name: "delivered", err: nil, verdict: verdictDelivered},
		{name: "duplicate", err: errAlreadyPublished, verdict: verdictDuplicate},
		{name: "retry", attempts: 3, err: transient, verdict: verdictRetry},
		{name: "last attempt", attempts: 4, err: transient, verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonMaxAttempts},
		{name: "permanent", err: registry.NewNonRetryableError(transient), verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonNonRetryable},
		{name: "wrapped permanent", err: fmt.Errorf("send: %w", registry.NewNonRetryableError(transient)), verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonNonRetryable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := service.judge(voteEvent(t, tc.attempts), tc.err)
			if got != tc.verdict || reason != tc.reason {
				t.Fatalf("judge = (%v, %q), want (%v, %q)", got, reason, tc.verdict, tc.reason)
			}
		})
	}
}

func TestMissingChannelDeadLetters(t *testing.T) {
	resolved := voteResolved()
	resolved.Descriptor.Channel = ""
	repo := &fakeRepo{events: []models.OutboxEvent{voteEvent(t, 0)}}
	pub := &fakePublisher{}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolved}, dlqRepo, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 0 {
		t.Fatalf("expected nothing published, got %d", len(pub.sent))
	}
	if len(dlqRepo.entries) != 1 || dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlqRepo.entries)
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{Config: &config.Config{}})
	if err == nil {
		t.Fatal("expected error for missing collaborators")
	}
	for _, want := range []string{"logger is required", "database client is required", "dlq repository is required"} {
		if !bytes.Contains([]byte(err.Error()), []byte(want)) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{})
	if service.batchSize != defaultBatchSize || service.maxAttempts != defaultMaxAttempts || service.pollInterval != defaultPollInterval {
		t.Fatalf("defaults not applied: batch=%d attempts=%d poll=%s", service.batchSize, service.maxAttempts, service.pollInterval)
	}
}

func TestJitteredStaysInWindow(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := jittered(time.Second)
		if got < time.Second || got >= time.Second+jitterWindow {
			t.Fatalf("jitter out of window: %s", got)
		}
	}
	if jittered(0) != 0 {
		t.Fatal("zero duration must not be jittered")
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub channelPublisher, resolver registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: outboxCfg},
		Logger:        logg,
		DB:            &fakeDB{},
		Publisher:     pub,
		Repository:    repo,
		Registry:      resolver,
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func mustEnvelopePayload(tb testing.TB, eventID string) dbtypes.JSONText {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return dbtypes.JSONText(payload)
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	errs    []error
	sent    []sentMessage
	pingErr error
}

func (f *fakePublisher) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.sent = append(f.sent, sentMessage{channel: channel, payload: payload})
	return 1, nil
}

type fakeDedupe struct {
	seen map[uuid.UUID]bool
}

func (f *fakeDedupe) Claim(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeDedupe) Release(_ context.Context, _ string, eventID uuid.UUID) error {
	delete(f.seen, eventID)
	return nil
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
