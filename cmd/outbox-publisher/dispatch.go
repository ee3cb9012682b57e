package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox/registry"
)

var (
	errAlreadyPublished = errors.New("event already published")
	errMissingChannel   = errors.New("channel not configured")
)

// channelMessage is what subscribers of the event channel receive.
type channelMessage struct {
	OutboxID      uuid.UUID                 `json:"outboxId"`
	EventID       string                    `json:"eventId"`
	EventType     enums.OutboxEventType     `json:"eventType"`
	AggregateType enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID   uuid.UUID                 `json:"aggregateId"`
	CreatedAt     time.Time                 `json:"createdAt"`
	Envelope      json.RawMessage           `json:"envelope"`
}

type verdict int

const (
	verdictDelivered verdict = iota
	verdictDuplicate
	verdictRetry
	verdictDeadLetter
)

// judge maps the outcome of one publish attempt onto what happens to the row.
func (s *Service) judge(event models.OutboxEvent, err error) (verdict, enums.OutboxDLQErrorReason) {
	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		return verdictDelivered, ""
	case errors.Is(err, errAlreadyPublished):
		return verdictDuplicate, ""
	case errors.As(err, &permanent):
		return verdictDeadLetter, enums.OutboxDLQReasonNonRetryable
	case event.AttemptCount+1 >= s.maxAttempts:
		return verdictDeadLetter, enums.OutboxDLQReasonMaxAttempts
	default:
		return verdictRetry, ""
	}
}

// processBatch claims up to batchSize rows and settles each of them inside a
// single transaction. It reports whether any rows were claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	claimed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(events)
		for _, event := range events {
			if err := s.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 {
		s.metrics.ObserveBatch(time.Since(started))
	}
	return claimed > 0, err
}

// dispatch publishes one row and records the result. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, nil, enums.OutboxDLQReasonNonRetryable, err)
	}

	pubErr := s.publish(ctx, event, resolved)
	outcome, reason := s.judge(event, pubErr)
	logCtx := s.logg.WithFields(ctx, s.logFields(event, resolved))
	eventType := string(event.EventType)

	switch outcome {
	case verdictDuplicate:
		s.logg.Info(logCtx, "outbox event already delivered, marking published")
	case verdictDelivered:
		s.metrics.IncPublished(eventType)
		s.logg.Info(logCtx, "outbox event published")
	case verdictRetry:
		s.metrics.IncFailed(eventType)
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"attempt_count": event.AttemptCount + 1,
			"error":         pubErr.Error(),
		}), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		return nil
	case verdictDeadLetter:
		s.metrics.IncFailed(eventType)
		if reason == enums.OutboxDLQReasonMaxAttempts {
			pubErr = fmt.Errorf("max publish attempts reached: %w", pubErr)
		}
		return s.deadLetter(ctx, tx, event, resolved, reason, pubErr)
	}

	if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	return nil
}

// deadLetter copies the row into outbox_dlq and retires it from publishing.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := s.logFields(event, resolved)
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

// publish sends one row. With a dedupe guard the event id is claimed first
// and released when the send fails, so a row whose batch rolled back after
// delivery is not sent twice.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	channel := resolved.Descriptor.Channel
	if channel == "" {
		return registry.NewNonRetryableError(fmt.Errorf("%w for %s", errMissingChannel, event.EventType))
	}
	body, err := json.Marshal(channelMessage{
		OutboxID:      event.ID,
		EventID:       resolved.Envelope.EventID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		CreatedAt:     event.CreatedAt,
		Envelope:      json.RawMessage(event.Payload),
	})
	if err != nil {
		return registry.NewNonRetryableError(fmt.Errorf("encode channel message: %w", err))
	}

	if s.dedupe != nil {
		fresh, err := s.dedupe.Claim(ctx, consumerName, event.ID)
		if err != nil {
			return fmt.Errorf("dedupe claim: %w", err)
		}
		if !fresh {
			return errAlreadyPublished
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	if _, err := s.publisher.Publish(sendCtx, channel, body); err != nil {
		if s.dedupe != nil {
			err = multierr.Append(err, s.dedupe.Release(ctx, consumerName, event.ID))
		}
		return err
	}
	return nil
}

func (s *Service) logFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["channel"] = resolved.Descriptor.Channel
		fields["event_id"] = resolved.Envelope.EventID
		fields["occurred_at"] = resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
