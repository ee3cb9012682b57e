package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
)

type dlqLister interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
}

type dlqLine struct {
	EventID       uuid.UUID       `json:"eventId"`
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   uuid.UUID       `json:"aggregateId"`
	Reason        string          `json:"reason"`
	Error         string          `json:"error,omitempty"`
	Attempts      int             `json:"attempts"`
	FailedAt      time.Time       `json:"failedAt"`
	Envelope      json.RawMessage `json:"envelope,omitempty"`
}

// printDLQ writes one JSON object per dead letter so the output pipes into jq.
func printDLQ(ctx context.Context, w io.Writer, repo dlqLister, filter outbox.DLQFilter) error {
	rows, err := repo.List(ctx, filter)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, row := range rows {
		line := dlqLine{
			EventID:       row.EventID,
			EventType:     string(row.EventType),
			AggregateType: string(row.AggregateType),
			AggregateID:   row.AggregateID,
			Reason:        string(row.ErrorReason),
			Attempts:      row.AttemptCount,
			FailedAt:      row.FailedAt.UTC(),
		}
		if row.ErrorMessage != nil {
			line.Error = *row.ErrorMessage
		}
		if json.Valid(row.Payload) {
			line.Envelope = json.RawMessage(row.Payload)
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
