package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tripcrew-backend/pkg/db/models"
	"github.com/angelmondragon/tripcrew-backend/pkg/enums"
	"github.com/angelmondragon/tripcrew-backend/pkg/outbox"
)

type stubLister struct {
	rows   []models.OutboxDLQ
	err    error
	filter outbox.DLQFilter
}

func (s *stubLister) List(_ context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error) {
	s.filter = filter
	return s.rows, s.err
}

func TestPrintDLQWritesJSONLines(t *testing.T) {
	msg := "max publish attempts reached: redis down"
	lister := &stubLister{rows: []models.OutboxDLQ{
		{
			EventID:       uuid.New(),
			EventType:     enums.EventVoteCast,
			AggregateType: enums.AggregatePoll,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{"version":1,"data":{}}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &msg,
			AttemptCount:  10,
			FailedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			EventID:       uuid.New(),
			EventType:     enums.EventTripLocked,
			AggregateType: enums.AggregateTrip,
			AggregateID:   uuid.New(),
			Payload:       []byte(`not-json`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		},
	}}

	var out bytes.Buffer
	filter := outbox.DLQFilter{Reason: enums.OutboxDLQReasonMaxAttempts, Limit: 2}
	if err := printDLQ(context.Background(), &out, lister, filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.filter != filter {
		t.Fatalf("filter not forwarded: %+v", lister.filter)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), out.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second line: %v", err)
	}
	if first["reason"] != "max_attempts" || first["error"] != msg || first["attempts"] != float64(10) {
		t.Fatalf("unexpected first line %v", first)
	}
	if _, ok := first["envelope"].(map[string]any); !ok {
		t.Fatalf("expected embedded envelope, got %v", first["envelope"])
	}
	if _, ok := second["envelope"]; ok {
		t.Fatalf("invalid payloads must be omitted, got %v", second["envelope"])
	}
	if _, ok := second["error"]; ok {
		t.Fatalf("missing error message must be omitted")
	}
}

func TestPrintDLQPropagatesListError(t *testing.T) {
	lister := &stubLister{err: errors.New("db gone")}
	var out bytes.Buffer
	if err := printDLQ(context.Background(), &out, lister, outbox.DLQFilter{}); err == nil {
		t.Fatal("expected error")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
