package enums

import "testing"

func TestParseTripRole(t *testing.T) {
	role, err := ParseTripRole("leader")
	if err != nil || role != TripRoleLeader {
		t.Fatalf("expected leader, got %q (%v)", role, err)
	}
	if _, err := ParseTripRole("owner"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if TripRole("admin").IsValid() {
		t.Fatal("admin is not a trip role")
	}
}

func TestParseTripStatus(t *testing.T) {
	status, err := ParseTripStatus("locked")
	if err != nil || status != TripStatusLocked {
		t.Fatalf("expected locked, got %q (%v)", status, err)
	}
	if _, err := ParseTripStatus("archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseSplitType(t *testing.T) {
	tests := []struct {
		in      string
		want    SplitType
		wantErr bool
	}{
		{in: "", want: SplitTypeEqual},
		{in: "equal", want: SplitTypeEqual},
		{in: " Individual ", want: SplitTypeIndividual},
		{in: "weird", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSplitType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseSplitType(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSplitType(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseSplitType(%q) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseVoteValue(t *testing.T) {
	valid := map[string]VoteValue{"1": VoteYes, "+1": VoteYes, "-1": VoteNo, " -1 ": VoteNo}
	for in, want := range valid {
		got, err := ParseVoteValue(in)
		if err != nil {
			t.Fatalf("ParseVoteValue(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseVoteValue(%q) = %d want %d", in, got, want)
		}
	}
	for _, in := range []string{"0", "2", "-2", "yes", "", "1.0"} {
		if _, err := ParseVoteValue(in); err == nil {
			t.Fatalf("ParseVoteValue(%q) expected error", in)
		}
	}
}

func TestOutboxEnums(t *testing.T) {
	if !EventVoteCast.IsValid() {
		t.Fatal("vote_cast should be valid")
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	agg, err := ParseOutboxAggregateType("poll")
	if err != nil || agg != AggregatePoll {
		t.Fatalf("expected poll aggregate, got %q (%v)", agg, err)
	}
}

func TestParseOutboxDLQErrorReason(t *testing.T) {
	reason, err := ParseOutboxDLQErrorReason("non_retryable")
	if err != nil || reason != OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non_retryable, got %q (%v)", reason, err)
	}
	if _, err := ParseOutboxDLQErrorReason("timeout"); err == nil {
		t.Fatal("expected error for unknown reason")
	}
}
