package enums

import (
	"fmt"
	"strconv"
	"strings"
)

// VoteValue is a yes (+1) or no (-1) vote on a poll.
type VoteValue int

const (
	VoteNo  VoteValue = -1
	VoteYes VoteValue = 1
)

// IsValid reports whether the value is +1 or -1.
func (v VoteValue) IsValid() bool {
	return v == VoteYes || v == VoteNo
}

// Int returns the stored integer form.
func (v VoteValue) Int() int {
	return int(v)
}

// ParseVoteValue accepts the integers 1 and -1 (an optional leading plus sign
// is tolerated). Everything else is rejected.
func ParseVoteValue(value string) (VoteValue, error) {
	trimmed := strings.TrimSpace(value)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid vote value %q", value)
	}
	v := VoteValue(n)
	if !v.IsValid() {
		return 0, fmt.Errorf("invalid vote value %q", value)
	}
	return v, nil
}
