package enums

import (
	"fmt"
	"strings"
)

// SplitType describes how an expense is shared among trip members.
type SplitType string

const (
	SplitTypeEqual      SplitType = "equal"
	SplitTypeIndividual SplitType = "individual"
)

var validSplitTypes = []SplitType{
	SplitTypeEqual,
	SplitTypeIndividual,
}

// String implements fmt.Stringer.
func (s SplitType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SplitType.
func (s SplitType) IsValid() bool {
	for _, candidate := range validSplitTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSplitType converts raw input into a SplitType. Empty input yields the
// equal split.
func ParseSplitType(value string) (SplitType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return SplitTypeEqual, nil
	}
	for _, candidate := range validSplitTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid split type %q", value)
}
