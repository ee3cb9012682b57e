package enums

import "fmt"

// TripStatus tracks whether a trip still accepts new expenses and polls.
type TripStatus string

const (
	TripStatusPlanning TripStatus = "planning"
	TripStatusLocked   TripStatus = "locked"
)

var validTripStatuses = []TripStatus{
	TripStatusPlanning,
	TripStatusLocked,
}

// String implements fmt.Stringer.
func (s TripStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TripStatus.
func (s TripStatus) IsValid() bool {
	for _, candidate := range validTripStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTripStatus converts raw input into a TripStatus.
func ParseTripStatus(value string) (TripStatus, error) {
	for _, candidate := range validTripStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trip status %q", value)
}
