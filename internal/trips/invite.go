package trips

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// inviteAlphabet drops 0/O and 1/I so codes survive being read aloud. Its
// length divides 256, which keeps the byte mapping unbiased.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeGenerator produces candidate invite codes. Uniqueness is checked
// by the service, not the generator.
type InviteCodeGenerator interface {
	Generate() (string, error)
}

type randomInviteCodes struct {
	length int
}

// NewInviteCodeGenerator returns a crypto/rand backed generator.
func NewInviteCodeGenerator(length int) InviteCodeGenerator {
	return randomInviteCodes{length: length}
}

func (g randomInviteCodes) Generate() (string, error) {
	if g.length <= 0 {
		return "", fmt.Errorf("invite code length must be positive")
	}
	buf := make([]byte, g.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf), nil
}

// NormalizeInviteCode makes lookups tolerant of case and stray whitespace.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
