package billing

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const credentialAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MinAccountPasswordLength is the floor for generated device passwords.
const MinAccountPasswordLength = 10

// GenerateAccountName derives a device account name from the owner's display
// name plus a millisecond timestamp for uniqueness. The result is what ends up
// as the PPPoE/hotspot login, so it is lowercased and stripped to [a-z0-9].
func GenerateAccountName(ownerName string, at time.Time) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ownerName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	return fmt.Sprintf("%s-%d", base, at.UnixMilli())
}

// GenerateAccountPassword returns a random alphanumeric secret of the given
// length (raised to MinAccountPasswordLength if shorter).
func GenerateAccountPassword(length int) (string, error) {
	if length < MinAccountPasswordLength {
		length = MinAccountPasswordLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	// Rejection sampling keeps the alphabet distribution uniform.
	max := byte(256 - 256%len(credentialAlphabet))
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			out = append(out, credentialAlphabet[int(b)%len(credentialAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
