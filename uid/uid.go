// Package uid mints and resolves RFC 5545 UIDs for local events. A UID is
// assigned exactly once per logical event and ties every CREATE/UPDATE/
// CANCEL payload for that event together across external clients.
package uid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultDomain is the host part of generated UIDs.
const DefaultDomain = "caldavclient.local"

const (
	randomLength = 8
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxUIDLength = 255
)

// ErrInvalidUID is returned by Validate for values that cannot safely be
// placed on a UID: line.
var ErrInvalidUID = errors.New("invalid uid")

// Generate returns a fresh UID of the form
// event-<unixMillis>-<8 random base36 chars>@<DefaultDomain>.
// It never blocks beyond a clock read and a few random bytes.
func Generate() string {
	return GenerateWithDomain(DefaultDomain)
}

// GenerateWithDomain is Generate with an explicit host part.
func GenerateWithDomain(domain string) string {
	return fmt.Sprintf("event-%d-%s@%s", time.Now().UnixMilli(), randomBase36(randomLength), domain)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read only fails when the platform RNG is broken; the
	// zero bytes it leaves behind still produce a syntactically valid UID.
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36[int(b)%len(base36)]
	}
	return string(out)
}

// Validate rejects UIDs that are empty, contain whitespace or commas, or
// exceed 255 characters.
func Validate(uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUID)
	}
	if len(uid) > maxUIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidUID, maxUIDLength)
	}
	if strings.ContainsAny(uid, " \t\r\n,") {
		return fmt.Errorf("%w: contains whitespace or comma", ErrInvalidUID)
	}
	return nil
}
