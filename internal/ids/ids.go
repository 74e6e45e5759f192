package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewRequestID returns a sortable identifier for an inbound console request.
func NewRequestID() string {
	return newAt(time.Now())
}

func newAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Valid reports whether id looks like an identifier produced by NewRequestID.
// Inbound X-Request-ID headers that fail this check are replaced.
func Valid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
