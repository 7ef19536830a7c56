package domain

import (
	"bytes"

	"github.com/google/uuid"
)

// TagEntry is a denormalized tag-index row pointing at one journal event.
// It is eventually consistent with the event it references and is never
// authoritative for replay.
type TagEntry struct {
	Tag           string
	Token         uuid.UUID
	PersistenceID string
	SequenceNr    int64
}

// NewOrderingToken returns a fresh version-1 (time-based) UUID. Tokens order
// tag-index entries globally; they are monotonic per writer but not
// contiguous.
func NewOrderingToken() uuid.UUID {
	return uuid.Must(uuid.NewUUID())
}

// CompareTokens orders two version-1 UUIDs by embedded timestamp, breaking
// ties bytewise. Returns -1, 0 or 1.
func CompareTokens(a, b uuid.UUID) int {
	at, bt := a.Time(), b.Time()
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	default:
		return bytes.Compare(a[:], b[:])
	}
}
