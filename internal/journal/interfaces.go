package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/rowlog/rowlog/internal/domain"
)

// Store defines the interface for journal storage operations. Implementations
// are stateless between calls; per-entity write serialization (at most one
// in-flight batch per persistence id) is owned by the caller, with
// OrderingViolationError as the safety net against accidental concurrent
// writers.
type Store interface {
	// WriteBatch commits an ordered batch of events for one persistence id
	// atomically. The batch must be contiguous, start directly after the
	// entity's highest committed sequence number, and fit inside a single
	// partition.
	WriteBatch(ctx context.Context, events []*domain.Event) error

	// Replay returns a lazy forward iterator over the events of one
	// persistence id with sequence numbers in [fromSeqNr, toSeqNr], returning
	// at most max events. Events at or below the entity's delete marker are
	// never produced. The iterator stops with a SequenceGapError when a
	// sequence number is missing.
	Replay(ctx context.Context, persistenceID string, fromSeqNr, toSeqNr, max int64) EventIterator

	// HighestSequenceNr returns the entity's highest committed sequence
	// number, or the delete marker if it is higher; zero if the entity has
	// never persisted anything.
	HighestSequenceNr(ctx context.Context, persistenceID string) (int64, error)

	// DeleteTo advances the entity's delete marker to
	// max(current, toSeqNr). Idempotent and monotonic; lowering is a no-op.
	DeleteTo(ctx context.Context, persistenceID string, toSeqNr int64) error

	// EventsByTag returns a lazy iterator over tag-index entries for one tag,
	// ordered by ordering token, starting strictly after fromToken (or from
	// the beginning when fromToken is the zero UUID). Entries may be
	// duplicated; readers deduplicate on (persistence id, sequence number).
	EventsByTag(ctx context.Context, tag string, fromToken uuid.UUID, limit int64) TagIterator

	// Ping checks if the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Marker is one entity's delete watermark, as listed for the purge loop.
type Marker struct {
	PersistenceID string
	DeletedTo     int64
}

// Purger is the optional store surface used by the background reaper:
// physical cleanup behind delete markers. Logical visibility never depends
// on it.
type Purger interface {
	// DeleteMarkers lists every recorded delete marker.
	DeleteMarkers(ctx context.Context) ([]Marker, error)

	// PurgeTo physically removes journal rows at or below toSeqNr.
	PurgeTo(ctx context.Context, persistenceID string, toSeqNr int64) error
}

// EventIterator is a lazy, finite, non-restartable forward sequence of
// events, in the shape of sql.Rows: call Next until it returns false, then
// check Err.
type EventIterator interface {
	// Next returns the next event, or (nil, false) when the sequence is
	// exhausted or has failed.
	Next() (*domain.Event, bool)

	// Err returns the error that terminated the sequence, if any.
	Err() error

	// Close releases resources held by the iterator. Safe to call more than
	// once.
	Close() error
}

// TagIterator is the tag-index counterpart of EventIterator.
type TagIterator interface {
	Next() (*domain.TagEntry, bool)
	Err() error
	Close() error
}
