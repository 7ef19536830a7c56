package snapshot

import (
	"context"

	"github.com/rowlog/rowlog/internal/domain"
)

// Repository defines the interface for snapshot row storage. Implementations
// only move rows; selection and recovery policy live in Store.
type Repository interface {
	// Save appends a new snapshot row. Existing rows are never overwritten;
	// concurrent saves at different sequence numbers are independent rows.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Candidates returns up to limit snapshots matching the criteria,
	// ordered by (sequence number, timestamp) descending.
	Candidates(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria, limit int) ([]*domain.Snapshot, error)

	// DeleteMatching removes all snapshots within the criteria bounds.
	// Eventually consistent with concurrent loads.
	DeleteMatching(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria) error

	// Ping checks if the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources.
	Close() error
}

// Deserializer decodes snapshot payloads. Codecs are owned by the host
// runtime; the store only needs to know whether decoding succeeded.
type Deserializer interface {
	Deserialize(payload []byte, serializerID uint32, manifest string) (any, error)
}

// DeserializerFunc adapts a function to the Deserializer interface.
type DeserializerFunc func(payload []byte, serializerID uint32, manifest string) (any, error)

func (f DeserializerFunc) Deserialize(payload []byte, serializerID uint32, manifest string) (any, error) {
	return f(payload, serializerID, manifest)
}
