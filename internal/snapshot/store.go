// Package snapshot implements the snapshot store: save, criteria-based
// selection, deletion, and the bounded-retry load used during recovery when
// stored snapshots turn out to be corrupt or undeserializable.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
)

// DefaultMaxLoadAttempts bounds the load fallback chain: one initial
// candidate plus two older fallbacks.
const DefaultMaxLoadAttempts = 3

// ErrLoadFailed is returned when every candidate within the retry bound
// failed to deserialize. It is an operational condition for the caller to
// handle (typically by recovering from a full replay), never a panic.
var ErrLoadFailed = errors.New("snapshot load failed: all candidates undeserializable")

// Loaded is a successfully recovered snapshot: the stored record plus its
// deserialized state.
type Loaded struct {
	Snapshot *domain.Snapshot
	State    any
}

// Store implements snapshot persistence on top of a row Repository and the
// host runtime's Deserializer.
type Store struct {
	repository      Repository
	deserializer    Deserializer
	maxLoadAttempts int
	log             *zap.Logger
}

// NewStore creates a snapshot store. maxLoadAttempts values below 1 fall back
// to DefaultMaxLoadAttempts.
func NewStore(repo Repository, deserializer Deserializer, maxLoadAttempts int, log *zap.Logger) *Store {
	if maxLoadAttempts < 1 {
		maxLoadAttempts = DefaultMaxLoadAttempts
	}
	return &Store{
		repository:      repo,
		deserializer:    deserializer,
		maxLoadAttempts: maxLoadAttempts,
		log:             log,
	}
}

// Save appends a new snapshot row.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.PersistenceID == "" {
		return fmt.Errorf("snapshot with empty persistence id")
	}
	if snap.SequenceNr < 1 {
		return fmt.Errorf("invalid sequence number %d for snapshot of %q", snap.SequenceNr, snap.PersistenceID)
	}

	if err := s.repository.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot for %q at %d: %w", snap.PersistenceID, snap.SequenceNr, err)
	}

	s.log.Debug("Saved snapshot",
		zap.String("persistence_id", snap.PersistenceID),
		zap.Int64("sequence_nr", snap.SequenceNr))
	return nil
}

// LoadLatest returns the newest snapshot within the criteria bounds that
// deserializes successfully, trying up to maxLoadAttempts candidates from
// newest to oldest. It returns (nil, nil) when no snapshot qualifies, and
// ErrLoadFailed when every candidate within the bound is unreadable.
func (s *Store) LoadLatest(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria) (*Loaded, error) {
	candidates, err := s.repository.Candidates(ctx, persistenceID, criteria, s.maxLoadAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot candidates for %q: %w", persistenceID, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Explicit fallback loop: try each candidate newest-first, absorbing
	// deserialization failures until the attempt bound is spent.
	attempts := 0
	for _, candidate := range candidates {
		if attempts >= s.maxLoadAttempts {
			break
		}
		attempts++

		state, err := s.deserializer.Deserialize(candidate.Payload, candidate.SerializerID, candidate.Manifest)
		if err != nil {
			s.log.Warn("Snapshot failed to deserialize, falling back to older candidate",
				zap.String("persistence_id", persistenceID),
				zap.Int64("sequence_nr", candidate.SequenceNr),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", s.maxLoadAttempts),
				zap.Error(err))
			continue
		}

		return &Loaded{Snapshot: candidate, State: state}, nil
	}

	s.log.Error("Exhausted snapshot load attempts",
		zap.String("persistence_id", persistenceID),
		zap.Int("attempts", attempts))
	return nil, ErrLoadFailed
}

// Delete removes all snapshots for the entity within the criteria bounds.
func (s *Store) Delete(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria) error {
	if err := s.repository.DeleteMatching(ctx, persistenceID, criteria); err != nil {
		return fmt.Errorf("failed to delete snapshots for %q: %w", persistenceID, err)
	}
	return nil
}
