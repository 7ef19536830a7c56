// Package memory implements snapshot.Repository on in-process slices, for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rowlog/rowlog/internal/domain"
)

// Repository implements snapshot.Repository backed by per-entity slices.
type Repository struct {
	mu   sync.RWMutex
	rows map[string][]*domain.Snapshot
}

// NewRepository creates an empty in-memory snapshot repository.
func NewRepository() *Repository {
	return &Repository{rows: make(map[string][]*domain.Snapshot)}
}

// Save appends a snapshot row, keeping the entity's rows ordered by
// (sequence number, timestamp) descending.
func (r *Repository) Save(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *snap
	rows := append(r.rows[snap.PersistenceID], &copied)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SequenceNr != rows[j].SequenceNr {
			return rows[i].SequenceNr > rows[j].SequenceNr
		}
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})
	r.rows[snap.PersistenceID] = rows
	return nil
}

// Candidates returns the newest rows within the criteria bounds.
func (r *Repository) Candidates(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria, limit int) ([]*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Snapshot
	for _, row := range r.rows[persistenceID] {
		if !criteria.Matches(*row) {
			continue
		}
		copied := *row
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DeleteMatching removes all rows within the criteria bounds.
func (r *Repository) DeleteMatching(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*domain.Snapshot
	for _, row := range r.rows[persistenceID] {
		if !criteria.Matches(*row) {
			kept = append(kept, row)
		}
	}
	r.rows[persistenceID] = kept
	return nil
}

// Ping always succeeds.
func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close releases nothing; present to satisfy snapshot.Repository.
func (r *Repository) Close() error {
	return nil
}
