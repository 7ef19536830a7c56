// Package cassandra implements snapshot.Repository on Apache Cassandra:
// one snapshots table keyed by persistence_id, clustered by
// (sequence_nr, timestamp) descending so the newest qualifying snapshot is
// the first row of a range scan.
package cassandra

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/journal"
	"github.com/rowlog/rowlog/internal/journal/cassandra"
)

// backendError tags a driver failure so callers can match snapshot
// operations against journal.ErrBackendUnavailable, the same way the
// journal store reports its own backend failures.
func backendError(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, journal.ErrBackendUnavailable, err)
}

// Repository implements snapshot.Repository for Cassandra.
type Repository struct {
	client *cassandra.Client
	log    *zap.Logger

	insertStmt string
	selectStmt string
	deleteStmt string
}

// NewRepository creates a Cassandra snapshot repository sharing the journal's
// session and keyspace.
func NewRepository(client *cassandra.Client, log *zap.Logger) *Repository {
	ks := client.Keyspace()
	return &Repository{
		client: client,
		log:    log,

		insertStmt: fmt.Sprintf(`INSERT INTO %s.snapshots
			(persistence_id, sequence_nr, timestamp, payload, ser_id, ser_manifest, meta)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, ks),
		selectStmt: fmt.Sprintf(`SELECT sequence_nr, timestamp, payload, ser_id, ser_manifest, meta
			FROM %s.snapshots WHERE persistence_id = ? AND sequence_nr <= ?`, ks),
		deleteStmt: fmt.Sprintf(`DELETE FROM %s.snapshots
			WHERE persistence_id = ? AND sequence_nr = ? AND timestamp = ?`, ks),
	}
}

// InitSchema creates the snapshots table if it doesn't exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s.snapshots (
		persistence_id text,
		sequence_nr bigint,
		timestamp bigint,
		payload blob,
		ser_id int,
		ser_manifest text,
		meta blob,
		PRIMARY KEY (persistence_id, sequence_nr, timestamp)
	) WITH CLUSTERING ORDER BY (sequence_nr DESC, timestamp DESC)`, r.client.Keyspace())

	if err := r.client.Session().Query(stmt).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}

	r.log.Info("Snapshot schema initialized successfully",
		zap.String("keyspace", r.client.Keyspace()))
	return nil
}

// Save appends a new snapshot row; rows are never overwritten because the
// (sequence_nr, timestamp) clustering key differs per save.
func (r *Repository) Save(ctx context.Context, snap *domain.Snapshot) error {
	err := r.client.Session().
		Query(r.insertStmt,
			snap.PersistenceID, snap.SequenceNr, snap.Timestamp.UnixMilli(),
			snap.Payload, int(snap.SerializerID), snap.Manifest, snap.Meta).
		WithContext(ctx).
		Consistency(r.client.WriteConsistency()).
		Exec()
	if err != nil {
		return backendError(fmt.Sprintf("failed to insert snapshot for %q", snap.PersistenceID), err)
	}
	return nil
}

// Candidates pages newest-first over rows below the sequence bound, filtering
// the timestamp bound client-side: timestamp is the second clustering key, so
// Cassandra cannot apply both range restrictions server-side.
func (r *Repository) Candidates(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria, limit int) ([]*domain.Snapshot, error) {
	maxSeqNr := criteria.MaxSequenceNr
	if maxSeqNr <= 0 {
		maxSeqNr = math.MaxInt64
	}

	iter := r.client.Session().
		Query(r.selectStmt, persistenceID, maxSeqNr).
		WithContext(ctx).
		Consistency(r.client.ReadConsistency()).
		Iter()

	var out []*domain.Snapshot
	for {
		var (
			snap       domain.Snapshot
			serID      int
			tsUnixMill int64
		)
		if !iter.Scan(&snap.SequenceNr, &tsUnixMill, &snap.Payload, &serID, &snap.Manifest, &snap.Meta) {
			break
		}
		snap.PersistenceID = persistenceID
		snap.SerializerID = uint32(serID)
		snap.Timestamp = time.UnixMilli(tsUnixMill)

		if !criteria.Matches(snap) {
			continue
		}
		out = append(out, &snap)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Close(); err != nil {
		return nil, backendError(fmt.Sprintf("failed to scan snapshot candidates for %q", persistenceID), err)
	}
	return out, nil
}

// DeleteMatching removes every snapshot row within the bounds. Deletions are
// per-row because the timestamp clustering key cannot be range-deleted
// beneath a sequence_nr range.
func (r *Repository) DeleteMatching(ctx context.Context, persistenceID string, criteria domain.SnapshotCriteria) error {
	matching, err := r.Candidates(ctx, persistenceID, criteria, 0)
	if err != nil {
		return err
	}

	for _, snap := range matching {
		err := r.client.Session().
			Query(r.deleteStmt, persistenceID, snap.SequenceNr, snap.Timestamp.UnixMilli()).
			WithContext(ctx).
			Consistency(r.client.WriteConsistency()).
			Exec()
		if err != nil {
			return backendError(fmt.Sprintf("failed to delete snapshot at %d for %q", snap.SequenceNr, persistenceID), err)
		}
	}

	if len(matching) > 0 {
		r.log.Info("Deleted snapshots",
			zap.String("persistence_id", persistenceID),
			zap.Int("count", len(matching)))
	}
	return nil
}

// Ping checks if the Cassandra connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close is a no-op: the session is owned by the shared client.
func (r *Repository) Close() error {
	return nil
}
