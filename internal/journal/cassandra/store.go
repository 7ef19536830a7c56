package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/journal"
	"github.com/rowlog/rowlog/internal/partition"
)

// Store implements journal.Store for Cassandra.
type Store struct {
	client        *Client
	partitionSize int64
	log           *zap.Logger

	insertEventStmt   string
	insertTagStmt     string
	selectEventsStmt  string
	selectHighestStmt string
	selectMarkerStmt  string
	updateMarkerStmt  string
	selectTagsStmt    string
	selectAllTagsStmt string
	deleteEventStmt   string
}

// NewStore creates a Cassandra journal store. The partition size must never
// change for an existing keyspace.
func NewStore(client *Client, partitionSize int64, log *zap.Logger) *Store {
	ks := client.Keyspace()
	return &Store{
		client:        client,
		partitionSize: partitionSize,
		log:           log,

		insertEventStmt: fmt.Sprintf(`INSERT INTO %s.messages
			(persistence_id, partition_nr, sequence_nr, payload, ser_id, ser_manifest, tags, write_time, writer_uuid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, ks),
		insertTagStmt: fmt.Sprintf(`INSERT INTO %s.tag_views
			(tag, token, persistence_id, sequence_nr) VALUES (?, ?, ?, ?)`, ks),
		selectEventsStmt: fmt.Sprintf(`SELECT sequence_nr, payload, ser_id, ser_manifest, tags, write_time, writer_uuid
			FROM %s.messages WHERE persistence_id = ? AND partition_nr = ? AND sequence_nr >= ? AND sequence_nr <= ?`, ks),
		selectHighestStmt: fmt.Sprintf(`SELECT sequence_nr FROM %s.messages
			WHERE persistence_id = ? AND partition_nr = ? ORDER BY sequence_nr DESC LIMIT 1`, ks),
		selectMarkerStmt: fmt.Sprintf(`SELECT deleted_to FROM %s.metadata WHERE persistence_id = ?`, ks),
		updateMarkerStmt: fmt.Sprintf(`UPDATE %s.metadata SET deleted_to = ? WHERE persistence_id = ?`, ks),
		selectTagsStmt: fmt.Sprintf(`SELECT tag, token, persistence_id, sequence_nr FROM %s.tag_views
			WHERE tag = ? AND token > ?`, ks),
		selectAllTagsStmt: fmt.Sprintf(`SELECT tag, token, persistence_id, sequence_nr FROM %s.tag_views
			WHERE tag = ?`, ks),
		deleteEventStmt: fmt.Sprintf(`DELETE FROM %s.messages
			WHERE persistence_id = ? AND partition_nr = ? AND sequence_nr <= ?`, ks),
	}
}

// InitSchema creates the keyspace and journal tables if they don't exist.
func (s *Store) InitSchema(ctx context.Context, replicationFactor int) error {
	stmts := []string{
		createKeyspaceStmt(s.client.Keyspace(), replicationFactor),
		createMessagesStmt(s.client.Keyspace()),
		createTagViewsStmt(s.client.Keyspace()),
		createMetadataStmt(s.client.Keyspace()),
	}
	for _, stmt := range stmts {
		if err := s.client.Session().Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to create journal schema: %w", err)
		}
	}

	s.log.Info("Journal schema initialized successfully",
		zap.String("keyspace", s.client.Keyspace()))
	return nil
}

// WriteBatch validates the batch against the entity's highest committed
// sequence number and commits it as a single logged batch. Tag rows are part
// of the same batch; readers of tag_views still deduplicate on
// (persistence_id, sequence_nr) because batch replay inside Cassandra gives
// at-least-once semantics across tables.
func (s *Store) WriteBatch(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return fmt.Errorf("empty write batch")
	}
	pid := events[0].PersistenceID

	highest, err := s.HighestSequenceNr(ctx, pid)
	if err != nil {
		return err
	}
	if err := journal.ValidateBatch(events, highest, s.partitionSize); err != nil {
		return err
	}

	partitionNr := partition.PartitionNr(events[0].SequenceNr, s.partitionSize)

	batch := s.client.Session().NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Cons = s.client.WriteConsistency()

	now := time.Now()
	for _, e := range events {
		writeTime := e.WriteTime
		if writeTime.IsZero() {
			writeTime = now
		}
		batch.Query(s.insertEventStmt,
			e.PersistenceID, partitionNr, e.SequenceNr,
			e.Payload, int(e.SerializerID), e.Manifest, e.Tags, writeTime, e.WriterUUID)

		for _, tag := range e.Tags {
			batch.Query(s.insertTagStmt, tag, gocql.TimeUUID(), e.PersistenceID, e.SequenceNr)
		}
	}

	if err := s.client.Session().ExecuteBatch(batch); err != nil {
		s.log.Error("Failed to commit write batch",
			zap.String("persistence_id", pid),
			zap.Int("event_count", len(events)),
			zap.Error(err))
		return fmt.Errorf("failed to commit write batch for %q: %w: %w",
			pid, journal.ErrBackendUnavailable, err)
	}

	return nil
}

// Replay returns a lazy iterator that advances partition-by-partition. One
// storage partition maps to one page query, so crossing a partition boundary
// is just opening the next query.
func (s *Store) Replay(ctx context.Context, persistenceID string, fromSeqNr, toSeqNr, max int64) journal.EventIterator {
	marker, err := s.deleteMarker(ctx, persistenceID)
	if err != nil {
		return &eventIterator{err: err, done: true}
	}

	from := fromSeqNr
	if from < 1 {
		from = 1
	}
	if marker >= from {
		from = marker + 1
	}

	return &eventIterator{
		reader:        &gocqlPartitionReader{store: s, ctx: ctx, pid: persistenceID},
		pid:           persistenceID,
		partitionSize: s.partitionSize,
		partition:     partition.PartitionNr(from, s.partitionSize),
		expected:      from,
		to:            toSeqNr,
		remaining:     max,
		unbounded:     max <= 0,
	}
}

// HighestSequenceNr scans partitions forward from the delete marker until it
// finds an empty one. The marker itself counts: deletes may logically advance
// the sequence past the last physical row.
func (s *Store) HighestSequenceNr(ctx context.Context, persistenceID string) (int64, error) {
	marker, err := s.deleteMarker(ctx, persistenceID)
	if err != nil {
		return 0, err
	}

	highest := marker
	for p := partition.PartitionNr(marker+1, s.partitionSize); ; p++ {
		var seqNr int64
		err := s.client.Session().Query(s.selectHighestStmt, persistenceID, p).
			WithContext(ctx).
			Consistency(s.client.ReadConsistency()).
			Scan(&seqNr)
		if err == gocql.ErrNotFound {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read highest sequence number for %q: %w: %w",
				persistenceID, journal.ErrBackendUnavailable, err)
		}
		if seqNr > highest {
			highest = seqNr
		}
	}

	return highest, nil
}

// DeleteTo advances the entity's delete marker, keeping it monotonic.
// Monotonicity is enforced by a read-compare-write; the caller owns
// per-entity serialization, so a lost update only re-applies an older, lower
// marker which a later delete re-advances.
func (s *Store) DeleteTo(ctx context.Context, persistenceID string, toSeqNr int64) error {
	current, err := s.deleteMarker(ctx, persistenceID)
	if err != nil {
		return err
	}
	if toSeqNr <= current {
		return nil
	}

	err = s.client.Session().Query(s.updateMarkerStmt, toSeqNr, persistenceID).
		WithContext(ctx).
		Consistency(s.client.WriteConsistency()).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to advance delete marker for %q: %w: %w",
			persistenceID, journal.ErrBackendUnavailable, err)
	}

	s.log.Info("Advanced delete marker",
		zap.String("persistence_id", persistenceID),
		zap.Int64("deleted_to", toSeqNr))
	return nil
}

// EventsByTag returns a lazy iterator over one tag's entries ordered by
// token, strictly after fromToken.
func (s *Store) EventsByTag(ctx context.Context, tag string, fromToken uuid.UUID, limit int64) journal.TagIterator {
	var q *gocql.Query
	if fromToken == uuid.Nil {
		q = s.client.Session().Query(s.selectAllTagsStmt, tag)
	} else {
		q = s.client.Session().Query(s.selectTagsStmt, tag, gocql.UUID(fromToken))
	}
	q = q.WithContext(ctx).Consistency(s.client.ReadConsistency())

	return &tagIterator{iter: q.Iter(), remaining: limit, unbounded: limit <= 0}
}

// Ping checks if the Cassandra connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close closes the underlying session.
func (s *Store) Close() error {
	return s.client.Close()
}

// PurgeTo physically removes journal rows at or below toSeqNr. This is the
// reaper's best-effort cleanup behind the delete marker; logical visibility
// never depends on it.
func (s *Store) PurgeTo(ctx context.Context, persistenceID string, toSeqNr int64) error {
	lastPartition := partition.PartitionNr(toSeqNr, s.partitionSize)
	for p := int64(0); p <= lastPartition; p++ {
		err := s.client.Session().Query(s.deleteEventStmt, persistenceID, p, toSeqNr).
			WithContext(ctx).
			Consistency(s.client.WriteConsistency()).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to purge rows for %q in partition %d: %w: %w",
				persistenceID, p, journal.ErrBackendUnavailable, err)
		}
	}
	return nil
}

// DeleteMarkers lists every delete marker recorded in the metadata table.
func (s *Store) DeleteMarkers(ctx context.Context) ([]journal.Marker, error) {
	stmt := fmt.Sprintf(`SELECT persistence_id, deleted_to FROM %s.metadata`, s.client.Keyspace())
	iter := s.client.Session().Query(stmt).
		WithContext(ctx).
		Consistency(s.client.ReadConsistency()).
		Iter()

	var markers []journal.Marker
	var m journal.Marker
	for iter.Scan(&m.PersistenceID, &m.DeletedTo) {
		markers = append(markers, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list delete markers: %w: %w",
			journal.ErrBackendUnavailable, err)
	}
	return markers, nil
}

func (s *Store) deleteMarker(ctx context.Context, persistenceID string) (int64, error) {
	var deletedTo int64
	err := s.client.Session().Query(s.selectMarkerStmt, persistenceID).
		WithContext(ctx).
		Consistency(s.client.ReadConsistency()).
		Scan(&deletedTo)
	if err == gocql.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read delete marker for %q: %w: %w",
			persistenceID, journal.ErrBackendUnavailable, err)
	}
	return deletedTo, nil
}
