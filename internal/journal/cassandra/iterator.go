package cassandra

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/journal"
	"github.com/rowlog/rowlog/internal/partition"
)

// rowSource reads one partition's event rows in sequence order.
type rowSource interface {
	// Scan fills the next row into e, returning false once the partition
	// range is exhausted.
	Scan(e *domain.Event) bool
	Close() error
}

// partitionReader opens a row source over one partition's sequence range.
// The live store backs it with one page query per partition.
type partitionReader interface {
	ReadPartition(partitionNr, fromSeqNr, toSeqNr int64) rowSource
}

// eventIterator streams one entity's events across partitions. Each
// partition is one row source; an exhausted source that produced rows means
// "try the next partition", an empty one means the journal has ended.
type eventIterator struct {
	reader        partitionReader
	pid           string
	partitionSize int64

	partition int64
	expected  int64
	to        int64
	remaining int64
	unbounded bool

	src             rowSource
	rowsInPartition int
	err             error
	done            bool
}

func (it *eventIterator) Next() (*domain.Event, bool) {
	for {
		if it.done || it.err != nil {
			return nil, false
		}
		if it.expected > it.to || (!it.unbounded && it.remaining <= 0) {
			it.finish()
			return nil, false
		}

		if it.src == nil {
			last := partition.LastSequenceNr(it.partition, it.partitionSize)
			end := it.to
			if last < end {
				end = last
			}
			it.src = it.reader.ReadPartition(it.partition, it.expected, end)
			it.rowsInPartition = 0
		}

		var e domain.Event
		if it.src.Scan(&e) {
			it.rowsInPartition++
			if e.SequenceNr != it.expected {
				it.err = &journal.SequenceGapError{
					PersistenceID: it.pid,
					LastGoodSeqNr: it.expected - 1,
					MissingSeqNr:  it.expected,
				}
				it.finish()
				return nil, false
			}

			e.PersistenceID = it.pid
			it.expected++
			if !it.unbounded {
				it.remaining--
			}
			return &e, true
		}

		// Current partition is exhausted.
		if err := it.src.Close(); err != nil {
			it.err = fmt.Errorf("failed to replay %q: %w: %w",
				it.pid, journal.ErrBackendUnavailable, err)
			it.src = nil
			it.done = true
			return nil, false
		}
		empty := it.rowsInPartition == 0
		it.src = nil

		if empty {
			it.done = true
			return nil, false
		}
		it.partition++
	}
}

func (it *eventIterator) Err() error {
	return it.err
}

func (it *eventIterator) Close() error {
	it.finish()
	return nil
}

func (it *eventIterator) finish() {
	if it.src != nil {
		if err := it.src.Close(); err != nil && it.err == nil {
			it.err = fmt.Errorf("failed to replay %q: %w: %w",
				it.pid, journal.ErrBackendUnavailable, err)
		}
		it.src = nil
	}
	it.done = true
}

// gocqlPartitionReader pages one entity's partitions off the live session.
type gocqlPartitionReader struct {
	store *Store
	ctx   context.Context
	pid   string
}

func (r *gocqlPartitionReader) ReadPartition(partitionNr, fromSeqNr, toSeqNr int64) rowSource {
	iter := r.store.client.Session().
		Query(r.store.selectEventsStmt, r.pid, partitionNr, fromSeqNr, toSeqNr).
		WithContext(r.ctx).
		Consistency(r.store.client.ReadConsistency()).
		Iter()
	return &gocqlRowSource{iter: iter}
}

type gocqlRowSource struct {
	iter *gocql.Iter
}

func (s *gocqlRowSource) Scan(e *domain.Event) bool {
	var serID int
	if !s.iter.Scan(&e.SequenceNr, &e.Payload, &serID, &e.Manifest, &e.Tags, &e.WriteTime, &e.WriterUUID) {
		return false
	}
	e.SerializerID = uint32(serID)
	return true
}

func (s *gocqlRowSource) Close() error {
	return s.iter.Close()
}

// tagIterator streams entries of one tag ordered by token.
type tagIterator struct {
	iter      *gocql.Iter
	remaining int64
	unbounded bool
	err       error
	done      bool
}

func (it *tagIterator) Next() (*domain.TagEntry, bool) {
	if it.done || it.err != nil {
		return nil, false
	}
	if !it.unbounded && it.remaining <= 0 {
		it.close()
		return nil, false
	}

	var (
		entry domain.TagEntry
		token gocql.UUID
	)
	if !it.iter.Scan(&entry.Tag, &token, &entry.PersistenceID, &entry.SequenceNr) {
		it.close()
		return nil, false
	}

	entry.Token = uuid.UUID(token)
	if !it.unbounded {
		it.remaining--
	}
	return &entry, true
}

func (it *tagIterator) Err() error {
	return it.err
}

func (it *tagIterator) Close() error {
	it.close()
	return nil
}

func (it *tagIterator) close() {
	if it.iter != nil {
		if err := it.iter.Close(); err != nil && it.err == nil {
			it.err = fmt.Errorf("failed to read tag view: %w: %w",
				journal.ErrBackendUnavailable, err)
		}
		it.iter = nil
	}
	it.done = true
}
