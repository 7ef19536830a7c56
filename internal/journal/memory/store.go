// Package memory implements journal.Store on in-process maps. It shares the
// validation and partition logic of the persistent implementation and is used
// in tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/journal"
)

// Store implements journal.Store backed by in-process maps.
type Store struct {
	mu            sync.RWMutex
	partitionSize int64
	events        map[string]map[int64]*domain.Event
	highest       map[string]int64
	deletedTo     map[string]int64
	tags          map[string][]*domain.TagEntry
	log           *zap.Logger
}

// NewStore creates an empty in-memory journal with the given partition size.
func NewStore(partitionSize int64, log *zap.Logger) *Store {
	return &Store{
		partitionSize: partitionSize,
		events:        make(map[string]map[int64]*domain.Event),
		highest:       make(map[string]int64),
		deletedTo:     make(map[string]int64),
		tags:          make(map[string][]*domain.TagEntry),
		log:           log,
	}
}

// WriteBatch commits a validated batch. All rows become visible atomically
// with respect to other calls on this store.
func (s *Store) WriteBatch(ctx context.Context, events []*domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pid := ""
	if len(events) > 0 {
		pid = events[0].PersistenceID
	}

	last := s.highest[pid]
	if s.deletedTo[pid] > last {
		last = s.deletedTo[pid]
	}
	if err := journal.ValidateBatch(events, last, s.partitionSize); err != nil {
		return err
	}

	byPID := s.events[pid]
	if byPID == nil {
		byPID = make(map[int64]*domain.Event)
		s.events[pid] = byPID
	}

	for _, e := range events {
		copied := *e
		byPID[e.SequenceNr] = &copied

		for _, tag := range e.Tags {
			s.tags[tag] = append(s.tags[tag], &domain.TagEntry{
				Tag:           tag,
				Token:         domain.NewOrderingToken(),
				PersistenceID: e.PersistenceID,
				SequenceNr:    e.SequenceNr,
			})
		}
	}
	s.highest[pid] = events[len(events)-1].SequenceNr

	s.log.Debug("Committed write batch",
		zap.String("persistence_id", pid),
		zap.Int("event_count", len(events)),
		zap.Int64("highest_sequence_nr", s.highest[pid]))

	return nil
}

// Replay returns a lazy iterator over [fromSeqNr, toSeqNr] capped at max
// events, skipping everything at or below the delete marker and stopping at
// the first gap.
func (s *Store) Replay(ctx context.Context, persistenceID string, fromSeqNr, toSeqNr, max int64) journal.EventIterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := fromSeqNr
	if from < 1 {
		from = 1
	}
	if marker := s.deletedTo[persistenceID]; marker >= from {
		from = marker + 1
	}

	highest := s.highest[persistenceID]
	end := toSeqNr
	if end > highest {
		end = highest
	}

	var (
		out      []*domain.Event
		replayed int64
		gapErr   error
	)
	for nr := from; nr <= end; nr++ {
		if max > 0 && replayed >= max {
			break
		}
		e, ok := s.events[persistenceID][nr]
		if !ok {
			gapErr = &journal.SequenceGapError{
				PersistenceID: persistenceID,
				LastGoodSeqNr: nr - 1,
				MissingSeqNr:  nr,
			}
			break
		}
		copied := *e
		out = append(out, &copied)
		replayed++
	}

	return &sliceEventIterator{ctx: ctx, events: out, gapErr: gapErr}
}

// HighestSequenceNr returns the higher of the last committed sequence number
// and the delete marker.
func (s *Store) HighestSequenceNr(ctx context.Context, persistenceID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := s.highest[persistenceID]
	if marker := s.deletedTo[persistenceID]; marker > highest {
		highest = marker
	}
	return highest, nil
}

// DeleteTo advances the delete marker. Lowering it is a no-op.
func (s *Store) DeleteTo(ctx context.Context, persistenceID string, toSeqNr int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if toSeqNr > s.deletedTo[persistenceID] {
		s.deletedTo[persistenceID] = toSeqNr
	}
	return nil
}

// EventsByTag returns entries for one tag ordered by token, strictly after
// fromToken.
func (s *Store) EventsByTag(ctx context.Context, tag string, fromToken uuid.UUID, limit int64) journal.TagIterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TagEntry
	for _, entry := range s.tags[tag] {
		if fromToken != uuid.Nil && domain.CompareTokens(entry.Token, fromToken) <= 0 {
			continue
		}
		copied := *entry
		out = append(out, &copied)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}

	return &sliceTagIterator{ctx: ctx, entries: out}
}

// DeleteMarkers lists every recorded delete marker.
func (s *Store) DeleteMarkers(ctx context.Context) ([]journal.Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var markers []journal.Marker
	for pid, deletedTo := range s.deletedTo {
		markers = append(markers, journal.Marker{PersistenceID: pid, DeletedTo: deletedTo})
	}
	return markers, nil
}

// PurgeTo physically removes rows at or below toSeqNr. Only the reaper calls
// this; replay visibility is governed by the delete marker alone.
func (s *Store) PurgeTo(ctx context.Context, persistenceID string, toSeqNr int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for nr := range s.events[persistenceID] {
		if nr <= toSeqNr {
			delete(s.events[persistenceID], nr)
		}
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close releases nothing; present to satisfy journal.Store.
func (s *Store) Close() error {
	return nil
}

type sliceEventIterator struct {
	ctx    context.Context
	events []*domain.Event
	pos    int
	gapErr error
	err    error
	done   bool
}

func (it *sliceEventIterator) Next() (*domain.Event, bool) {
	if it.done {
		return nil, false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		it.done = true
		return nil, false
	}
	if it.pos >= len(it.events) {
		// The gap error surfaces only after the events before the gap have
		// been consumed.
		it.err = it.gapErr
		it.done = true
		return nil, false
	}
	e := it.events[it.pos]
	it.pos++
	return e, true
}

func (it *sliceEventIterator) Err() error {
	return it.err
}

func (it *sliceEventIterator) Close() error {
	it.done = true
	return nil
}

type sliceTagIterator struct {
	ctx     context.Context
	entries []*domain.TagEntry
	pos     int
	err     error
	done    bool
}

func (it *sliceTagIterator) Next() (*domain.TagEntry, bool) {
	if it.done {
		return nil, false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		it.done = true
		return nil, false
	}
	if it.pos >= len(it.entries) {
		it.done = true
		return nil, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}

func (it *sliceTagIterator) Err() error {
	return it.err
}

func (it *sliceTagIterator) Close() error {
	it.done = true
	return nil
}
