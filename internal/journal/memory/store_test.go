package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/journal"
)

const testPartitionSize = 5

func newTestStore() *Store {
	return NewStore(testPartitionSize, zap.NewNop())
}

func eventsFor(pid string, from, to int64, tags ...string) []*domain.Event {
	var events []*domain.Event
	for nr := from; nr <= to; nr++ {
		events = append(events, &domain.Event{
			PersistenceID: pid,
			SequenceNr:    nr,
			Payload:       []byte(fmt.Sprintf("payload-%d", nr)),
			Tags:          tags,
		})
	}
	return events
}

func drain(t *testing.T, it journal.EventIterator) []*domain.Event {
	t.Helper()
	defer func() {
		require.NoError(t, it.Close())
	}()

	var out []*domain.Event
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func TestWriteReplayRoundTrip(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 4)))

	it := store.Replay(ctx, "p1", 1, 4, 0)
	replayed := drain(t, it)
	require.NoError(t, it.Err())

	require.Len(t, replayed, 4)
	for i, e := range replayed {
		assert.Equal(t, int64(i+1), e.SequenceNr)
		assert.Equal(t, []byte(fmt.Sprintf("payload-%d", i+1)), e.Payload)
	}
}

func TestReplaySequenceNumbersStrictlyIncrease(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 5)))
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 6, 10)))

	it := store.Replay(ctx, "p1", 1, 10, 0)
	replayed := drain(t, it)
	require.NoError(t, it.Err())
	require.Len(t, replayed, 10)

	for i := 1; i < len(replayed); i++ {
		assert.Equal(t, replayed[i-1].SequenceNr+1, replayed[i].SequenceNr)
	}
}

func TestReplayCrossesPartitionBoundary(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	// Three full partitions, written one partition at a time.
	for p := int64(0); p < 3; p++ {
		from := p*testPartitionSize + 1
		require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", from, from+testPartitionSize-1)))
	}

	it := store.Replay(ctx, "p1", 1, 15, 0)
	replayed := drain(t, it)
	require.NoError(t, it.Err())
	assert.Len(t, replayed, 15)
}

func TestReplayHonorsBounds(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 5)))

	it := store.Replay(ctx, "p1", 2, 4, 0)
	replayed := drain(t, it)
	require.NoError(t, it.Err())
	require.Len(t, replayed, 3)
	assert.Equal(t, int64(2), replayed[0].SequenceNr)
	assert.Equal(t, int64(4), replayed[2].SequenceNr)

	it = store.Replay(ctx, "p1", 1, 5, 2)
	replayed = drain(t, it)
	require.NoError(t, it.Err())
	assert.Len(t, replayed, 2)
}

func TestWriteBatchRejectsNonContiguous(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 2)))

	err := store.WriteBatch(ctx, eventsFor("p1", 4, 5))

	var ordering *journal.OrderingViolationError
	require.True(t, errors.As(err, &ordering))

	// Nothing from the rejected batch is visible.
	it := store.Replay(ctx, "p1", 1, 10, 0)
	assert.Len(t, drain(t, it), 2)
}

func TestWriteBatchRejectsPartitionBoundary(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	err := store.WriteBatch(ctx, eventsFor("p1", 1, testPartitionSize+1))

	var boundary *journal.PartitionBoundaryError
	require.True(t, errors.As(err, &boundary))

	// Zero visible events after the rejection.
	it := store.Replay(ctx, "p1", 1, 100, 0)
	assert.Empty(t, drain(t, it))
	require.NoError(t, it.Err())

	highest, err := store.HighestSequenceNr(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, highest)
}

func TestReplayStopsAtGap(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 3)))

	// Simulate a failed prior write leaving a hole at 4.
	store.mu.Lock()
	store.events["p1"][5] = &domain.Event{PersistenceID: "p1", SequenceNr: 5}
	store.highest["p1"] = 5
	store.mu.Unlock()

	it := store.Replay(ctx, "p1", 1, 10, 0)
	replayed := drain(t, it)

	assert.Len(t, replayed, 3)
	var gap *journal.SequenceGapError
	require.True(t, errors.As(it.Err(), &gap))
	assert.Equal(t, int64(3), gap.LastGoodSeqNr)
	assert.Equal(t, int64(4), gap.MissingSeqNr)
}

func TestDeleteToIsIdempotentAndMonotonic(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 5)))

	require.NoError(t, store.DeleteTo(ctx, "p1", 3))
	require.NoError(t, store.DeleteTo(ctx, "p1", 3))
	require.NoError(t, store.DeleteTo(ctx, "p1", 1)) // lowering is a no-op

	it := store.Replay(ctx, "p1", 1, 5, 0)
	replayed := drain(t, it)
	require.NoError(t, it.Err())
	require.Len(t, replayed, 2)
	assert.Equal(t, int64(4), replayed[0].SequenceNr)
	assert.Equal(t, int64(5), replayed[1].SequenceNr)
}

func TestDeleteMarkerBeyondHighestKeepsSequence(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 3)))

	require.NoError(t, store.DeleteTo(ctx, "p1", 10))

	highest, err := store.HighestSequenceNr(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), highest)

	// The next write must continue after the marker.
	err = store.WriteBatch(ctx, eventsFor("p1", 4, 5))
	var ordering *journal.OrderingViolationError
	require.True(t, errors.As(err, &ordering))
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 11, 12)))
}

func TestEntitiesAreIndependent(t *testing.T) {
	store := newTestStore()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := fmt.Sprintf("entity-%d", i)
			ctx := context.Background()
			if err := store.WriteBatch(ctx, eventsFor(pid, 1, 5)); err != nil {
				errs[i] = err
				return
			}
			errs[i] = store.WriteBatch(ctx, eventsFor(pid, 6, 10))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "entity %d", i)
	}
	for i := 0; i < 10; i++ {
		it := store.Replay(context.Background(), fmt.Sprintf("entity-%d", i), 1, 10, 0)
		replayed := drain(t, it)
		require.NoError(t, it.Err())
		assert.Len(t, replayed, 10)
	}
}

func TestEventsByTagOrderedAndResumable(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.WriteBatch(ctx, eventsFor("p1", 1, 3, "blue")))
	require.NoError(t, store.WriteBatch(ctx, eventsFor("p2", 1, 2, "blue", "green")))

	it := store.EventsByTag(ctx, "blue", uuid.Nil, 0)
	var entries []*domain.TagEntry
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		entries = append(entries, e)
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	require.Len(t, entries, 5)

	for i := 1; i < len(entries); i++ {
		assert.Negative(t, domain.CompareTokens(entries[i-1].Token, entries[i].Token))
	}

	// Resume strictly after the third token.
	it = store.EventsByTag(ctx, "blue", entries[2].Token, 0)
	var resumed []*domain.TagEntry
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		resumed = append(resumed, e)
	}
	require.Len(t, resumed, 2)
	assert.Equal(t, entries[3].Token, resumed[0].Token)

	it = store.EventsByTag(ctx, "green", uuid.Nil, 0)
	var green []*domain.TagEntry
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		green = append(green, e)
	}
	assert.Len(t, green, 2)
}
