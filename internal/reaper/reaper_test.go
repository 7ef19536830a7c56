package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/journal"
	"github.com/rowlog/rowlog/internal/journal/memory"
)

// MockPurger is a mock implementation of journal.Purger
type MockPurger struct {
	mock.Mock
}

func (m *MockPurger) DeleteMarkers(ctx context.Context) ([]journal.Marker, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]journal.Marker), args.Error(1)
}

func (m *MockPurger) PurgeTo(ctx context.Context, persistenceID string, toSeqNr int64) error {
	args := m.Called(ctx, persistenceID, toSeqNr)
	return args.Error(0)
}

func TestSweep_PurgesBehindMarkers(t *testing.T) {
	mockPurger := new(MockPurger)
	r := NewReaper(mockPurger, Config{Interval: time.Hour}, zap.NewNop())

	mockPurger.On("DeleteMarkers", mock.Anything).Return([]journal.Marker{
		{PersistenceID: "p1", DeletedTo: 10},
		{PersistenceID: "p2", DeletedTo: 0},
		{PersistenceID: "p3", DeletedTo: 3},
	}, nil)
	mockPurger.On("PurgeTo", mock.Anything, "p1", int64(10)).Return(nil)
	mockPurger.On("PurgeTo", mock.Anything, "p3", int64(3)).Return(nil)

	r.Sweep(context.Background())

	mockPurger.AssertExpectations(t)
	mockPurger.AssertNotCalled(t, "PurgeTo", mock.Anything, "p2", mock.Anything)
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	mockPurger := new(MockPurger)
	r := NewReaper(mockPurger, Config{Interval: time.Hour}, zap.NewNop())

	mockPurger.On("DeleteMarkers", mock.Anything).Return([]journal.Marker{
		{PersistenceID: "p1", DeletedTo: 10},
		{PersistenceID: "p2", DeletedTo: 5},
	}, nil)
	mockPurger.On("PurgeTo", mock.Anything, "p1", int64(10)).Return(errors.New("timeout"))
	mockPurger.On("PurgeTo", mock.Anything, "p2", int64(5)).Return(nil)

	r.Sweep(context.Background())

	mockPurger.AssertExpectations(t)
}

func TestSweep_PurgeDoesNotAffectReplay(t *testing.T) {
	store := memory.NewStore(100, zap.NewNop())
	ctx := context.Background()

	var events []*domain.Event
	for nr := int64(1); nr <= 10; nr++ {
		events = append(events, &domain.Event{
			PersistenceID: "p1",
			SequenceNr:    nr,
			Payload:       []byte("payload"),
		})
	}
	require.NoError(t, store.WriteBatch(ctx, events))
	require.NoError(t, store.DeleteTo(ctx, "p1", 4))

	r := NewReaper(store, Config{Interval: time.Hour}, zap.NewNop())
	r.Sweep(ctx)

	// Replay after the physical purge returns exactly what it returned
	// before: events above the marker.
	it := store.Replay(ctx, "p1", 1, 10, 0)
	defer it.Close()

	var seqNrs []int64
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		seqNrs = append(seqNrs, e.SequenceNr)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{5, 6, 7, 8, 9, 10}, seqNrs)

	highest, err := store.HighestSequenceNr(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), highest)
}

func TestStart_StopsOnCancel(t *testing.T) {
	mockPurger := new(MockPurger)
	mockPurger.On("DeleteMarkers", mock.Anything).Return([]journal.Marker{}, nil)

	r := NewReaper(mockPurger, Config{Interval: 10 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}
