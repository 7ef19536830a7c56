package snapshot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/snapshot"
	"github.com/rowlog/rowlog/internal/snapshot/memory"
)

func jsonishDeserializer() snapshot.Deserializer {
	return snapshot.DeserializerFunc(func(payload []byte, serializerID uint32, manifest string) (any, error) {
		if string(payload) == "corrupt" {
			return nil, errors.New("payload unreadable")
		}
		return string(payload), nil
	})
}

// Recovery scenario against the real repository: a valid snapshot at
// sequence number 100 is buried under two corrupt ones at 123 and 125;
// loading falls back and returns the valid one.
func TestRecoveryFallsBackToValidSnapshot(t *testing.T) {
	repo := memory.NewRepository()
	store := snapshot.NewStore(repo, jsonishDeserializer(), snapshot.DefaultMaxLoadAttempts, zap.NewNop())
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		PersistenceID: "p1", SequenceNr: 100, Timestamp: base, Payload: []byte("state-100"),
	}))
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		PersistenceID: "p1", SequenceNr: 123, Timestamp: base.Add(time.Minute), Payload: []byte("corrupt"),
	}))
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		PersistenceID: "p1", SequenceNr: 125, Timestamp: base.Add(2 * time.Minute), Payload: []byte("corrupt"),
	}))

	loaded, err := store.LoadLatest(ctx, "p1", domain.SnapshotCriteria{})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(100), loaded.Snapshot.SequenceNr)
	assert.Equal(t, "state-100", loaded.State)
}

func TestRecoveryReportsLoadFailed(t *testing.T) {
	repo := memory.NewRepository()
	store := snapshot.NewStore(repo, jsonishDeserializer(), snapshot.DefaultMaxLoadAttempts, zap.NewNop())
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.Save(ctx, &domain.Snapshot{
			PersistenceID: "p1", SequenceNr: 100 + i, Timestamp: time.Unix(i, 0), Payload: []byte("corrupt"),
		}))
	}

	loaded, err := store.LoadLatest(ctx, "p1", domain.SnapshotCriteria{})
	require.ErrorIs(t, err, snapshot.ErrLoadFailed)
	assert.Nil(t, loaded)
}

func TestRecoveryCriteriaBoundSelection(t *testing.T) {
	repo := memory.NewRepository()
	store := snapshot.NewStore(repo, jsonishDeserializer(), snapshot.DefaultMaxLoadAttempts, zap.NewNop())
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Save(ctx, &domain.Snapshot{
			PersistenceID: "p1",
			SequenceNr:    i * 10,
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
			Payload:       []byte("state"),
		}))
	}

	loaded, err := store.LoadLatest(ctx, "p1", domain.SnapshotCriteria{
		MaxSequenceNr: 35,
		MaxTimestamp:  base.Add(4 * time.Minute),
	})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(30), loaded.Snapshot.SequenceNr)
}

func TestDeleteThenLoadReturnsNone(t *testing.T) {
	repo := memory.NewRepository()
	store := snapshot.NewStore(repo, jsonishDeserializer(), snapshot.DefaultMaxLoadAttempts, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		PersistenceID: "p1", SequenceNr: 10, Timestamp: time.Unix(10, 0), Payload: []byte("state"),
	}))
	require.NoError(t, store.Delete(ctx, "p1", domain.SnapshotCriteria{MaxSequenceNr: 10}))

	loaded, err := store.LoadLatest(ctx, "p1", domain.SnapshotCriteria{})
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
