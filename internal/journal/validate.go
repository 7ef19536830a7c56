package journal

import (
	"fmt"

	"github.com/rowlog/rowlog/internal/domain"
	"github.com/rowlog/rowlog/internal/partition"
)

// ValidateBatch checks a write batch against the journal's preconditions:
// one persistence id, sequence numbers contiguous and starting directly after
// lastSeqNr, and the whole batch inside one partition. Both backend
// implementations run every batch through this before touching storage.
func ValidateBatch(events []*domain.Event, lastSeqNr, partitionSize int64) error {
	if len(events) == 0 {
		return fmt.Errorf("empty write batch")
	}

	pid := events[0].PersistenceID
	if pid == "" {
		return fmt.Errorf("write batch with empty persistence id")
	}

	next := lastSeqNr + 1
	for _, e := range events {
		if e.PersistenceID != pid {
			return fmt.Errorf("write batch mixes persistence ids %q and %q", pid, e.PersistenceID)
		}
		if e.SequenceNr != next {
			return &OrderingViolationError{PersistenceID: pid, Expected: next, Got: e.SequenceNr}
		}
		next++
	}

	from := events[0].SequenceNr
	to := events[len(events)-1].SequenceNr
	if partition.SpansBoundary(from, to, partitionSize) {
		return &PartitionBoundaryError{PersistenceID: pid, FromSeqNr: from, ToSeqNr: to}
	}

	return nil
}
