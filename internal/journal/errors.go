package journal

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable marks transient storage failures (timeouts,
// unreachable nodes). The store never retries these itself; retry and backoff
// policy belongs to the caller. Match with errors.Is.
var ErrBackendUnavailable = errors.New("journal backend unavailable")

// OrderingViolationError reports a write batch whose sequence numbers are not
// contiguous, or do not start directly after the entity's highest committed
// sequence number. This is a caller bug and is never retried.
type OrderingViolationError struct {
	PersistenceID string
	Expected      int64
	Got           int64
}

func (e *OrderingViolationError) Error() string {
	return fmt.Sprintf("ordering violation for %q: expected sequence number %d, got %d",
		e.PersistenceID, e.Expected, e.Got)
}

// PartitionBoundaryError reports a write batch that spans two storage
// partitions and therefore cannot commit atomically. The caller should
// resubmit the batch split at the boundary.
type PartitionBoundaryError struct {
	PersistenceID string
	FromSeqNr     int64
	ToSeqNr       int64
}

func (e *PartitionBoundaryError) Error() string {
	return fmt.Sprintf("write batch for %q spans a partition boundary (sequence numbers %d..%d)",
		e.PersistenceID, e.FromSeqNr, e.ToSeqNr)
}

// SequenceGapError is raised during replay when a sequence number is missing
// from the journal. Replay stops at the gap rather than skipping it, because
// recovery correctness depends on contiguity.
type SequenceGapError struct {
	PersistenceID string
	LastGoodSeqNr int64
	MissingSeqNr  int64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("sequence gap in journal of %q: %d is missing (last good %d)",
		e.PersistenceID, e.MissingSeqNr, e.LastGoodSeqNr)
}
