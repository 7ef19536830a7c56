package domain

import "time"

// Snapshot is one stored point-in-time state for a persistence id. Multiple
// snapshots may coexist per entity; selection orders them by
// (SequenceNr, Timestamp) descending.
type Snapshot struct {
	PersistenceID string
	SequenceNr    int64
	Timestamp     time.Time
	Payload       []byte
	SerializerID  uint32
	Manifest      string
	Meta          []byte
}

// SnapshotCriteria is the (maxSequenceNr, maxTimestamp) upper bound pair used
// by snapshot selection and deletion. Zero values mean unbounded.
type SnapshotCriteria struct {
	MaxSequenceNr int64
	MaxTimestamp  time.Time
}

// Matches reports whether a snapshot falls within both bounds.
func (c SnapshotCriteria) Matches(s Snapshot) bool {
	if c.MaxSequenceNr > 0 && s.SequenceNr > c.MaxSequenceNr {
		return false
	}
	if !c.MaxTimestamp.IsZero() && s.Timestamp.After(c.MaxTimestamp) {
		return false
	}
	return true
}
