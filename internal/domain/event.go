package domain

import "time"

// Event is one journal row: an immutable record owned by a single
// persistence id. Payload bytes are opaque to the store; SerializerID and
// Manifest travel alongside so the host runtime can decode them on replay.
type Event struct {
	PersistenceID string
	SequenceNr    int64
	Payload       []byte
	SerializerID  uint32
	Manifest      string
	Tags          []string
	WriteTime     time.Time
	WriterUUID    string
}
