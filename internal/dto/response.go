package dto

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"ordering_violation"`
	Message string `json:"message,omitempty" example:"expected sequence number 4, got 6"`
}

// EventData represents one replayed journal event. Payload is base64-encoded
// opaque bytes.
type EventData struct {
	PersistenceID string    `json:"persistence_id" example:"account-42"`
	SequenceNr    int64     `json:"sequence_nr" example:"7"`
	Payload       []byte    `json:"payload"`
	SerializerID  uint32    `json:"ser_id" example:"1"`
	Manifest      string    `json:"ser_manifest,omitempty" example:"v2"`
	Tags          []string  `json:"tags,omitempty" example:"account,audit"`
	WriteTime     time.Time `json:"write_time"`
	WriterUUID    string    `json:"writer_uuid,omitempty"`
}

// ReplayResponse represents the result of a replay query
type ReplayResponse struct {
	PersistenceID string      `json:"persistence_id" example:"account-42"`
	Events        []EventData `json:"events"`
	Count         int         `json:"count" example:"100"`
}

// TagEntryData represents one tag-index entry
type TagEntryData struct {
	Tag           string `json:"tag" example:"audit"`
	Token         string `json:"token" example:"8c7f62aa-2f4b-11ef-9454-0242ac120002"`
	PersistenceID string `json:"persistence_id" example:"account-42"`
	SequenceNr    int64  `json:"sequence_nr" example:"7"`
}

// EventsByTagResponse represents the result of a tag-index query. LastToken
// is the resume point for the next poll.
type EventsByTagResponse struct {
	Tag       string         `json:"tag" example:"audit"`
	Entries   []TagEntryData `json:"entries"`
	LastToken string         `json:"last_token,omitempty"`
}

// HighestSequenceNrResponse represents an entity's highest committed
// sequence number
type HighestSequenceNrResponse struct {
	PersistenceID string `json:"persistence_id" example:"account-42"`
	SequenceNr    int64  `json:"highest_sequence_nr" example:"512"`
}

// DeleteToResponse represents a successful logical delete
type DeleteToResponse struct {
	PersistenceID string `json:"persistence_id" example:"account-42"`
	DeletedTo     int64  `json:"deleted_to" example:"500"`
	Status        string `json:"status" example:"deleted"`
}
