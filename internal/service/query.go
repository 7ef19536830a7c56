package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/dto"
	"github.com/rowlog/rowlog/internal/journal"
)

// QueryService serves the read/admin HTTP surface on top of a journal store.
type QueryService struct {
	store journal.Store
	log   *zap.Logger
}

// NewQueryService creates a new query service
func NewQueryService(store journal.Store, log *zap.Logger) *QueryService {
	return &QueryService{
		store: store,
		log:   log,
	}
}

// Replay collects one entity's events in [from, to] capped at max.
func (s *QueryService) Replay(ctx context.Context, persistenceID string, req *dto.ReplayRequest) (*dto.ReplayResponse, error) {
	to := req.To
	if to <= 0 {
		to = math.MaxInt64
	}

	it := s.store.Replay(ctx, persistenceID, req.From, to, req.Max)
	defer func() {
		if err := it.Close(); err != nil {
			s.log.Error("Failed to close replay iterator", zap.Error(err))
		}
	}()

	events := []dto.EventData{}
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		events = append(events, dto.EventData{
			PersistenceID: e.PersistenceID,
			SequenceNr:    e.SequenceNr,
			Payload:       e.Payload,
			SerializerID:  e.SerializerID,
			Manifest:      e.Manifest,
			Tags:          e.Tags,
			WriteTime:     e.WriteTime,
			WriterUUID:    e.WriterUUID,
		})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	return &dto.ReplayResponse{
		PersistenceID: persistenceID,
		Events:        events,
		Count:         len(events),
	}, nil
}

// EventsByTag reads one tag's entries ordered by token, deduplicating on
// (persistence id, sequence number): the tag index is at-least-once, so
// duplicate entries are expected and harmless.
func (s *QueryService) EventsByTag(ctx context.Context, tag string, req *dto.EventsByTagRequest) (*dto.EventsByTagResponse, error) {
	fromToken := uuid.Nil
	if req.FromToken != "" {
		parsed, err := uuid.Parse(req.FromToken)
		if err != nil {
			return nil, fmt.Errorf("invalid from_token: %w", err)
		}
		fromToken = parsed
	}

	it := s.store.EventsByTag(ctx, tag, fromToken, req.Limit)
	defer func() {
		if err := it.Close(); err != nil {
			s.log.Error("Failed to close tag iterator", zap.Error(err))
		}
	}()

	type eventKey struct {
		pid   string
		seqNr int64
	}
	seen := make(map[eventKey]struct{})

	entries := []dto.TagEntryData{}
	lastToken := ""
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		lastToken = entry.Token.String()

		key := eventKey{pid: entry.PersistenceID, seqNr: entry.SequenceNr}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		entries = append(entries, dto.TagEntryData{
			Tag:           entry.Tag,
			Token:         entry.Token.String(),
			PersistenceID: entry.PersistenceID,
			SequenceNr:    entry.SequenceNr,
		})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	return &dto.EventsByTagResponse{
		Tag:       tag,
		Entries:   entries,
		LastToken: lastToken,
	}, nil
}

// HighestSequenceNr returns the entity's highest committed sequence number.
func (s *QueryService) HighestSequenceNr(ctx context.Context, persistenceID string) (*dto.HighestSequenceNrResponse, error) {
	highest, err := s.store.HighestSequenceNr(ctx, persistenceID)
	if err != nil {
		return nil, err
	}
	return &dto.HighestSequenceNrResponse{
		PersistenceID: persistenceID,
		SequenceNr:    highest,
	}, nil
}

// DeleteTo advances the entity's delete marker.
func (s *QueryService) DeleteTo(ctx context.Context, persistenceID string, toSeqNr int64) (*dto.DeleteToResponse, error) {
	if err := s.store.DeleteTo(ctx, persistenceID, toSeqNr); err != nil {
		return nil, err
	}

	s.log.Info("Logical delete requested",
		zap.String("persistence_id", persistenceID),
		zap.Int64("to_sequence_nr", toSeqNr))

	return &dto.DeleteToResponse{
		PersistenceID: persistenceID,
		DeletedTo:     toSeqNr,
		Status:        "deleted",
	}, nil
}

// Ping checks the backend connection.
func (s *QueryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

var _ Querier = (*QueryService)(nil)
