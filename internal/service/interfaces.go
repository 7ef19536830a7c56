package service

import (
	"context"

	"github.com/rowlog/rowlog/internal/dto"
)

// Querier defines the interface for query service operations
type Querier interface {
	Replay(ctx context.Context, persistenceID string, req *dto.ReplayRequest) (*dto.ReplayResponse, error)
	EventsByTag(ctx context.Context, tag string, req *dto.EventsByTagRequest) (*dto.EventsByTagResponse, error)
	HighestSequenceNr(ctx context.Context, persistenceID string) (*dto.HighestSequenceNrResponse, error)
	DeleteTo(ctx context.Context, persistenceID string, toSeqNr int64) (*dto.DeleteToResponse, error)
	Ping(ctx context.Context) error
}
