package api

import (
	"context"

	"streamline/internal/ledger"
)

// RunReader abstracts the ledger queries needed by the API.
type RunReader interface {
	List(ctx context.Context, limit int, states ...string) ([]*ledger.Run, error)
	Get(ctx context.Context, runID string) (*ledger.Run, error)
	Transitions(ctx context.Context, runID string) ([]ledger.Transition, error)
}

// RunService exposes read-only run queries returning API DTOs.
type RunService struct {
	store RunReader
}

// NewRunService returns nil when store is nil so callers can treat a
// disabled ledger as "no runs".
func NewRunService(store RunReader) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store}
}

// List returns runs newest first, filtered by state.
func (s *RunService) List(ctx context.Context, limit int, states ...string) ([]RunItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	runs, err := s.store.List(ctx, limit, states...)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// Describe fetches one run and its history. It returns nil when the run
// does not exist.
func (s *RunService) Describe(ctx context.Context, runID string) (*RunDetailResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.Get(ctx, runID)
	if err != nil || run == nil {
		return nil, err
	}
	history, err := s.store.Transitions(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &RunDetailResponse{Run: FromRun(run), Transitions: FromTransitions(history)}, nil
}
