package reset

import (
	"context"
	"fmt"
	"strings"

	"github.com/agora-ai/agora/internal/domain"
	"github.com/agora-ai/agora/internal/observability"
)

// Result describes what a reset removed.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Service erases persisted conversation state, either scoped to one user or
// globally.
type Service struct {
	store domain.CheckpointStore
}

func NewService(store domain.CheckpointStore) *Service {
	return &Service{store: store}
}

// Reset deletes conversation state. With a user id, only records whose
// thread identifier carries that user's prefix are removed; without one,
// every conversation-state collection is dropped.
func (s *Service) Reset(ctx context.Context, userID string) (Result, error) {
	log := observability.LoggerFromContext(ctx)

	if userID != "" {
		deleted, err := s.store.DeleteByUserPrefix(ctx, domain.UserID(userID))
		if err != nil {
			log.Error("scoped reset failed", "user_id", userID, "error", err)
			return Result{}, fmt.Errorf("%w: reset for user %s: %w", domain.ErrPersistence, userID, err)
		}
		log.Info("conversation state reset", "user_id", userID, "deleted", deleted)
		return Result{
			Status:  "success",
			Message: fmt.Sprintf("deleted %d records for user %s", deleted, userID),
		}, nil
	}

	cleared, err := s.store.DeleteAll(ctx)
	if err != nil {
		log.Error("global reset failed", "error", err)
		return Result{}, fmt.Errorf("%w: global reset: %w", domain.ErrPersistence, err)
	}
	log.Info("all conversation state reset", "collections", cleared)

	if len(cleared) == 0 {
		return Result{Status: "success", Message: "no collections needed to be cleared"}, nil
	}
	return Result{
		Status:  "success",
		Message: "cleared collections: " + strings.Join(cleared, ", "),
	}, nil
}
