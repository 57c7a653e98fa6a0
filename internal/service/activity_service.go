package service

import (
	"context"
	"time"

	"erp-backend/internal/apperr"
	"erp-backend/internal/repository"

	"github.com/google/uuid"
)

type ActivityResponse struct {
	ID         string    `json:"id"`
	ActorID    *string   `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name,omitempty"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ActivityService interface {
	// ListByEntity returns the mutation trail for one entity, newest first.
	ListByEntity(ctx context.Context, entityID string, page, limit int) ([]ActivityResponse, int64, error)
}

type activityService struct {
	activityRepo repository.ActivityRepository
}

func NewActivityService(activityRepo repository.ActivityRepository) ActivityService {
	return &activityService{activityRepo: activityRepo}
}

func (s *activityService) ListByEntity(ctx context.Context, entityID string, page, limit int) ([]ActivityResponse, int64, error) {
	id, err := uuid.Parse(entityID)
	if err != nil {
		return nil, 0, apperr.Validationf("invalid entity id: %s", entityID)
	}

	entries, total, err := s.activityRepo.ListByEntity(ctx, id, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list activity")
	}

	res := make([]ActivityResponse, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		item := ActivityResponse{
			ID:         entry.ID.String(),
			Action:     entry.Action,
			EntityID:   entry.EntityID,
			EntityName: entry.EntityName,
			Details:    entry.Details,
			CreatedAt:  entry.CreatedAt,
		}
		if entry.ActorID != nil {
			actor := entry.ActorID.String()
			item.ActorID = &actor
		}
		res = append(res, item)
	}
	return res, total, nil
}
