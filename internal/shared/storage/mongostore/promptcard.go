package mongostore

import (
	"context"
	"time"

	"titlegen-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// PromptCardStore
// ============================================================================

// cardFilter 提示卡按 (project_id, _id) 定位
func cardFilter(projectID, id string) bson.D {
	return bson.D{
		{Key: "project_id", Value: projectID},
		{Key: "_id", Value: id},
	}
}

func (s *Store) CreatePromptCard(ctx context.Context, card *model.PromptCard) error {
	cp := *card
	cp.ContentLength = len(card.Content)
	return insertOne(ctx, s.col(ColPromptCards), &cp)
}

func (s *Store) GetPromptCard(ctx context.Context, projectID, id string) (*model.PromptCard, error) {
	return findOne[model.PromptCard](ctx, s.col(ColPromptCards), cardFilter(projectID, id))
}

func (s *Store) ListPromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error) {
	filter := bson.D{{Key: "project_id", Value: projectID}}
	opts := options.Find().SetSort(bson.D{{Key: "step_order", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[model.PromptCard](ctx, s.col(ColPromptCards), filter, opts)
}

func (s *Store) ListActivePromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error) {
	filter := bson.D{
		{Key: "project_id", Value: projectID},
		{Key: "active", Value: true},
	}
	opts := options.Find().SetSort(bson.D{{Key: "step_order", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[model.PromptCard](ctx, s.col(ColPromptCards), filter, opts)
}

func (s *Store) UpdatePromptCard(ctx context.Context, card *model.PromptCard) error {
	return updateFields(ctx, s.col(ColPromptCards), cardFilter(card.ProjectID, card.ID), bson.D{
		{Key: "name", Value: card.Name},
		{Key: "step_order", Value: card.StepOrder},
		{Key: "content", Value: card.Content},
		{Key: "active", Value: card.Active},
		{Key: "content_length", Value: len(card.Content)},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeletePromptCard(ctx context.Context, projectID, id string) error {
	return deleteOne(ctx, s.col(ColPromptCards), cardFilter(projectID, id))
}
