package mongostore

import (
	"context"
	"time"

	"titlegen-admin/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ProjectStore
// ============================================================================

func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	return insertOne(ctx, s.col(ColProjects), project)
}

func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return findOne[model.Project](ctx, s.col(ColProjects), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListProjects(ctx context.Context, tenantID string, limit, offset int) ([]*model.Project, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.D{}
	if tenantID != "" {
		filter = bson.D{{Key: "tenant_id", Value: tenantID}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	return findMany[model.Project](ctx, s.col(ColProjects), filter, opts)
}

func (s *Store) UpdateProject(ctx context.Context, project *model.Project) error {
	return updateFields(ctx, s.col(ColProjects), bson.D{{Key: "_id", Value: project.ID}}, bson.D{
		{Key: "name", Value: project.Name},
		{Key: "description", Value: project.Description},
		{Key: "model_id", Value: project.ModelID},
		{Key: "updated_at", Value: time.Now()},
	})
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	// 级联删除项目下的提示卡
	if _, err := s.col(ColPromptCards).DeleteMany(ctx, bson.D{{Key: "project_id", Value: id}}); err != nil {
		return wrapError(err)
	}
	return deleteOne(ctx, s.col(ColProjects), bson.D{{Key: "_id", Value: id}})
}
