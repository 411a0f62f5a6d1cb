// Package repository 项目相关的存储操作
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// CreateProject 创建项目
func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	query := s.rebind(`
		INSERT INTO projects (id, tenant_id, name, description, model_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	_, err := s.db.ExecContext(ctx, query,
		project.ID, project.TenantID, project.Name, project.Description,
		project.ModelID, project.CreatedAt, project.UpdatedAt)
	return err
}

// GetProject 获取项目
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	query := s.rebind(`SELECT id, tenant_id, name, description, model_id, created_at, updated_at
			  FROM projects WHERE id = $1`)
	row := s.db.QueryRowContext(ctx, query, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return project, err
}

// scanProject 辅助函数
func scanProject(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Project, error) {
	project := &model.Project{}
	err := scanner.Scan(
		&project.ID, &project.TenantID, &project.Name, &project.Description,
		&project.ModelID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects 列出租户下的项目
func (s *Store) ListProjects(ctx context.Context, tenantID string, limit, offset int) ([]*model.Project, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if tenantID != "" {
		query := s.rebind(`SELECT id, tenant_id, name, description, model_id, created_at, updated_at
				  FROM projects WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`)
		rows, err = s.db.QueryContext(ctx, query, tenantID, limit, offset)
	} else {
		query := s.rebind(`SELECT id, tenant_id, name, description, model_id, created_at, updated_at
				  FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2`)
		rows, err = s.db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateProject 更新项目
func (s *Store) UpdateProject(ctx context.Context, project *model.Project) error {
	query := s.rebind(`UPDATE projects SET name = $1, description = $2, model_id = $3, updated_at = $4
			  WHERE id = $5`)
	result, err := s.db.ExecContext(ctx, query,
		project.Name, project.Description, project.ModelID, time.Now(), project.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteProject 删除项目及其提示卡
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM prompt_cards WHERE project_id = $1`), id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE id = $1`), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}
