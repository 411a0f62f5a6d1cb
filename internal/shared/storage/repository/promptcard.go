// Package repository 提示卡相关的存储操作
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// CreatePromptCard 创建提示卡
func (s *Store) CreatePromptCard(ctx context.Context, card *model.PromptCard) error {
	query := s.rebind(`
		INSERT INTO prompt_cards (project_id, id, name, step_order, content, active, content_length, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	_, err := s.db.ExecContext(ctx, query,
		card.ProjectID, card.ID, card.Name, card.StepOrder, card.Content,
		card.Active, len(card.Content), card.CreatedAt, card.UpdatedAt)
	return err
}

// GetPromptCard 获取提示卡
func (s *Store) GetPromptCard(ctx context.Context, projectID, id string) (*model.PromptCard, error) {
	query := s.rebind(`SELECT project_id, id, name, step_order, content, active, content_length, created_at, updated_at
			  FROM prompt_cards WHERE project_id = $1 AND id = $2`)
	row := s.db.QueryRowContext(ctx, query, projectID, id)
	card, err := scanPromptCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return card, err
}

// scanPromptCard 辅助函数
func scanPromptCard(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.PromptCard, error) {
	card := &model.PromptCard{}
	err := scanner.Scan(
		&card.ProjectID, &card.ID, &card.Name, &card.StepOrder, &card.Content,
		&card.Active, &card.ContentLength, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// scanPromptCards 批量扫描
func scanPromptCards(rows *sql.Rows) ([]*model.PromptCard, error) {
	var cards []*model.PromptCard
	for rows.Next() {
		card, err := scanPromptCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// ListPromptCards 列出项目下的所有提示卡（按 step_order 升序）
func (s *Store) ListPromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error) {
	query := s.rebind(`SELECT project_id, id, name, step_order, content, active, content_length, created_at, updated_at
			  FROM prompt_cards WHERE project_id = $1 ORDER BY step_order ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPromptCards(rows)
}

// ListActivePromptCards 列出项目下参与拼装的提示卡
//
// 排序在 SQL 层完成，拼装器按返回顺序直接拼接。
func (s *Store) ListActivePromptCards(ctx context.Context, projectID string) ([]*model.PromptCard, error) {
	query := s.rebind(`SELECT project_id, id, name, step_order, content, active, content_length, created_at, updated_at
			  FROM prompt_cards
			  WHERE project_id = $1 AND active = ` + s.dialect.BooleanLiteral(true) + `
			  ORDER BY step_order ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPromptCards(rows)
}

// UpdatePromptCard 更新提示卡
func (s *Store) UpdatePromptCard(ctx context.Context, card *model.PromptCard) error {
	query := s.rebind(`UPDATE prompt_cards
			  SET name = $1, step_order = $2, content = $3, active = $4, content_length = $5, updated_at = $6
			  WHERE project_id = $7 AND id = $8`)
	result, err := s.db.ExecContext(ctx, query,
		card.Name, card.StepOrder, card.Content, card.Active, len(card.Content),
		time.Now(), card.ProjectID, card.ID)
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

// DeletePromptCard 删除提示卡
func (s *Store) DeletePromptCard(ctx context.Context, projectID, id string) error {
	query := s.rebind(`DELETE FROM prompt_cards WHERE project_id = $1 AND id = $2`)
	result, err := s.db.ExecContext(ctx, query, projectID, id)
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
