// Package repository 用户相关的存储操作
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	query := s.rebind(`
		INSERT INTO users (id, tenant_id, email, username, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.TenantID, user.Email, user.Username, user.PasswordHash,
		user.Role, user.Status, user.CreatedAt, user.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	return err
}

// isUniqueViolation 粗粒度判断唯一约束冲突
// 不同驱动错误类型各异，这里按错误文本匹配
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// GetUser 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := s.rebind(`SELECT id, tenant_id, email, username, password_hash, role, status, created_at, updated_at
			  FROM users WHERE id = $1`)
	row := s.db.QueryRowContext(ctx, query, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return user, err
}

// GetUserByEmail 按邮箱获取用户（登录用）
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := s.rebind(`SELECT id, tenant_id, email, username, password_hash, role, status, created_at, updated_at
			  FROM users WHERE email = $1`)
	row := s.db.QueryRowContext(ctx, query, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return user, err
}

// UpdateUserPassword 更新密码哈希
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	query := s.rebind(`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`)
	res, err := s.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanUser 辅助函数
func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.User, error) {
	user := &model.User{}
	err := scanner.Scan(
		&user.ID, &user.TenantID, &user.Email, &user.Username, &user.PasswordHash,
		&user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
