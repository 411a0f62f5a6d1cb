// Package mysql MySQL 数据库方言
//
// 提供 MySQL 方言实现。连接由部署方通过 database/sql 注入，
// 本包不绑定具体驱动。
package mysql

import (
	"database/sql"
	"fmt"

	"titlegen-admin/internal/shared/storage/dbutil"
)

// Dialect MySQL 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverMySQL
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.StripPgCasts(dbutil.RebindToQuestion(query))
}

func (d *Dialect) CurrentTimestamp() string {
	return "NOW()"
}

func (d *Dialect) BooleanLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d *Dialect) UpsertConflict(conflictColumns string, updateExprs []string) string {
	// MySQL 不支持 ON CONFLICT，使用 ON DUPLICATE KEY UPDATE
	result := "ON DUPLICATE KEY UPDATE "
	for i, expr := range updateExprs {
		if i > 0 {
			result += ", "
		}
		result += expr
	}
	return result
}

func (d *Dialect) AutoMigrate(db *sql.DB) error {
	return fmt.Errorf("mysql auto-migrate not implemented yet")
}

// NewDialect 创建 MySQL 方言
func NewDialect() *Dialect {
	return &Dialect{}
}
