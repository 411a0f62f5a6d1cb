// Package factory 按驱动类型创建持久化存储
//
// 三种驱动共用同一套接口（storage.PersistentStore）：
//   - postgres / sqlite：repository.Store + 对应方言
//   - mongodb：mongostore.Store
//
// 业务代码只持有接口类型，在 main 中用工厂函数创建实例注入。
// 工厂独立成包：repository 和 mongostore 都引用 storage 包的
// 错误哨兵，工厂不能放回 storage 包里。
package factory

import (
	"database/sql"
	"fmt"

	"titlegen-admin/internal/shared/storage"
	"titlegen-admin/internal/shared/storage/dbutil"
	mysqldriver "titlegen-admin/internal/shared/storage/driver/mysql"
	pgdriver "titlegen-admin/internal/shared/storage/driver/postgres"
	sqlitedriver "titlegen-admin/internal/shared/storage/driver/sqlite"
	"titlegen-admin/internal/shared/storage/mongostore"
	"titlegen-admin/internal/shared/storage/repository"
)

// NewMongoStore 创建 MongoDB 存储（含索引初始化）
var NewMongoStore = mongostore.NewStore

// NewPostgresStore 创建 PostgreSQL 存储
//
// 建表由部署脚本负责（deployments/init-db.sql），这里不自动迁移。
func NewPostgresStore(databaseURL string) (*repository.Store, error) {
	db, err := pgdriver.Open(databaseURL)
	if err != nil {
		return nil, err
	}
	return repository.NewStore(db, pgdriver.NewDialect()), nil
}

// NewSQLiteStore 创建 SQLite 存储（含自动建表）
func NewSQLiteStore(dsn string) (*repository.Store, error) {
	db, err := sqlitedriver.Open(dsn)
	if err != nil {
		return nil, err
	}
	dialect := sqlitedriver.NewDialect()
	if err := dialect.AutoMigrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite auto-migrate failed: %w", err)
	}
	return repository.NewStore(db, dialect), nil
}

// NewMySQLStoreFromDB 用已建立的 MySQL 连接创建存储
//
// MySQL 方言不绑定具体驱动，连接由部署方自行打开后注入，
// 建表脚本也需要部署方预先执行（AutoMigrate 未实现）。
func NewMySQLStoreFromDB(db *sql.DB) *repository.Store {
	return repository.NewStore(db, mysqldriver.NewDialect())
}

// NewPersistentStoreFromDSN 根据驱动类型和 DSN 创建持久化存储
// 支持的驱动类型：postgres, sqlite
func NewPersistentStoreFromDSN(driver dbutil.DriverType, dsn string) (storage.PersistentStore, error) {
	switch driver {
	case dbutil.DriverPostgres:
		return NewPostgresStore(dsn)
	case dbutil.DriverSQLite:
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
