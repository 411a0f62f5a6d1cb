package factory

import (
	"context"
	"testing"
	"time"

	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage/dbutil"
	sqlitedriver "titlegen-admin/internal/shared/storage/driver/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 工厂创建的 SQLite 存储必须已建表、可直接读写
func TestNewPersistentStoreFromDSN_SQLite(t *testing.T) {
	store, err := NewPersistentStoreFromDSN(dbutil.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	now := time.Now()
	project := &model.Project{
		ID: "proj-factory", TenantID: "tenant-1", Name: "工厂验证",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateProject(ctx, project))

	got, err := store.GetProject(ctx, "proj-factory")
	require.NoError(t, err)
	assert.Equal(t, "工厂验证", got.Name)
}

func TestNewPersistentStoreFromDSN_Unsupported(t *testing.T) {
	_, err := NewPersistentStoreFromDSN("oracle", "dsn://ignored")
	assert.Error(t, err)
}

func TestNewMySQLStoreFromDB(t *testing.T) {
	// 方言不绑定驱动，连接可以是任意 *sql.DB；只验证装配
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewMySQLStoreFromDB(db)
	require.NotNil(t, store)
	assert.Equal(t, dbutil.DriverMySQL, store.Dialect().DriverType())
}
