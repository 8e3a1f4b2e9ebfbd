package testutil

import (
	"sync"
	"testing"

	"github.com/authcore/internal/model"
	"github.com/authcore/pkg/config"
	"github.com/authcore/pkg/database"
	"github.com/authcore/pkg/logger"
)

var once sync.Once

// Setup 初始化测试环境：内存SQLite、内存Redis与静默日志。
// 同一测试进程内只初始化一次。
func Setup(t *testing.T) {
	t.Helper()
	once.Do(func() {
		if err := config.Init(""); err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if err := logger.Init(&config.LogConfig{
			Level:  "error",
			Format: "console",
			Output: "console",
		}); err != nil {
			t.Fatalf("初始化日志失败: %v", err)
		}
		// 内存SQLite限制单连接，避免连接池拿到不同的内存库
		if err := database.Init(&config.DatabaseConfig{
			Driver:       "sqlite",
			MaxIdleConns: 1,
			MaxOpenConns: 1,
		}); err != nil {
			t.Fatalf("初始化数据库失败: %v", err)
		}
		if err := database.AutoMigrate(
			&model.User{},
			&model.Role{},
			&model.Permission{},
			&model.UserRole{},
			&model.RolePermission{},
			&model.AuditLog{},
		); err != nil {
			t.Fatalf("迁移数据表失败: %v", err)
		}
		if err := database.InitRedis(&config.RedisConfig{Mode: "memory"}); err != nil {
			t.Fatalf("初始化Redis失败: %v", err)
		}
	})
}
