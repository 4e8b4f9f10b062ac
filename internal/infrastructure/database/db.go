// Package database は gorm を使った永続的な Todo リポジトリと DB 接続まわり。
package database

import (
	"context"
	"fmt"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hijjiri/todo-api/internal/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// BuildMySQLDSN は DBConfig から go-sql-driver/mysql 形式の DSN を組み立てる。
func BuildMySQLDSN(cfg config.DBConfig) string {
	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 5 * time.Second
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Open は driver に応じて gorm.DB を開く。接続確認はしない（PingWithRetry で行う）。
func Open(cfg config.DBConfig, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverMySQL:
		dialector = gormmysql.Open(BuildMySQLDSN(cfg))
	case DriverSQLite:
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger, 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite は書き込みが直列なので接続を 1 本に絞る
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate は todos テーブルを作成・更新する。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&todoRow{}); err != nil {
		return fmt.Errorf("migrate todos: %w", err)
	}
	return nil
}

// PingWithRetry は起動直後の DB 待ち用。
func PingWithRetry(ctx context.Context, db *gorm.DB, logger *zap.Logger, maxAttempts int, interval time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	for i := 1; i <= maxAttempts; i++ {
		err := sqlDB.PingContext(ctx)
		if err == nil {
			return nil
		}

		logger.Warn("failed to ping db",
			zap.Int("attempt", i),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err),
		)
		if i == maxAttempts {
			break
		}
		if err := sleepWithContext(ctx, interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to ping db after %d attempts", maxAttempts)
}

// Close は gorm.DB の裏の *sql.DB を閉じる。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
