// Package gormexec is the example backing implementation of the engine's two
// consumed boundaries, types.Executor and types.MetadataRegistry, built on
// GORM the way the teacher's database package builds its own connections:
// one Init per dialect, reading config.App, wiring the shared gorm logger.
package gormexec

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/forbearing/uow/config"
	"github.com/forbearing/uow/logger"
)

// Open dials the dialect named by config.App.Database.Type (spec §6's
// "backing store" is intentionally abstract; this is the one example
// wiring). It applies the connection-pool settings from config.App.Database
// (sqlite is instead pinned to one idle and one open connection; only the
// connection lifetime applies to it) and returns a ready-to-use *gorm.DB for
// NewExecutor/NewMetadataRegistry.
func Open() (*gorm.DB, error) {
	switch config.App.Database.Type {
	case "postgres":
		return openPostgres(config.App.Postgres)
	case "mysql":
		return openMySQL(config.App.MySQL)
	default:
		return openSqlite(config.App.Sqlite)
	}
}

func openSqlite(cfg config.Sqlite) (*gorm.DB, error) {
	dsn := cfg.Path
	if len(dsn) == 0 {
		zap.S().Warn("sqlite path is empty, using in-memory database")
		dsn = "file::memory:?cache=shared"
	} else {
		params := []string{
			"_journal_mode=WAL",
			"_busy_timeout=5000",
			"_synchronous=NORMAL",
			"_temp_store=MEMORY",
			"_cache_size=-32000",
			"_foreign_keys=ON",
		}
		dsn = dsn + "?" + strings.Join(params, "&")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Gorm})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to sqlite")
	}
	if err := applyPool(db, 1, 1); err != nil {
		return nil, err
	}
	if err := db.Exec("PRAGMA optimize").Error; err != nil {
		zap.S().Warnw("failed to execute PRAGMA optimize", "error", err)
	}
	zap.S().Infow("successfully connected to sqlite", "path", cfg.Path)
	return db, nil
}

func openPostgres(cfg config.Postgres) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s connect_timeout=5",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Gorm})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	if err := applyPool(db, config.App.Database.MaxIdleConns, config.App.Database.MaxOpenConns); err != nil {
		return nil, err
	}
	zap.S().Infow("successfully connected to postgres", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return db, nil
}

func openMySQL(cfg config.MySQL) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Gorm})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mysql")
	}
	if err := applyPool(db, config.App.Database.MaxIdleConns, config.App.Database.MaxOpenConns); err != nil {
		return nil, err
	}
	zap.S().Infow("successfully connected to mysql", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return db, nil
}

func applyPool(gdb *gorm.DB, maxIdle, maxOpen int) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(config.App.Database.ConnMaxLife) * time.Second)
	return nil
}
