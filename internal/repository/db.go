package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/user/reelpick/internal/config"
	"github.com/user/reelpick/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接并自动迁移
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("创建 sqlite 目录失败: %w", err)
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 自动建表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Movie{},
		&model.KeywordEntry{},
		&model.Genre{},
		&model.UsageEntry{},
		&model.PromptLog{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// NewRepositories 基于 gorm 创建仓库集合
func NewRepositories(db *gorm.DB) *Store {
	return &Store{
		Movies:   NewMovieRepository(db),
		Keywords: NewKeywordRepository(db),
		Genres:   NewGenreRepository(db),
		Usage:    NewUsageRepository(db),
		Prompts:  NewPromptLogRepository(db),
		closer: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// Open 按配置选择存储后端
func Open(cfg *config.Config) (*Store, error) {
	if cfg.StoreBackend == config.BackendFile {
		return NewFileStore(cfg.CacheDir)
	}
	db, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewRepositories(db), nil
}

// OpenWithFallback 主后端不可用时改用本地文件，仍失败则返回不缓存的空存储
func OpenWithFallback(cfg *config.Config) *Store {
	store, err := Open(cfg)
	if err == nil {
		return store
	}
	log.Printf("[Store] %s 存储初始化失败: %v", cfg.StoreBackend, err)

	if cfg.StoreBackend != config.BackendFile {
		store, err := NewFileStore(cfg.CacheDir)
		if err == nil {
			log.Printf("[Store] 改用本地文件缓存: %s", cfg.CacheDir)
			return store
		}
		log.Printf("[Store] 本地文件缓存不可用: %v", err)
	}
	log.Println("[Store] 不使用缓存继续运行")
	return &Store{}
}
