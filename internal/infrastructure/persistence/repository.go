// Package persistence 食譜資料表存取
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recipe-ai-gateway/internal/pkg/common"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RecipeRepository recipes 資料表
type RecipeRepository struct {
	db *gorm.DB
}

// Open 依驅動開啟資料庫並自動建立 recipes 資料表
func Open(driver, dsn string, debug bool) (*RecipeRepository, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		if dsn == "" {
			dsn = ":memory:"
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	level := logger.Silent
	if debug {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 記憶體資料庫每條連線都是獨立的
	if dsn == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&RecipeModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewRecipeRepository(db), nil
}

// NewRecipeRepository 使用既有連線
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// InsertRecipes 在單一交易中新增多筆食譜
func (r *RecipeRepository) InsertRecipes(ctx context.Context, records []common.RecipeRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]RecipeModel, len(records))
	now := time.Now().UTC()
	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = common.GenerateUUID()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		models[i] = toModel(rec)
	}

	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to insert recipes: %w", err)
	}
	return nil
}

// Ping 檢查資料庫連線
func (r *RecipeRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線
func (r *RecipeRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
