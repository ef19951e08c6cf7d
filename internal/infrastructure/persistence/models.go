package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"recipe-ai-gateway/internal/pkg/common"
)

// StringSlice 以 JSON 文字保存的字串陣列
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// RecipeModel recipes 資料表
type RecipeModel struct {
	ID          string      `gorm:"primaryKey;size:36"`
	Title       string      `gorm:"not null;size:255"`
	Description string      `gorm:"type:text"`
	Ingredients StringSlice `gorm:"type:text"`
	Steps       StringSlice `gorm:"type:text"`
	Source      string      `gorm:"size:16;index"`
	UserID      *string     `gorm:"size:64;index"`
	CreatedAt   time.Time   `gorm:"index"`
}

// TableName 資料表名稱
func (RecipeModel) TableName() string {
	return "recipes"
}

func toModel(r common.RecipeRecord) RecipeModel {
	m := RecipeModel{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Ingredients: StringSlice(common.CopyStrings(r.Ingredients)),
		Steps:       StringSlice(common.CopyStrings(r.Steps)),
		Source:      string(r.Source),
		CreatedAt:   r.CreatedAt,
	}
	if r.UserID != "" {
		uid := r.UserID
		m.UserID = &uid
	}
	return m
}
