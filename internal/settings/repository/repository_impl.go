package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Property is one string-valued entry in the key-value property store.
type Property struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Property) TableName() string {
	return "properties"
}

type Params struct {
	fx.In

	DB *gorm.DB
}

type store struct {
	db *gorm.DB
}

// Provide returns the database-backed property store.
func Provide(p Params) domain.Store {
	return &store{db: p.DB}
}

func (s *store) Get(ctx context.Context, key string) (string, error) {
	var prop Property
	err := s.db.WithContext(ctx).First(&prop, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrPropertyNotFound
	}
	if err != nil {
		return "", err
	}
	return prop.Value, nil
}

func (s *store) Set(ctx context.Context, key, value string) error {
	prop := Property{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&prop).Error
}

func (s *store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&Property{}, "key = ?", key).Error
}
