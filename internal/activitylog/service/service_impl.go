package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activitylog.service"),
		genID: p.GenID,
	}
}

func (s *Service) Append(ctx context.Context, level, operation, message string, details map[string]any) {
	entry := domain.Entry{
		ID:        s.genID.Generate(),
		CreatedAt: time.Now().UTC(),
		Level:     level,
		Operation: operation,
		Message:   message,
		Details:   datatypes.JSONMap(details),
	}
	if entry.Details == nil {
		entry.Details = datatypes.JSONMap{}
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		// best effort only; the calling operation must not fail because
		// the log could not be written
		s.log.Warn("activity log append failed", zap.Error(err), zap.String("operation", operation))
	}
}

func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []domain.Entry
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
