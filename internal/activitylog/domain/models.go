package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Entry is one append-only activity record.
type Entry struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	Level     string            `gorm:"size:16;not null" json:"level"`
	Operation string            `gorm:"size:64;not null;index" json:"operation"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Details   datatypes.JSONMap `gorm:"not null;default:'{}'" json:"details,omitempty"`
}

func (Entry) TableName() string {
	return "activity_logs"
}

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Service appends activity records. Appends are best-effort: a failure in
// the logging path never propagates to the calling operation.
type Service interface {
	Append(ctx context.Context, level, operation, message string, details map[string]any)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
