package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Entry{}))
	require.NoError(t, db.Where("1 = 1").Delete(&domain.Entry{}).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: db, Log: zap.NewNop(), GenID: node})
}

func TestAppendAndRecent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Append(ctx, domain.LevelInfo, "send_batch", "batch complete", map[string]any{"sent": 3})
	svc.Append(ctx, domain.LevelWarn, "send_batch", "duplicate rows", nil)

	entries, err := svc.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "send_batch", e.Operation)
		assert.NotZero(t, e.ID)
	}
}

func TestRecentClampsLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.Append(ctx, domain.LevelInfo, "send_single", "row 2 sent", nil)

	entries, err := svc.Recent(ctx, -5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = svc.Recent(ctx, 100000)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
