package notify_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/cache"
	"github.com/heelo-app/heelo-server/internal/config"
	"github.com/heelo-app/heelo-server/internal/db"
	"github.com/heelo-app/heelo-server/internal/service/notify"
)

func setupNotify(t *testing.T) (*app.AppContext, *notify.Service, *miniredis.Miniredis) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	appCtx := app.New(
		database,
		cache.NewRedisCache(cfg),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return appCtx, notify.NewService(appCtx), mr
}

func TestRecordBumpsCounter(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, mr := setupNotify(t)

	require.NoError(t, svc.NotifyHelloReceived(ctx, "target", "sender"))
	require.NoError(t, svc.NotifyHelloAccepted(ctx, "target", "sender"))

	key := appCtx.RedisCache.KeyForUnreadCount("target")
	val, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2", val)

	count, err := svc.CountUnread(ctx, "target")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestCountUnreadFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, mr := setupNotify(t)

	require.NoError(t, svc.NotifyHelloReceived(ctx, "target", "sender"))
	require.NoError(t, svc.NotifyHelloReceived(ctx, "target", "other"))

	// cache wiped, e.g. redis restart: the DB count repopulates it
	mr.FlushAll()

	count, err := svc.CountUnread(ctx, "target")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	key := appCtx.RedisCache.KeyForUnreadCount("target")
	val, err := mr.Get(key)
	require.NoError(t, err)
	cached, err := strconv.ParseInt(val, 10, 64)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cached)
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := setupNotify(t)

	require.NoError(t, svc.NotifyHelloReceived(ctx, "target", "sender"))
	require.NoError(t, svc.NotifyHelloReceived(ctx, "target", "other"))
	require.NoError(t, svc.NotifyHelloReceived(ctx, "someone-else", "sender"))

	updated, err := svc.MarkAllRead(ctx, "target")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	count, err := svc.CountUnread(ctx, "target")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	other, err := svc.CountUnread(ctx, "someone-else")
	require.NoError(t, err)
	assert.EqualValues(t, 1, other)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, _ := setupNotify(t)

	first := db.Notification{
		TargetProfileID:  "target",
		Kind:             db.NotifHelloReceived,
		RelatedProfileID: "one",
		CreatedAt:        time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, appCtx.DB.Create(&first).Error)
	require.NoError(t, svc.NotifyHelloAccepted(ctx, "target", "two"))

	list, err := svc.List(ctx, "target", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].RelatedProfileID)
	assert.Equal(t, "one", list[1].RelatedProfileID)
}
