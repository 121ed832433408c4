package interest_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
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
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/service/interest"
	"github.com/heelo-app/heelo-server/internal/service/notify"
)

func setupLedger(t *testing.T) (*app.AppContext, *interest.Service, *notify.Service) {
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
	notifySvc := notify.NewService(appCtx)
	return appCtx, interest.NewService(appCtx, notifySvc), notifySvc
}

func seedProfile(t *testing.T, appCtx *app.AppContext, id string) {
	t.Helper()
	p := db.Profile{
		ID:               id,
		DisplayName:      "Profile " + id,
		Age:              25,
		PhotoRefs:        []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"},
		LocationCategory: db.LocationDiaspora,
		LocationValue:    "London",
		IsComplete:       true,
	}
	require.NoError(t, appCtx.DB.Create(&p).Error)
}

func TestRecordActionValidation(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, _ := setupLedger(t)
	seedProfile(t, appCtx, "aaa")
	seedProfile(t, appCtx, "bbb")

	_, err := svc.RecordAction(ctx, "aaa", "aaa", db.KindHello)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "self-action rejected")

	_, err = svc.RecordAction(ctx, "aaa", "bbb", "wink")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "unknown kind rejected")

	_, err = svc.RecordAction(ctx, "aaa", "ghost", db.KindHello)
	assert.ErrorIs(t, err, apperr.ErrUnknownProfile)

	_, err = svc.RecordAction(ctx, "ghost", "bbb", db.KindHello)
	assert.ErrorIs(t, err, apperr.ErrUnknownProfile)
}

func TestRecordActionDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, notifySvc := setupLedger(t)
	seedProfile(t, appCtx, "aaa")
	seedProfile(t, appCtx, "bbb")

	first, err := svc.RecordAction(ctx, "aaa", "bbb", db.KindHello)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, db.StatusPending, first.Action.Status)

	second, err := svc.RecordAction(ctx, "aaa", "bbb", db.KindHello)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Action.ID, second.Action.ID)

	// even an ignore after a hello resolves to the original row
	third, err := svc.RecordAction(ctx, "aaa", "bbb", db.KindIgnore)
	require.NoError(t, err)
	assert.False(t, third.Created)
	assert.Equal(t, first.Action.ID, third.Action.ID)
	assert.Equal(t, db.KindHello, third.Action.Kind)

	// only the creating call notified the receiver
	notifications, err := notifySvc.List(ctx, "bbb", 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, db.NotifHelloReceived, notifications[0].Kind)
	assert.Equal(t, "aaa", notifications[0].RelatedProfileID)
}

func TestRecordIgnoreIsSilent(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, notifySvc := setupLedger(t)
	seedProfile(t, appCtx, "aaa")
	seedProfile(t, appCtx, "bbb")

	res, err := svc.RecordAction(ctx, "aaa", "bbb", db.KindIgnore)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, db.StatusIgnored, res.Action.Status)

	notifications, err := notifySvc.List(ctx, "bbb", 10)
	require.NoError(t, err)
	assert.Empty(t, notifications, "ignores never notify")
}

func TestListPendingEnrichesSenders(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, _ := setupLedger(t)
	seedProfile(t, appCtx, "aaa")
	seedProfile(t, appCtx, "bbb")
	seedProfile(t, appCtx, "ccc")

	_, err := svc.RecordAction(ctx, "aaa", "ccc", db.KindHello)
	require.NoError(t, err)
	_, err = svc.RecordAction(ctx, "bbb", "ccc", db.KindHello)
	require.NoError(t, err)
	_, err = svc.RecordAction(ctx, "ccc", "aaa", db.KindIgnore)
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, "ccc")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, ph := range pending {
		require.NotNil(t, ph.Sender)
		assert.Equal(t, ph.Action.SenderID, ph.Sender.ID)
	}
}

func TestDismissHello(t *testing.T) {
	ctx := context.Background()
	appCtx, svc, _ := setupLedger(t)
	seedProfile(t, appCtx, "aaa")
	seedProfile(t, appCtx, "bbb")
	seedProfile(t, appCtx, "ccc")

	res, err := svc.RecordAction(ctx, "aaa", "bbb", db.KindHello)
	require.NoError(t, err)

	_, err = svc.DismissHello(ctx, res.Action.ID, "ccc")
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	dismissed, err := svc.DismissHello(ctx, res.Action.ID, "bbb")
	require.NoError(t, err)
	assert.Equal(t, db.StatusIgnored, dismissed.Status)
	require.NotNil(t, dismissed.RespondedAt)

	// dismissing again is a no-op success
	again, err := svc.DismissHello(ctx, res.Action.ID, "bbb")
	require.NoError(t, err)
	assert.Equal(t, db.StatusIgnored, again.Status)

	pending, err := svc.ListPending(ctx, "bbb")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
