package chat_test

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
	"github.com/heelo-app/heelo-server/internal/service/chat"
	"github.com/heelo-app/heelo-server/internal/utils/pairing"
)

func setupChat(t *testing.T) (*app.AppContext, *chat.Service) {
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
	return appCtx, chat.NewService(appCtx)
}

func seedMatch(t *testing.T, appCtx *app.AppContext, a, b string) *db.Match {
	t.Helper()
	low, high := pairing.Canonical(a, b)
	m := db.Match{UserLowID: low, UserHighID: high}
	require.NoError(t, appCtx.DB.Create(&m).Error)
	return &m
}

func TestEnsureThreadUnknownMatch(t *testing.T) {
	ctx := context.Background()
	_, svc := setupChat(t)

	_, err := svc.EnsureThread(ctx, "no-such-match")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnsureThreadIdempotent(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setupChat(t)
	m := seedMatch(t, appCtx, "aaa", "bbb")

	t1, err := svc.EnsureThread(ctx, m.ID)
	require.NoError(t, err)
	t2, err := svc.EnsureThread(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setupChat(t)
	m := seedMatch(t, appCtx, "aaa", "bbb")
	thread, err := svc.EnsureThread(ctx, m.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, thread.ID, "aaa", "   ", db.MessageText)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "blank content rejected")

	_, err = svc.SendMessage(ctx, thread.ID, "ccc", "salaam", db.MessageText)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized, "non-participant rejected")

	_, err = svc.SendMessage(ctx, thread.ID, "aaa", "hi", db.MessageSystem)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized, "user cannot send system messages")

	_, err = svc.SendMessage(ctx, thread.ID, "aaa", "hi", "carrier-pigeon")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "unknown kind rejected")

	msg, err := svc.SendMessage(ctx, thread.ID, "aaa", "  salaam  ", db.MessageText)
	require.NoError(t, err)
	assert.Equal(t, "salaam", msg.Content, "content trimmed")
}

func TestSendMessageAdvancesThread(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setupChat(t)
	m := seedMatch(t, appCtx, "aaa", "bbb")
	thread, err := svc.EnsureThread(ctx, m.ID)
	require.NoError(t, err)
	require.Nil(t, thread.LastMessageAt)

	_, err = svc.SendMessage(ctx, thread.ID, "aaa", "salaam", db.MessageText)
	require.NoError(t, err)

	var after db.ConversationThread
	require.NoError(t, appCtx.DB.First(&after, "id = ?", thread.ID).Error)
	require.NotNil(t, after.LastMessageAt)
}

func TestSeedAcceptanceGreetingOnce(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setupChat(t)
	m := seedMatch(t, appCtx, "aaa", "bbb")

	g1, err := svc.SeedAcceptanceGreeting(ctx, m, "bbb")
	require.NoError(t, err)
	assert.Equal(t, db.SystemSenderID, g1.SenderID)
	assert.Equal(t, chat.AcceptanceGreeting, g1.Content)

	g2, err := svc.SeedAcceptanceGreeting(ctx, m, "bbb")
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID)

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.Message{}).
		Where("kind = ?", db.MessageSystem).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListMessagesOrderAndAccess(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setupChat(t)
	m := seedMatch(t, appCtx, "aaa", "bbb")
	thread, err := svc.EnsureThread(ctx, m.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, thread.ID, "aaa", fmt.Sprintf("msg %d", i), db.MessageText)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	msgs, _, err := svc.ListMessages(ctx, thread.ID, "bbb", nil, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg 0", msgs[0].Content, "oldest first")
	assert.Equal(t, "msg 2", msgs[2].Content)

	_, _, err = svc.ListMessages(ctx, thread.ID, "intruder", nil, 10)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	appCtx, svc := setupChat(t)
	m := seedMatch(t, appCtx, "aaa", "bbb")
	thread, err := svc.EnsureThread(ctx, m.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, thread.ID, "aaa", "one", db.MessageText)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, thread.ID, "aaa", "two", db.MessageText)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, thread.ID, "bbb", "reply", db.MessageText)
	require.NoError(t, err)

	n, err := svc.MarkRead(ctx, thread.ID, "bbb")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "only the other side's messages flip")

	n, err = svc.MarkRead(ctx, thread.ID, "bbb")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "repeat is a no-op")

	var unread int64
	require.NoError(t, appCtx.DB.Model(&db.Message{}).
		Where("thread_id = ? AND is_read = ?", thread.ID, false).Count(&unread).Error)
	assert.EqualValues(t, 1, unread, "bbb's own message stays unread for aaa")
}
