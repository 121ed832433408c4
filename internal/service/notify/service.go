package notify

import (
	"context"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/db"
	"github.com/heelo-app/heelo-server/internal/repository"
)

// Service records notifications for downstream delivery and answers unread
// queries. It is the NotificationSink the ledger and the match engine write
// through: the core emits notification rows, an external transport polls or
// streams them.
//
// Unread counts are cache-first:
//  1. Read redis (notifications:unread:profileID).
//  2. On miss, fall back to the DB count and refresh the cache with a 1h TTL.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository
}

// NewService creates the notification service from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
	}
}

// NotifyHelloReceived records that relatedProfileID sent target a hello.
func (s *Service) NotifyHelloReceived(ctx context.Context, targetProfileID, relatedProfileID string) error {
	return s.record(ctx, targetProfileID, relatedProfileID, db.NotifHelloReceived)
}

// NotifyHelloAccepted records that relatedProfileID accepted target's hello.
func (s *Service) NotifyHelloAccepted(ctx context.Context, targetProfileID, relatedProfileID string) error {
	return s.record(ctx, targetProfileID, relatedProfileID, db.NotifHelloAccepted)
}

func (s *Service) record(ctx context.Context, targetProfileID, relatedProfileID, kind string) error {
	n := &db.Notification{
		TargetProfileID:  targetProfileID,
		Kind:             kind,
		RelatedProfileID: relatedProfileID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	// best-effort counter bump; the DB stays the source of truth
	key := s.appCtx.RedisCache.KeyForUnreadCount(targetProfileID)
	if _, err := s.appCtx.RedisCache.Incr(ctx, key); err != nil {
		s.appCtx.Logger.Warn("failed to bump unread counter", "profile", targetProfileID, "err", err)
	}

	return nil
}

// List returns the newest notifications for a profile.
func (s *Service) List(ctx context.Context, profileID string, limit int) ([]db.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListForProfile(ctx, profileID, limit)
}

// CountUnread returns the profile's unread notification count, cache-first.
func (s *Service) CountUnread(ctx context.Context, profileID string) (int64, error) {
	if n, found, err := s.appCtx.RedisCache.GetUnreadCount(ctx, profileID); err == nil && found {
		return n, nil
	}

	count, err := s.repo.CountUnread(ctx, profileID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.UpdateUnreadCount(ctx, profileID, count); err != nil {
		s.appCtx.Logger.Warn("failed to refresh unread counter", "profile", profileID, "err", err)
	}

	return count, nil
}

// MarkAllRead marks every unread notification read and resets the counter.
func (s *Service) MarkAllRead(ctx context.Context, profileID string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, profileID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.UpdateUnreadCount(ctx, profileID, 0); err != nil {
		s.appCtx.Logger.Warn("failed to reset unread counter", "profile", profileID, "err", err)
	}

	return updated, nil
}
