package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/repository"
)

// AcceptanceGreeting is the system message seeded into a thread when a
// match forms through an explicit accept.
const AcceptanceGreeting = "You are now connected. Say salaam!"

// Service bootstraps and runs conversations: exactly one thread per match,
// created lazily on first need, with the same insert-if-absent discipline
// the match engine uses.
type Service struct {
	appCtx        *app.AppContext
	matches       *repository.MatchRepository
	conversations *repository.ConversationRepository
}

// NewService creates the conversation service from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		matches:       repository.NewMatchRepository(appCtx.DB),
		conversations: repository.NewConversationRepository(appCtx.DB),
	}
}

// EnsureThread resolves or creates the single thread of a match. Concurrent
// callers converge on one row.
func (s *Service) EnsureThread(ctx context.Context, matchID string) (*db.ConversationThread, error) {
	if _, err := s.matches.GetByID(ctx, matchID); err != nil {
		return nil, err
	}

	thread, created, err := s.conversations.InsertThreadIfAbsent(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if created {
		s.appCtx.Logger.Debug("conversation thread created", "thread", thread.ID, "match", matchID)
	}
	return thread, nil
}

// SendMessage appends a message to a thread.
//
// Behavior:
//   - The sender must be one of the match's two profiles, or the system
//     sentinel for system-kind messages.
//   - Text messages must have non-empty content.
//   - The thread's last_message_at advances with the message.
func (s *Service) SendMessage(ctx context.Context, threadID, senderID, content, kind string) (*db.Message, error) {
	thread, err := s.conversations.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	switch kind {
	case db.MessageSystem:
		if senderID != db.SystemSenderID {
			return nil, fmt.Errorf("%w: only the system sender may send system messages", apperr.ErrNotAuthorized)
		}
	case db.MessageText:
		content = strings.TrimSpace(content)
		if content == "" {
			return nil, fmt.Errorf("%w: message content must not be empty", apperr.ErrInvalidArgument)
		}
		if err := s.requireParticipant(ctx, thread.MatchID, senderID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown message kind %q", apperr.ErrInvalidArgument, kind)
	}

	message := &db.Message{
		ThreadID:  threadID,
		SenderID:  senderID,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.conversations.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// SeedAcceptanceGreeting inserts the single system greeting into the
// match's (possibly new) thread. Invoking it twice for the same match
// returns the existing greeting without duplicating it.
func (s *Service) SeedAcceptanceGreeting(ctx context.Context, match *db.Match, accepterID string) (*db.Message, error) {
	thread, _, err := s.conversations.InsertThreadIfAbsent(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	greeting, created, err := s.conversations.InsertGreetingIfAbsent(ctx, thread.ID, AcceptanceGreeting)
	if err != nil {
		return nil, err
	}
	if created {
		s.appCtx.Logger.Debug("acceptance greeting seeded",
			"thread", thread.ID, "match", match.ID, "accepter", accepterID)
	}
	return greeting, nil
}

// ListMessages returns a page of a thread's messages, oldest first. The
// reader must participate in the underlying match.
func (s *Service) ListMessages(
	ctx context.Context,
	threadID, readerID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	thread, err := s.conversations.GetThreadByID(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireParticipant(ctx, thread.MatchID, readerID); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.conversations.ListMessages(ctx, threadID, paginationToken, limit)
}

// MarkRead flips is_read on every message in the thread the reader did not
// send, returning how many were updated.
func (s *Service) MarkRead(ctx context.Context, threadID, readerID string) (int64, error) {
	thread, err := s.conversations.GetThreadByID(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if err := s.requireParticipant(ctx, thread.MatchID, readerID); err != nil {
		return 0, err
	}
	return s.conversations.MarkMessagesRead(ctx, threadID, readerID)
}

func (s *Service) requireParticipant(ctx context.Context, matchID, profileID string) error {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if profileID != match.UserLowID && profileID != match.UserHighID {
		return fmt.Errorf("%w: profile is not a participant of this conversation", apperr.ErrNotAuthorized)
	}
	return nil
}
