package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/utils/pagination"
)

// ConversationRepository provides data access for threads and messages.
// Thread creation is keyed on the unique match_id index so concurrent
// find-or-create callers converge on one thread.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// InsertThreadIfAbsent creates the thread for a match unless one exists,
// returning the persisted thread and whether this call created it.
func (r *ConversationRepository) InsertThreadIfAbsent(
	ctx context.Context,
	matchID string,
) (*db.ConversationThread, bool, error) {
	thread := db.ConversationThread{MatchID: matchID}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "match_id"}},
			DoNothing: true,
		}).
		Create(&thread)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &thread, true, nil
	}

	existing, err := r.GetThreadByMatch(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetThreadByID retrieves a thread by id.
func (r *ConversationRepository) GetThreadByID(ctx context.Context, id string) (*db.ConversationThread, error) {
	var thread db.ConversationThread
	if err := r.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetThreadByMatch retrieves the thread of a match.
func (r *ConversationRepository) GetThreadByMatch(ctx context.Context, matchID string) (*db.ConversationThread, error) {
	var thread db.ConversationThread
	if err := r.db.WithContext(ctx).First(&thread, "match_id = ?", matchID).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateMessage inserts a message and advances the thread's last_message_at.
func (r *ConversationRepository) CreateMessage(ctx context.Context, message *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return touchThread(tx, message.ThreadID, message.CreatedAt)
	})
}

// InsertGreetingIfAbsent inserts the system greeting unless the thread
// already has one. The greeting stores the thread id as its dedupe key, so
// the insert rides the unique index like every other exactly-one-row write;
// concurrent seeders converge on one message.
func (r *ConversationRepository) InsertGreetingIfAbsent(
	ctx context.Context,
	threadID, content string,
) (*db.Message, bool, error) {
	dedupe := threadID
	greeting := db.Message{
		ThreadID:  threadID,
		SenderID:  db.SystemSenderID,
		Content:   content,
		Kind:      db.MessageSystem,
		DedupeKey: &dedupe,
		CreatedAt: time.Now().UTC(),
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).Create(&greeting)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return touchThread(tx, threadID, greeting.CreatedAt)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		return &greeting, true, nil
	}

	var existing db.Message
	err = r.db.WithContext(ctx).Where("dedupe_key = ?", threadID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// ListMessages returns a page of a thread's messages, oldest first.
func (r *ConversationRepository) ListMessages(
	ctx context.Context,
	threadID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Limit(limit + 1)

	if cursor.LastID != "" && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at > ? OR (created_at = ? AND id > ?))",
			ts, ts, cursor.LastID,
		)
	}

	var messages []db.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LastID:      last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		messages = messages[:limit]
	}

	return messages, nextToken, nil
}

// MarkMessagesRead flips is_read on every message in the thread not sent by
// the reader, returning how many rows changed.
func (r *ConversationRepository) MarkMessagesRead(
	ctx context.Context,
	threadID, readerID string,
) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("thread_id = ? AND sender_id <> ? AND is_read = ?", threadID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func touchThread(tx *gorm.DB, threadID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return tx.Model(&db.ConversationThread{}).
		Where("id = ?", threadID).
		Update("last_message_at", at).Error
}
