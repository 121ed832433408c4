package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
)

// InterestRepository provides data access for InterestAction rows.
// It encapsulates the per-ordered-pair uniqueness discipline: inserts go
// through the unique (sender_id, receiver_id) index with ON CONFLICT DO
// NOTHING, so concurrent duplicate actions converge on one row.
type InterestRepository struct {
	db *gorm.DB
}

// NewInterestRepository creates a new repository bound to the given DB connection.
func NewInterestRepository(database *gorm.DB) *InterestRepository {
	return &InterestRepository{db: database}
}

// InsertIfAbsent inserts the action unless a row for the ordered
// (sender, receiver) pair already exists.
//
// Returns the persisted row and whether this call created it. On a
// suppressed duplicate, the existing row is re-read and returned so callers
// see the same result as the creating call.
func (r *InterestRepository) InsertIfAbsent(
	ctx context.Context,
	action *db.InterestAction,
) (*db.InterestAction, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sender_id"}, {Name: "receiver_id"}},
			DoNothing: true,
		}).
		Create(action)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return action, true, nil
	}

	existing, err := r.GetByPair(ctx, action.SenderID, action.ReceiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a single action.
func (r *InterestRepository) GetByID(ctx context.Context, id string) (*db.InterestAction, error) {
	var action db.InterestAction
	if err := r.db.WithContext(ctx).First(&action, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &action, nil
}

// GetByPair retrieves the action for an ordered (sender, receiver) pair.
func (r *InterestRepository) GetByPair(
	ctx context.Context,
	senderID, receiverID string,
) (*db.InterestAction, error) {
	var action db.InterestAction
	err := r.db.WithContext(ctx).
		First(&action, "sender_id = ? AND receiver_id = ?", senderID, receiverID).Error
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// HasHello reports whether sender sent receiver a hello that was not ignored.
func (r *InterestRepository) HasHello(ctx context.Context, senderID, receiverID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.InterestAction{}).
		Where("sender_id = ? AND receiver_id = ? AND kind = ? AND status <> ?",
			senderID, receiverID, db.KindHello, db.StatusIgnored).
		Count(&count).Error
	return count > 0, err
}

// MarkResponded transitions a pending action to the given status, stamping
// responded_at. The WHERE on status makes the transition atomic: only one
// caller observes reported=true, retries see false and read the settled row.
func (r *InterestRepository) MarkResponded(
	ctx context.Context,
	id, status string,
	at time.Time,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.InterestAction{}).
		Where("id = ? AND status = ?", id, db.StatusPending).
		Updates(map[string]interface{}{"status": status, "responded_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListPendingForReceiver returns hellos awaiting the receiver's response,
// newest first.
func (r *InterestRepository) ListPendingForReceiver(
	ctx context.Context,
	receiverID string,
) ([]db.InterestAction, error) {
	var actions []db.InterestAction
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND kind = ? AND status = ?",
			receiverID, db.KindHello, db.StatusPending).
		Order("created_at DESC, id DESC").
		Find(&actions).Error
	return actions, err
}
