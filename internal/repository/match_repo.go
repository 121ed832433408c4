package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/utils/pairing"
)

// MatchRepository provides data access for Match rows. All writes go through
// the canonical (user_low_id, user_high_id) unique index so two triggers
// resolving mutuality at the same time still produce exactly one row.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// InsertIfAbsent creates the match for the unordered pair unless one exists.
// The pair is normalized before the write; ON CONFLICT DO NOTHING on the
// pair index plus a re-read makes this a single atomic insert-if-absent.
func (r *MatchRepository) InsertIfAbsent(
	ctx context.Context,
	profileA, profileB string,
) (*db.Match, bool, error) {
	low, high := pairing.Canonical(profileA, profileB)
	match := db.Match{UserLowID: low, UserHighID: high}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_low_id"}, {Name: "user_high_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &match, true, nil
	}

	existing, err := r.GetByPair(ctx, low, high)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperr.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByPair retrieves the match for an unordered pair, if any.
func (r *MatchRepository) GetByPair(ctx context.Context, profileA, profileB string) (*db.Match, error) {
	low, high := pairing.Canonical(profileA, profileB)
	var match db.Match
	err := r.db.WithContext(ctx).
		First(&match, "user_low_id = ? AND user_high_id = ?", low, high).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// GetByID retrieves a match by id.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForProfile returns all matches a profile participates in, newest first.
func (r *MatchRepository) ListForProfile(ctx context.Context, profileID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", profileID, profileID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
