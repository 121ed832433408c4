package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/utils/pagination"
)

// ProfileRepository provides data access for Profile rows and the clan
// lookup tables, including the discovery candidate query.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetByID retrieves a profile, mapping a missing row to ErrUnknownProfile.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*db.Profile, error) {
	var profile db.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUnknownProfile
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetManyByID loads a set of profiles keyed by id.
func (r *ProfileRepository) GetManyByID(ctx context.Context, ids []string) (map[string]db.Profile, error) {
	var profiles []db.Profile
	if len(ids) == 0 {
		return map[string]db.Profile{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]db.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return byID, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *db.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// Update persists mutations to an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *db.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// ListClanFamilies returns all clan families ordered by name.
func (r *ProfileRepository) ListClanFamilies(ctx context.Context) ([]db.ClanFamily, error) {
	var families []db.ClanFamily
	err := r.db.WithContext(ctx).Order("name ASC").Find(&families).Error
	return families, err
}

// ListSubclans returns the subclans of a clan family ordered by name.
func (r *ProfileRepository) ListSubclans(ctx context.Context, clanFamilyID string) ([]db.Subclan, error) {
	var subclans []db.Subclan
	err := r.db.WithContext(ctx).
		Where("clan_family_id = ?", clanFamilyID).
		Order("name ASC").
		Find(&subclans).Error
	return subclans, err
}

// SubclanBelongsTo reports whether the subclan is part of the clan family.
func (r *ProfileRepository) SubclanBelongsTo(ctx context.Context, subclanID, clanFamilyID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Subclan{}).
		Where("id = ? AND clan_family_id = ?", subclanID, clanFamilyID).
		Count(&count).Error
	return count > 0, err
}

// DiscoveryParams is the fully validated candidate query. The service layer
// owns defaulting and rejection of invalid filter combinations.
type DiscoveryParams struct {
	ViewerID         *string // nil in anonymous/preview mode
	AgeMin           int
	AgeMax           int
	ClanFamilyID     string
	SubclanID        string
	LocationCategory string
	LocationValue    string
	StrictComplete   bool // anonymous mode demands every optional field too
}

// DiscoverCandidates returns the page of profiles eligible to be shown to
// the viewer.
//
// Behavior:
//   - Excludes the viewer's own profile and any profile with an
//     InterestAction in either direction (sent hellos and ignores both
//     suppress recurrence, so a profile surfaces at most once per viewer).
//   - Excludes incomplete profiles; strict mode additionally requires bio
//     and clan family to be set.
//   - Ordered by created_at DESC, id DESC with cursor-based pagination, so
//     pages neither repeat nor skip rows beyond what an evolving candidate
//     pool makes unavoidable.
func (r *ProfileRepository) DiscoverCandidates(
	ctx context.Context,
	params DiscoveryParams,
	paginationToken *string,
	limit int,
) ([]db.Profile, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("profiles p").
		Where("p.is_complete = ?", true).
		Where("p.age >= ? AND p.age <= ?", params.AgeMin, params.AgeMax).
		Order("p.created_at DESC, p.id DESC").
		Limit(limit + 1)

	if params.ViewerID != nil {
		viewer := *params.ViewerID
		query = query.
			Where("p.id <> ?", viewer).
			Where(`
				NOT EXISTS (
					SELECT 1 FROM interest_actions ia
					WHERE (ia.sender_id = ? AND ia.receiver_id = p.id)
					   OR (ia.sender_id = p.id AND ia.receiver_id = ?)
				)`, viewer, viewer)
	}
	if params.StrictComplete {
		query = query.Where("p.bio <> '' AND p.clan_family_id IS NOT NULL")
	}
	if params.ClanFamilyID != "" {
		query = query.Where("p.clan_family_id = ?", params.ClanFamilyID)
	}
	if params.SubclanID != "" {
		query = query.Where("p.subclan_id = ?", params.SubclanID)
	}
	if params.LocationCategory != "" {
		query = query.Where("p.location_category = ?", params.LocationCategory)
	}
	if params.LocationValue != "" {
		query = query.Where("p.location_value = ?", params.LocationValue)
	}

	if cursor.LastID != "" && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(p.created_at < ? OR (p.created_at = ? AND p.id < ?))",
			ts, ts, cursor.LastID,
		)
	}

	var profiles []db.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(profiles) > limit {
		last := profiles[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LastID:      last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		profiles = profiles[:limit]
	}

	return profiles, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
