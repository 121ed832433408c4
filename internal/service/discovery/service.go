package discovery

import (
	"context"
	"fmt"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/repository"
)

// Default age bounds when a filter leaves them unset.
const (
	DefaultAgeMin = 18
	DefaultAgeMax = 60
)

// Filters is the recognized discovery configuration. Zero values mean
// "unset" and fall back to the defaults above.
type Filters struct {
	AgeMin           int    `json:"age_min"`
	AgeMax           int    `json:"age_max"`
	ClanFamilyID     string `json:"clan_family_id"`
	SubclanID        string `json:"subclan_id"`
	LocationCategory string `json:"location_category"`
	LocationValue    string `json:"location_value"`
}

// Service computes the candidate set of profiles eligible to be shown to a
// viewer. Read-only: recording the viewer's reaction is the ledger's job.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

// NewService creates the discovery service from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// NextCandidates returns the next page of eligible profiles for the viewer.
//
// Behavior:
//   - viewerID nil means anonymous/preview mode: no exclusion history
//     applies and a stricter completeness predicate is enforced.
//   - Candidates the viewer already acted on (hello or ignore, either
//     direction) never reappear.
//   - Running out of candidates is a success with an empty page.
func (s *Service) NextCandidates(
	ctx context.Context,
	viewerID *string,
	filters Filters,
	paginationToken *string,
	pageSize int,
) ([]db.Profile, *string, error) {
	params, err := s.validate(ctx, viewerID, filters)
	if err != nil {
		return nil, nil, err
	}

	if viewerID != nil {
		if _, err := s.profiles.GetByID(ctx, *viewerID); err != nil {
			return nil, nil, err
		}
	}

	if pageSize <= 0 {
		pageSize = 10
	}

	return s.profiles.DiscoverCandidates(ctx, params, paginationToken, pageSize)
}

func (s *Service) validate(ctx context.Context, viewerID *string, f Filters) (repository.DiscoveryParams, error) {
	params := repository.DiscoveryParams{
		ViewerID:       viewerID,
		AgeMin:         f.AgeMin,
		AgeMax:         f.AgeMax,
		StrictComplete: viewerID == nil,
	}

	// No profile is ever younger than the floor, so a lower bound below it
	// is clamped rather than rejected.
	if params.AgeMin < DefaultAgeMin {
		params.AgeMin = DefaultAgeMin
	}
	if params.AgeMax == 0 {
		params.AgeMax = DefaultAgeMax
	}
	if params.AgeMin > params.AgeMax {
		return params, fmt.Errorf("%w: age_min exceeds age_max", apperr.ErrInvalidFilter)
	}

	if f.LocationCategory != "" {
		if f.LocationCategory != db.LocationHomeRegion && f.LocationCategory != db.LocationDiaspora {
			return params, fmt.Errorf("%w: unknown location category %q", apperr.ErrInvalidFilter, f.LocationCategory)
		}
		params.LocationCategory = f.LocationCategory
		params.LocationValue = f.LocationValue
	}

	params.ClanFamilyID = f.ClanFamilyID

	// Subclan only applies when a clan family is set and the subclan
	// actually belongs to it; otherwise it is ignored, not an error.
	if f.SubclanID != "" && f.ClanFamilyID != "" {
		ok, err := s.profiles.SubclanBelongsTo(ctx, f.SubclanID, f.ClanFamilyID)
		if err != nil {
			return params, err
		}
		if ok {
			params.SubclanID = f.SubclanID
		}
	}

	return params, nil
}
