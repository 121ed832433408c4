package profile

import (
	"context"
	"fmt"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/repository"
)

// RequiredPhotoCount is how many photo references a complete profile carries.
const RequiredPhotoCount = 4

// Input carries the owner-mutable profile fields. Partial profiles are a
// first-class state; completeness is derived, never asserted by the caller.
type Input struct {
	DisplayName      string   `json:"display_name"`
	Age              int      `json:"age"`
	Bio              string   `json:"bio"`
	PhotoRefs        []string `json:"photo_refs"`
	LocationCategory string   `json:"location_category"`
	LocationValue    string   `json:"location_value"`
	ClanFamilyID     *string  `json:"clan_family_id"`
	SubclanID        *string  `json:"subclan_id"`
}

// Service manages profiles and the clan lookup tables.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

// NewService creates the profile service from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// Get retrieves a profile by id.
func (s *Service) Get(ctx context.Context, id string) (*db.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// Create inserts a new profile for an identity's first login.
func (s *Service) Create(ctx context.Context, in Input) (*db.Profile, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	p := &db.Profile{}
	apply(p, in)
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("profile created", "profile", p.ID, "complete", p.IsComplete)
	return p, nil
}

// Update mutates a profile. Only the owning user reaches this path; the
// caller identity check happens at the transport layer.
func (s *Service) Update(ctx context.Context, id string, in Input) (*db.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	apply(p, in)
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListClanFamilies returns the clan family lookup table.
func (s *Service) ListClanFamilies(ctx context.Context) ([]db.ClanFamily, error) {
	return s.profiles.ListClanFamilies(ctx)
}

// ListSubclans returns the subclans of one clan family.
func (s *Service) ListSubclans(ctx context.Context, clanFamilyID string) ([]db.Subclan, error) {
	return s.profiles.ListSubclans(ctx, clanFamilyID)
}

func (s *Service) validate(ctx context.Context, in Input) error {
	if in.Age != 0 && in.Age < 18 {
		return fmt.Errorf("%w: age must be at least 18", apperr.ErrInvalidArgument)
	}
	if len(in.PhotoRefs) > RequiredPhotoCount {
		return fmt.Errorf("%w: at most %d photos", apperr.ErrInvalidArgument, RequiredPhotoCount)
	}
	if in.LocationCategory != "" &&
		in.LocationCategory != db.LocationHomeRegion &&
		in.LocationCategory != db.LocationDiaspora {
		return fmt.Errorf("%w: unknown location category %q", apperr.ErrInvalidArgument, in.LocationCategory)
	}
	if in.SubclanID != nil {
		if in.ClanFamilyID == nil {
			return fmt.Errorf("%w: subclan requires a clan family", apperr.ErrInvalidArgument)
		}
		ok, err := s.profiles.SubclanBelongsTo(ctx, *in.SubclanID, *in.ClanFamilyID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: subclan does not belong to the clan family", apperr.ErrInvalidArgument)
		}
	}
	return nil
}

func apply(p *db.Profile, in Input) {
	p.DisplayName = in.DisplayName
	p.Age = in.Age
	p.Bio = in.Bio
	p.PhotoRefs = in.PhotoRefs
	p.LocationCategory = in.LocationCategory
	p.LocationValue = in.LocationValue
	p.ClanFamilyID = in.ClanFamilyID
	p.SubclanID = in.SubclanID
	p.IsComplete = deriveComplete(p)
}

// deriveComplete computes the stored completeness flag: display name, adult
// age, a location, a clan family and exactly four photos.
func deriveComplete(p *db.Profile) bool {
	return p.DisplayName != "" &&
		p.Age >= 18 &&
		len(p.PhotoRefs) == RequiredPhotoCount &&
		(p.LocationCategory == db.LocationHomeRegion || p.LocationCategory == db.LocationDiaspora) &&
		p.LocationValue != "" &&
		p.ClanFamilyID != nil
}
