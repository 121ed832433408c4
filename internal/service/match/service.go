package match

import (
	"context"
	"fmt"
	"time"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/repository"
)

// NotificationSink receives the notifications the engine causes.
type NotificationSink interface {
	NotifyHelloAccepted(ctx context.Context, targetProfileID, relatedProfileID string) error
}

// Bootstrap seeds the conversation side effects of a freshly accepted match.
type Bootstrap interface {
	SeedAcceptanceGreeting(ctx context.Context, match *db.Match, accepterID string) (*db.Message, error)
}

// Service is the match engine. Its two triggers, mutual hellos and direct
// accept, converge on the same idempotent insert-if-absent match creation
// keyed on the canonical (low, high) pair.
type Service struct {
	appCtx    *app.AppContext
	profiles  *repository.ProfileRepository
	interests *repository.InterestRepository
	matches   *repository.MatchRepository
	sink      NotificationSink
	bootstrap Bootstrap
}

// NewService creates the engine from AppContext and its collaborators.
func NewService(appCtx *app.AppContext, sink NotificationSink, bootstrap Bootstrap) *Service {
	return &Service{
		appCtx:    appCtx,
		profiles:  repository.NewProfileRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
		matches:   repository.NewMatchRepository(appCtx.DB),
		sink:      sink,
		bootstrap: bootstrap,
	}
}

// TryFormMutualMatch checks whether non-ignored hellos exist in both
// directions and, if so, creates the canonical match unless one exists.
// Returns nil without error when mutuality does not hold. Safe to call from
// both sides of a race: at most one row results.
func (s *Service) TryFormMutualMatch(ctx context.Context, profileA, profileB string) (*db.Match, error) {
	if profileA == profileB {
		return nil, fmt.Errorf("%w: a profile cannot match itself", apperr.ErrInvalidArgument)
	}

	aToB, err := s.interests.HasHello(ctx, profileA, profileB)
	if err != nil {
		return nil, err
	}
	if !aToB {
		return nil, nil
	}
	bToA, err := s.interests.HasHello(ctx, profileB, profileA)
	if err != nil {
		return nil, err
	}
	if !bToA {
		return nil, nil
	}

	m, created, err := s.matches.InsertIfAbsent(ctx, profileA, profileB)
	if err != nil {
		return nil, err
	}
	if created {
		s.appCtx.Logger.Info("mutual match formed", "match", m.ID, "low", m.UserLowID, "high", m.UserHighID)
	}
	return m, nil
}

// AcceptHello accepts a pending received hello and unconditionally forms
// the match; acceptance alone is sufficient, independent of reciprocation.
//
// Behavior:
//   - The hello transitions pending→accepted with responded_at stamped;
//     only the first accept observes that transition, so retries are
//     idempotent and return the same match without re-notifying.
//   - The original sender gets a helloAccepted notification on the first
//     accept, and the conversation thread is seeded with its greeting.
func (s *Service) AcceptHello(ctx context.Context, helloID, accepterID string) (*db.Match, error) {
	action, err := s.interests.GetByID(ctx, helloID)
	if err != nil {
		return nil, err
	}
	if action.ReceiverID != accepterID {
		return nil, fmt.Errorf("%w: action does not target this profile", apperr.ErrNotAuthorized)
	}
	if action.Kind != db.KindHello {
		return nil, fmt.Errorf("%w: only hellos can be accepted", apperr.ErrInvalidArgument)
	}

	// The match and greeting are idempotent inserts, so they run first; the
	// status transition commits last. A failure partway leaves the hello
	// pending and a retry re-runs the whole flow, so the notification gated
	// on the transition cannot be lost to an earlier error.
	m, _, err := s.matches.InsertIfAbsent(ctx, action.SenderID, accepterID)
	if err != nil {
		return nil, err
	}

	if _, err := s.bootstrap.SeedAcceptanceGreeting(ctx, m, accepterID); err != nil {
		return nil, err
	}

	transitioned, err := s.interests.MarkResponded(ctx, helloID, db.StatusAccepted, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if transitioned {
		if err := s.sink.NotifyHelloAccepted(ctx, action.SenderID, accepterID); err != nil {
			s.appCtx.Logger.Warn("failed to record helloAccepted notification",
				"sender", action.SenderID, "accepter", accepterID, "err", err)
		}
		s.appCtx.Logger.Info("hello accepted", "hello", helloID, "match", m.ID)
	}

	return m, nil
}

// MatchWithProfile pairs a match with the counterpart profile for listing.
type MatchWithProfile struct {
	Match       db.Match    `json:"match"`
	Counterpart *db.Profile `json:"counterpart,omitempty"`
}

// ListMatches returns a profile's matches, newest first, with the other
// participant attached.
func (s *Service) ListMatches(ctx context.Context, profileID string) ([]MatchWithProfile, error) {
	matches, err := s.matches.ListForProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	counterpartIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		counterpartIDs = append(counterpartIDs, counterpartOf(m, profileID))
	}
	counterparts, err := s.profiles.GetManyByID(ctx, counterpartIDs)
	if err != nil {
		return nil, err
	}

	result := make([]MatchWithProfile, 0, len(matches))
	for _, m := range matches {
		entry := MatchWithProfile{Match: m}
		if p, ok := counterparts[counterpartOf(m, profileID)]; ok {
			cp := p
			entry.Counterpart = &cp
		}
		result = append(result, entry)
	}
	return result, nil
}

func counterpartOf(m db.Match, profileID string) string {
	if m.UserLowID == profileID {
		return m.UserHighID
	}
	return m.UserLowID
}
