package interest

import (
	"context"
	"fmt"
	"time"

	"github.com/heelo-app/heelo-server/internal/app"
	"github.com/heelo-app/heelo-server/internal/db"
	apperr "github.com/heelo-app/heelo-server/internal/errors"
	"github.com/heelo-app/heelo-server/internal/repository"
)

// NotificationSink receives the notifications this ledger causes.
type NotificationSink interface {
	NotifyHelloReceived(ctx context.Context, targetProfileID, relatedProfileID string) error
}

// Service is the interest ledger: it records one-directional hello/ignore
// actions with at-most-one-row-per-ordered-pair semantics. Repeating an
// action is a reported no-op success, not an error; users double-tap.
type Service struct {
	appCtx    *app.AppContext
	profiles  *repository.ProfileRepository
	interests *repository.InterestRepository
	sink      NotificationSink
}

// NewService creates the ledger from AppContext and a notification sink.
func NewService(appCtx *app.AppContext, sink NotificationSink) *Service {
	return &Service{
		appCtx:    appCtx,
		profiles:  repository.NewProfileRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
		sink:      sink,
	}
}

// RecordResult reports the persisted action and whether this call created
// it. Callers use Created to decide whether to go on and check mutuality.
type RecordResult struct {
	Action  *db.InterestAction
	Created bool
}

// RecordAction records a hello or ignore from sender to receiver.
//
// Behavior:
//   - If an action for the ordered pair already exists, the call succeeds
//     and returns the existing record with Created=false.
//   - Otherwise the row is inserted; a created hello also emits a
//     helloReceived notification to the receiver.
func (s *Service) RecordAction(ctx context.Context, senderID, receiverID, kind string) (*RecordResult, error) {
	if kind != db.KindHello && kind != db.KindIgnore {
		return nil, fmt.Errorf("%w: kind must be hello or ignore", apperr.ErrInvalidArgument)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot act on your own profile", apperr.ErrInvalidArgument)
	}

	if _, err := s.profiles.GetByID(ctx, senderID); err != nil {
		return nil, err
	}
	if _, err := s.profiles.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	status := db.StatusPending
	if kind == db.KindIgnore {
		status = db.StatusIgnored
	}

	action, created, err := s.interests.InsertIfAbsent(ctx, &db.InterestAction{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Kind:       kind,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if created && kind == db.KindHello {
		if err := s.sink.NotifyHelloReceived(ctx, receiverID, senderID); err != nil {
			// The action row committed; delivery is async downstream anyway.
			s.appCtx.Logger.Warn("failed to record helloReceived notification",
				"sender", senderID, "receiver", receiverID, "err", err)
		}
	}

	s.appCtx.Logger.Debug("interest action recorded",
		"sender", senderID, "receiver", receiverID, "kind", kind, "created", created)

	return &RecordResult{Action: action, Created: created}, nil
}

// PendingHello is a pending received hello with the sender attached.
type PendingHello struct {
	Action db.InterestAction `json:"action"`
	Sender *db.Profile       `json:"sender,omitempty"`
}

// ListPending returns the hellos awaiting the receiver's response, newest
// first, enriched with sender profiles.
func (s *Service) ListPending(ctx context.Context, receiverID string) ([]PendingHello, error) {
	actions, err := s.interests.ListPendingForReceiver(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]string, 0, len(actions))
	for _, a := range actions {
		senderIDs = append(senderIDs, a.SenderID)
	}
	senders, err := s.profiles.GetManyByID(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	result := make([]PendingHello, 0, len(actions))
	for _, a := range actions {
		entry := PendingHello{Action: a}
		if sender, ok := senders[a.SenderID]; ok {
			p := sender
			entry.Sender = &p
		}
		result = append(result, entry)
	}
	return result, nil
}

// DismissHello marks a pending received hello as ignored so the sender is
// never re-surfaced. Dismissing an action that already settled is a no-op
// success returning the settled row.
func (s *Service) DismissHello(ctx context.Context, helloID, dismisserID string) (*db.InterestAction, error) {
	action, err := s.interests.GetByID(ctx, helloID)
	if err != nil {
		return nil, err
	}
	if action.ReceiverID != dismisserID {
		return nil, fmt.Errorf("%w: action does not target this profile", apperr.ErrNotAuthorized)
	}
	if action.Kind != db.KindHello {
		return nil, fmt.Errorf("%w: only hellos can be dismissed", apperr.ErrInvalidArgument)
	}

	transitioned, err := s.interests.MarkResponded(ctx, helloID, db.StatusIgnored, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if transitioned {
		return s.interests.GetByID(ctx, helloID)
	}
	return action, nil
}
