package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location categories a profile can declare.
const (
	LocationHomeRegion = "somalia"
	LocationDiaspora   = "diaspora"
)

// Kinds of interest actions.
const (
	KindHello  = "hello"
	KindIgnore = "ignore"
)

// Interest action statuses. Ignore-kind rows are created already ignored;
// hello-kind rows start pending and move to accepted or ignored when the
// receiver responds.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
)

// Message kinds.
const (
	MessageText   = "text"
	MessageSystem = "system"
)

// SystemSenderID is the sentinel sender for bootstrap messages.
const SystemSenderID = "system"

// Notification kinds.
const (
	NotifHelloReceived = "hello_received"
	NotifHelloAccepted = "hello_accepted"
)

// ClanFamily is a top-level qabiil lookup entry.
type ClanFamily struct {
	ID   string `gorm:"primaryKey;size:36"`
	Name string `gorm:"uniqueIndex;size:64;not null"`
}

// Subclan belongs to exactly one clan family.
type Subclan struct {
	ID           string `gorm:"primaryKey;size:36"`
	ClanFamilyID string `gorm:"size:36;not null;index"`
	Name         string `gorm:"size:64;not null"`
}

// Profile is a participant. The ID is our own stable identifier, distinct
// from whatever the external identity provider uses.
type Profile struct {
	ID               string   `gorm:"primaryKey;size:36"`
	DisplayName      string   `gorm:"size:64;not null"`
	Age              int      `gorm:"not null"`
	Bio              string   `gorm:"type:text"`
	PhotoRefs        []string `gorm:"serializer:json"`
	LocationCategory string   `gorm:"size:16;not null;index"`
	LocationValue    string   `gorm:"size:128"`
	ClanFamilyID     *string  `gorm:"size:36;index"`
	SubclanID        *string  `gorm:"size:36"`
	IsComplete       bool     `gorm:"not null;default:false;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InterestAction is a directed edge recording a single hello/ignore for an
// ordered (sender, receiver) pair.
//
// Unique index idx_interest_pair(sender_id, receiver_id) enforces at most one
// row per ordered pair; a repeated action is a suppressed no-op, handled by a
// conditional insert against this index.
type InterestAction struct {
	ID          string `gorm:"primaryKey;size:36"`
	SenderID    string `gorm:"size:36;not null;uniqueIndex:idx_interest_pair,priority:1"`
	ReceiverID  string `gorm:"size:36;not null;uniqueIndex:idx_interest_pair,priority:2;index:idx_receiver_status"`
	Kind        string `gorm:"size:16;not null"`
	Status      string `gorm:"size:16;not null;index:idx_receiver_status"`
	CreatedAt   time.Time
	RespondedAt *time.Time
}

// Match is an undirected relationship between two profiles. The pair is
// stored in canonical order (lower-sorting id first) so (A,B) and (B,A)
// normalize to the same row; idx_match_pair is the uniqueness key that
// makes concurrent creation converge on one row.
type Match struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserLowID  string `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:1;index"`
	UserHighID string `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2;index"`
	CreatedAt  time.Time
}

// ConversationThread is the single chat thread of a match, created lazily.
type ConversationThread struct {
	ID            string `gorm:"primaryKey;size:36"`
	MatchID       string `gorm:"size:36;not null;uniqueIndex"`
	LastMessageAt *time.Time
	CreatedAt     time.Time
}

// Message belongs to exactly one thread. SenderID is one of the match's two
// profiles, or SystemSenderID for bootstrap messages.
//
// DedupeKey is null for ordinary messages; the system greeting stores its
// thread id there, so the unique index caps each thread at one greeting the
// same way the pair indexes cap actions and matches.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ThreadID  string    `gorm:"size:36;not null;index:idx_message_thread,priority:1"`
	SenderID  string    `gorm:"size:36;not null"`
	Content   string    `gorm:"type:text;not null"`
	Kind      string    `gorm:"size:16;not null"`
	DedupeKey *string   `gorm:"size:36;uniqueIndex"`
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index:idx_message_thread,priority:2"`
}

// Notification informs a profile of an event it did not itself cause.
type Notification struct {
	ID               string `gorm:"primaryKey;size:36"`
	TargetProfileID  string `gorm:"size:36;not null;index:idx_notif_target"`
	Kind             string `gorm:"size:32;not null"`
	RelatedProfileID string `gorm:"size:36;not null"`
	IsRead           bool   `gorm:"not null;default:false;index:idx_notif_target,priority:2"`
	CreatedAt        time.Time
}

func (p *Profile) BeforeCreate(*gorm.DB) error            { ensureID(&p.ID); return nil }
func (a *InterestAction) BeforeCreate(*gorm.DB) error     { ensureID(&a.ID); return nil }
func (m *Match) BeforeCreate(*gorm.DB) error              { ensureID(&m.ID); return nil }
func (t *ConversationThread) BeforeCreate(*gorm.DB) error { ensureID(&t.ID); return nil }
func (m *Message) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error       { ensureID(&n.ID); return nil }

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
