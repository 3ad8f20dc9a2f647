package ticket

import (
	"fmt"
	"strings"
	"time"

	vo "supportdesk/internal/domain/ticket/valueobjects"
)

const (
	maxSubjectLength     = 200
	maxDescriptionLength = 5000
)

type Ticket struct {
	id                   string
	userID               string
	userEmail            string
	userName             string
	subject              string
	description          string
	issueType            string
	imageURL             string
	status               vo.TicketStatus
	adminID              string
	timestamp            time.Time
	respondedAt          *time.Time
	hasUnreadUserMessage bool
	lastUserMessageAt    *time.Time
	lastReadAt           *time.Time
}

// StatusChange is the set of fields a status transition writes. Nil pointers and empty
// strings mean the field is left untouched.
type StatusChange struct {
	Previous    vo.TicketStatus
	Status      vo.TicketStatus
	AdminID     string
	RespondedAt *time.Time
}

// UnreadChange is the set of unread-tracking fields to write. A nil LastUserMessageAt
// removes the field; a nil LastReadAt leaves it untouched. A ReadOnly change writes
// LastReadAt alone.
type UnreadChange struct {
	HasUnread         bool
	LastUserMessageAt *time.Time
	LastReadAt        *time.Time
	ReadOnly          bool
}

func NewTicket(
	userID string,
	userEmail string,
	userName string,
	subject string,
	description string,
	issueType string,
	imageURL string,
	now time.Time,
) (*Ticket, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if len(subject) > maxSubjectLength {
		return nil, fmt.Errorf("subject exceeds maximum length of %d characters", maxSubjectLength)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("description is required")
	}
	if len(description) > maxDescriptionLength {
		return nil, fmt.Errorf("description exceeds maximum length of %d characters", maxDescriptionLength)
	}

	return &Ticket{
		userID:      userID,
		userEmail:   userEmail,
		userName:    userName,
		subject:     subject,
		description: description,
		issueType:   issueType,
		imageURL:    imageURL,
		status:      vo.StatusPending,
		timestamp:   now.Truncate(time.Millisecond),
	}, nil
}

func ReconstructTicket(
	id string,
	userID string,
	userEmail string,
	userName string,
	subject string,
	description string,
	issueType string,
	imageURL string,
	status vo.TicketStatus,
	adminID string,
	timestamp time.Time,
	respondedAt *time.Time,
	hasUnreadUserMessage bool,
	lastUserMessageAt *time.Time,
	lastReadAt *time.Time,
) (*Ticket, error) {
	if id == "" {
		return nil, fmt.Errorf("ticket ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	return &Ticket{
		id:                   id,
		userID:               userID,
		userEmail:            userEmail,
		userName:             userName,
		subject:              subject,
		description:          description,
		issueType:            issueType,
		imageURL:             imageURL,
		status:               status,
		adminID:              adminID,
		timestamp:            timestamp,
		respondedAt:          respondedAt,
		hasUnreadUserMessage: hasUnreadUserMessage,
		lastUserMessageAt:    lastUserMessageAt,
		lastReadAt:           lastReadAt,
	}, nil
}

func (t *Ticket) ID() string                    { return t.id }
func (t *Ticket) UserID() string                { return t.userID }
func (t *Ticket) UserEmail() string             { return t.userEmail }
func (t *Ticket) UserName() string              { return t.userName }
func (t *Ticket) Subject() string               { return t.subject }
func (t *Ticket) Description() string           { return t.description }
func (t *Ticket) IssueType() string             { return t.issueType }
func (t *Ticket) ImageURL() string              { return t.imageURL }
func (t *Ticket) Status() vo.TicketStatus       { return t.status }
func (t *Ticket) AdminID() string               { return t.adminID }
func (t *Ticket) Timestamp() time.Time          { return t.timestamp }
func (t *Ticket) RespondedAt() *time.Time       { return t.respondedAt }
func (t *Ticket) HasUnreadUserMessage() bool    { return t.hasUnreadUserMessage }
func (t *Ticket) LastUserMessageAt() *time.Time { return t.lastUserMessageAt }
func (t *Ticket) LastReadAt() *time.Time        { return t.lastReadAt }

func (t *Ticket) SetID(id string) error {
	if t.id != "" {
		return fmt.Errorf("ticket ID is already set")
	}
	if id == "" {
		return fmt.Errorf("ticket ID cannot be empty")
	}
	t.id = id
	return nil
}

// ChangeStatus applies an explicit agent transition. Any status may move to any other.
// Resolving stamps respondedAt the first time only. The acting agent is recorded as
// adminID, except that pending -> in_progress and same-status calls only fill an empty adminID.
func (t *Ticket) ChangeStatus(newStatus vo.TicketStatus, agentID string, now time.Time) (StatusChange, error) {
	if !newStatus.IsValid() {
		return StatusChange{}, fmt.Errorf("invalid status: %s", newStatus)
	}

	change := StatusChange{Previous: t.status, Status: newStatus}

	if agentID != "" {
		fillOnly := newStatus == t.status || (t.status.IsPending() && newStatus.IsInProgress())
		if !fillOnly || t.adminID == "" {
			change.AdminID = agentID
		}
	}

	if newStatus.IsResolved() && t.respondedAt == nil {
		at := now.Truncate(time.Millisecond)
		change.RespondedAt = &at
	}

	t.apply(change)
	return change, nil
}

// AutoStartProgress is the implicit pending -> in_progress transition fired by the first
// agent message. It reports false when the ticket is not pending. An adminID already
// present on t is kept.
func (t *Ticket) AutoStartProgress(agentID string) (StatusChange, bool) {
	if !t.status.IsPending() {
		return StatusChange{}, false
	}

	change := StatusChange{Previous: t.status, Status: vo.StatusInProgress}
	if t.adminID == "" {
		change.AdminID = agentID
	}

	t.apply(change)
	return change, true
}

func (t *Ticket) apply(change StatusChange) {
	t.status = change.Status
	if change.AdminID != "" {
		t.adminID = change.AdminID
	}
	if change.RespondedAt != nil {
		t.respondedAt = change.RespondedAt
	}
}

// MarkUnread flags the ticket as having an unread user message written at at.
// The latest call wins on the timestamp.
func (t *Ticket) MarkUnread(at time.Time) UnreadChange {
	at = at.Truncate(time.Millisecond)
	change := UnreadChange{HasUnread: true, LastUserMessageAt: &at}
	t.applyUnread(change)
	return change
}

// ClearUnread records that an agent opened the conversation at now. lastReadAt is
// stamped on every open; it reports false when the flag was already clear, in which
// case the returned change is ReadOnly.
func (t *Ticket) ClearUnread(now time.Time) (UnreadChange, bool) {
	readAt := now.Truncate(time.Millisecond)
	cleared := t.hasUnreadUserMessage || t.lastUserMessageAt != nil

	change := UnreadChange{HasUnread: false, LastReadAt: &readAt, ReadOnly: !cleared}
	t.applyUnread(change)
	return change, cleared
}

// RecomputeUnread derives the unread flag from the message log: the ticket is unread
// when a user message is newer than the last time an agent opened it.
func (t *Ticket) RecomputeUnread(messages []*Message) UnreadChange {
	var newest *time.Time
	for _, m := range messages {
		if !m.SenderType().IsUser() {
			continue
		}
		ts := m.Timestamp()
		if t.lastReadAt != nil && !ts.After(*t.lastReadAt) {
			continue
		}
		if newest == nil || ts.After(*newest) {
			newest = &ts
		}
	}

	change := UnreadChange{HasUnread: newest != nil, LastUserMessageAt: newest}
	t.applyUnread(change)
	return change
}

func (t *Ticket) applyUnread(change UnreadChange) {
	if change.LastReadAt != nil {
		t.lastReadAt = change.LastReadAt
	}
	if change.ReadOnly {
		return
	}
	t.hasUnreadUserMessage = change.HasUnread
	t.lastUserMessageAt = change.LastUserMessageAt
}
