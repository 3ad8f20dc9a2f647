package ticket

import (
	"fmt"
	"sort"
	"strings"
	"time"

	vo "supportdesk/internal/domain/ticket/valueobjects"
)

const maxMessageLength = 10000

// Message is one entry of a ticket's conversation. Its id is the store key assigned on
// append, which also breaks ties between messages with the same millisecond timestamp.
type Message struct {
	id         string
	ticketID   string
	text       string
	imageURL   string
	senderID   string
	senderName string
	senderType vo.SenderType
	timestamp  time.Time
}

func NewMessage(
	ticketID string,
	senderID string,
	senderName string,
	senderType vo.SenderType,
	text string,
	imageURL string,
	now time.Time,
) (*Message, error) {
	if ticketID == "" {
		return nil, fmt.Errorf("ticket ID is required")
	}
	if senderType == "" {
		return nil, fmt.Errorf("sender type is required")
	}
	if !senderType.IsValid() {
		return nil, fmt.Errorf("invalid sender type: %s", senderType)
	}
	if strings.TrimSpace(text) == "" && strings.TrimSpace(imageURL) == "" {
		return nil, fmt.Errorf("message must have text or an image")
	}
	if len(text) > maxMessageLength {
		return nil, fmt.Errorf("text exceeds maximum length of %d characters", maxMessageLength)
	}

	return &Message{
		ticketID:   ticketID,
		text:       text,
		imageURL:   imageURL,
		senderID:   senderID,
		senderName: senderName,
		senderType: senderType,
		timestamp:  now.Truncate(time.Millisecond),
	}, nil
}

func ReconstructMessage(
	id string,
	ticketID string,
	text string,
	imageURL string,
	senderID string,
	senderName string,
	senderType vo.SenderType,
	timestamp time.Time,
) *Message {
	return &Message{
		id:         id,
		ticketID:   ticketID,
		text:       text,
		imageURL:   imageURL,
		senderID:   senderID,
		senderName: senderName,
		senderType: senderType,
		timestamp:  timestamp,
	}
}

func (m *Message) ID() string                { return m.id }
func (m *Message) TicketID() string          { return m.ticketID }
func (m *Message) Text() string              { return m.text }
func (m *Message) ImageURL() string          { return m.imageURL }
func (m *Message) SenderID() string          { return m.senderID }
func (m *Message) SenderName() string        { return m.senderName }
func (m *Message) SenderType() vo.SenderType { return m.senderType }
func (m *Message) Timestamp() time.Time      { return m.timestamp }

func (m *Message) SetID(id string) error {
	if m.id != "" {
		return fmt.Errorf("message ID is already set")
	}
	if id == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	m.id = id
	return nil
}

// SortMessages orders messages by timestamp, then by id.
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.timestamp.Equal(b.timestamp) {
			return a.timestamp.Before(b.timestamp)
		}
		return a.id < b.id
	})
}
