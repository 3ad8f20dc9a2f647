package models

// Store paths.
const (
	TicketsPath  = "tickets"
	MessagesPath = "messages"
)

// Ticket record field names, as written to the store.
const (
	FieldStatus               = "status"
	FieldAdminID              = "adminId"
	FieldRespondedAt          = "respondedAt"
	FieldHasUnreadUserMessage = "hasUnreadUserMessage"
	FieldLastUserMessageAt    = "lastUserMessageAt"
	FieldLastReadAt           = "lastReadAt"
)

// TicketModel is the record stored at tickets/{id}. Times are unix milliseconds.
// The id is the record's key and is not repeated inside the record.
type TicketModel struct {
	ID                   string `json:"-"`
	UserID               string `json:"userId"`
	UserEmail            string `json:"userEmail"`
	UserName             string `json:"userName"`
	Subject              string `json:"subject"`
	Description          string `json:"description"`
	IssueType            string `json:"issueType"`
	ImageURL             string `json:"imageUrl,omitempty"`
	Status               string `json:"status"`
	AdminID              string `json:"adminId,omitempty"`
	Timestamp            int64  `json:"timestamp"`
	RespondedAt          *int64 `json:"respondedAt,omitempty"`
	HasUnreadUserMessage bool   `json:"hasUnreadUserMessage"`
	LastUserMessageAt    *int64 `json:"lastUserMessageAt,omitempty"`
	LastReadAt           *int64 `json:"lastReadAt,omitempty"`
}

// MessageModel is the record stored at messages/{ticketId}/{messageId}.
type MessageModel struct {
	ID         string `json:"-"`
	TicketID   string `json:"ticketId"`
	Text       string `json:"text,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	SenderType string `json:"senderType"`
	Timestamp  int64  `json:"timestamp"`
}
