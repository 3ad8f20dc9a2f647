package valueobjects

import "fmt"

// SenderType tells whether a message was written by the ticket owner or by an agent.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

func (s SenderType) String() string {
	return string(s)
}

func (s SenderType) IsValid() bool {
	return s == SenderUser || s == SenderAdmin
}

func (s SenderType) IsUser() bool {
	return s == SenderUser
}

func (s SenderType) IsAdmin() bool {
	return s == SenderAdmin
}

func NewSenderType(s string) (SenderType, error) {
	st := SenderType(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid sender type: %s", s)
	}
	return st, nil
}
