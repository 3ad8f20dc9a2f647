package authorization

// Role separates support agents from the end users who own tickets.
type Role string

const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsAgent() bool {
	return r == RoleAgent
}

func (r Role) IsValid() bool {
	return r == RoleAgent || r == RoleUser
}

// SenderType is the message sender type written for this role.
func (r Role) SenderType() string {
	if r.IsAgent() {
		return "admin"
	}
	return "user"
}
