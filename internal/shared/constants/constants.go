package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderContentType = "Content-Type"
	HeaderXRequestID  = "X-Request-ID"
	HeaderAgentID     = "X-Agent-ID"
	HeaderAgentName   = "X-Agent-Name"
	HeaderUserID      = "X-User-ID"
	HeaderUserName    = "X-User-Name"
	HeaderUserEmail   = "X-User-Email"

	ContentTypeJSON = "application/json"
	ContentTypeSSE  = "text/event-stream"

	APIVersionPrefix = "/api/v1"

	// Context keys
	ContextKeyIdentity  = "identity"
	ContextKeyRequestID = "request_id"
)
