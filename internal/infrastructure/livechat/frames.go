package livechat

const (
	frameHeartbeat = "heartbeat"
	frameText      = "text"

	senderUser   = "user"
	senderBot    = "bot"
	senderSystem = "system"
)

type heartbeatFrame struct {
	Type string `json:"type"`
}

// textFrame is a user message sent over the live channel.
type textFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Language  string `json:"language,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// inboundFrame covers bot replies ({sender:"bot", message}) and server errors
// ({sender:"system", error}). Servers that predate correlation ids omit
// request_id.
type inboundFrame struct {
	Type      string  `json:"type,omitempty"`
	Sender    string  `json:"sender"`
	Message   *string `json:"message,omitempty"`
	Error     *string `json:"error,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}
