package notify

// MessageType identifies a user-facing notification
type MessageType int

const (
	MsgConnecting MessageType = iota
	MsgSessionStarted
	MsgSessionEnded
	MsgSessionError
	MsgPlaybackDegraded
	MsgConfigReloaded
)

// MessageDef ties a message to its config key and default text
type MessageDef struct {
	Type         MessageType
	ConfigKey    string // key under [notifications.messages]
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{MsgConnecting, "connecting", "Hyprlive", "Connecting...", false},
	{MsgSessionStarted, "session_started", "Hyprlive", "Listening - start talking", false},
	{MsgSessionEnded, "session_ended", "Hyprlive", "Conversation ended", false},
	{MsgSessionError, "session_error", "Hyprlive Error", "Conversation stopped", true},
	{MsgPlaybackDegraded, "playback_degraded", "Hyprlive", "No audio output - transcript only", true},
	{MsgConfigReloaded, "config_reloaded", "Hyprlive", "Config Reloaded", false},
}

// Message is a resolved notification ready to send
type Message struct {
	Title   string
	Body    string
	IsError bool
}

// WithDetail returns a copy of m with detail appended on its own line.
func (m Message) WithDetail(detail string) Message {
	if detail == "" {
		return m
	}
	if m.Body == "" {
		m.Body = detail
	} else {
		m.Body = m.Body + "\n" + detail
	}
	return m
}
