package hub

import (
	"encoding/json"
	"time"

	"github.com/johnrmarty/chat-prd/internal/types"
)

// ClientEvent is the inbound envelope from a connection. Exactly one event
// field is set per envelope; the JSON key is the wire event name.
type ClientEvent struct {
	Join       *JoinProject       `json:"join-project,omitempty"`
	Message    *NewMessage        `json:"new-message,omitempty"`
	Generating *GeneratingContent `json:"generating-content,omitempty"`
	Generated  *ContentGenerated  `json:"content-generated,omitempty"`
	Typing     *Typing            `json:"typing,omitempty"`
	Leave      *LeaveProject      `json:"leave-project,omitempty"`

	client *Client
}

// projectId returns the project the event targets, "" when the set event
// carries none.
func (ev *ClientEvent) projectId() string {
	switch {
	case ev.Join != nil:
		return ev.Join.ProjectId
	case ev.Message != nil:
		return ev.Message.ProjectId
	case ev.Generating != nil:
		return ev.Generating.ProjectId
	case ev.Generated != nil:
		return ev.Generated.ProjectId
	case ev.Typing != nil:
		return ev.Typing.ProjectId
	case ev.Leave != nil:
		return ev.Leave.ProjectId
	}

	return ""
}

type JoinProject struct {
	ProjectId string `json:"projectId"`
	SessionId string `json:"sessionId"`
	UserId    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
}

type NewMessage struct {
	ProjectId string          `json:"projectId"`
	Message   json.RawMessage `json:"message"`
}

type GeneratingContent struct {
	ProjectId   string `json:"projectId"`
	ContentType string `json:"contentType"`
}

type ContentGenerated struct {
	ProjectId   string `json:"projectId"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type Typing struct {
	ProjectId string `json:"projectId"`
	IsTyping  bool   `json:"isTyping"`
}

type LeaveProject struct {
	ProjectId string `json:"projectId"`
}

// ServerEvent is the outbound envelope broadcast to room members. SkipClient
// excludes the originating connection, which is how presence and typing
// signals avoid echoing back to their sender. Chat and content-generation
// events leave it nil: the sender renders the hub's normalized copy, not its
// own optimistic state.
type ServerEvent struct {
	Timestamp           time.Time            `json:"timestamp"`
	ActiveUsers         []types.Session      `json:"active-users-updated,omitempty"`
	Message             *types.Message       `json:"message-received,omitempty"`
	GenerationStarted   *GenerationStarted   `json:"content-generation-started,omitempty"`
	GenerationCompleted *GenerationCompleted `json:"content-generation-completed,omitempty"`
	UserTyping          *UserTyping          `json:"user-typing,omitempty"`

	SkipClient *Client `json:"-"`
}

type GenerationStarted struct {
	ContentType string `json:"contentType"`
	UserId      string `json:"userId"`
}

type GenerationCompleted struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
	GeneratedBy string `json:"generatedBy"`
}

type UserTyping struct {
	UserId   string `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

// IsoNow returns the hub clock as an ISO-8601 string, the format used for
// normalized message timestamps.
func IsoNow() string {
	return Now().Format(time.RFC3339Nano)
}
