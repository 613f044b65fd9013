package hub

import (
	"encoding/json"

	"github.com/johnrmarty/chat-prd/internal/types"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleUnknown   = "unknown"
)

var knownRoles = map[string]struct{}{
	RoleUser:      {},
	RoleAssistant: {},
	RoleSystem:    {},
	RoleUnknown:   {},
}

type structuredSender struct {
	Username string `json:"username"`
	UserId   string `json:"userId"`
}

// Normalize converts an arbitrary inbound message payload into the canonical
// Message shape. It never fails: malformed fields degrade to defaults so one
// bad client payload cannot abort a broadcast for the rest of the room.
//
// Sender resolution order:
//  1. a senderName already present on the payload is kept verbatim, which
//     makes normalization idempotent
//  2. a plain-string sender field is used verbatim
//  3. a structured sender object yields username, then userId, then "Unknown"
//  4. with no sender information at all, the originating session's stored
//     username is used, then "User"
func Normalize(raw json.RawMessage, fallback types.Session) types.Message {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		fields = nil
	}

	msg := types.Message{
		Role:       stringField(fields, "role"),
		Content:    stringField(fields, "content"),
		Timestamp:  stringField(fields, "timestamp"),
		SenderName: stringField(fields, "senderName"),
	}

	if _, ok := knownRoles[msg.Role]; !ok {
		msg.Role = RoleUnknown
	}

	if msg.Timestamp == "" {
		msg.Timestamp = IsoNow()
	}

	if msg.SenderName == "" {
		msg.SenderName = resolveSenderName(fields["sender"], fallback)
	}

	return msg
}

func resolveSenderName(sender json.RawMessage, fallback types.Session) string {
	if len(sender) > 0 && string(sender) != "null" {
		var name string
		if err := json.Unmarshal(sender, &name); err == nil {
			return name
		}

		var structured structuredSender
		if err := json.Unmarshal(sender, &structured); err == nil {
			if structured.Username != "" {
				return structured.Username
			}
			if structured.UserId != "" {
				return structured.UserId
			}
			return "Unknown"
		}
	}

	if fallback.Username != "" {
		return fallback.Username
	}

	return "User"
}

// stringField extracts a string value from a decoded JSON object, returning
// "" when the field is absent or not a string.
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}
