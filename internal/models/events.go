package models

import "time"

// WireTimestampLayout formats server timestamps on the websocket wire with
// microsecond precision.
const WireTimestampLayout = "2006-01-02 15:04:05.000000"

// MessageEvent is sent to every connection of a chat after a message commits.
// Timestamp is the committed value, not the delivery time.
type MessageEvent struct {
	Username  string `json:"username"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	ChatName  string `json:"chat_name"`
	Timestamp string `json:"timestamp"`
}

// PresenceEvent lists the usernames currently online.
type PresenceEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// NewPresenceEvent builds the presence frame.
func NewPresenceEvent(users []string) PresenceEvent {
	return PresenceEvent{Type: "online_users", Users: users}
}

// FormatWireTimestamp renders a server timestamp for the wire.
func FormatWireTimestamp(ts time.Time) string {
	return ts.UTC().Format(WireTimestampLayout)
}
