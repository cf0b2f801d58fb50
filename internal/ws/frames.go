package ws

import "wachat/internal/feed"

// Frame types exchanged on /ws.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameEvent        = "event"
	FrameError        = "error"
)

// ClientFrame is sent by clients. Subscribe frames carry the table, event
// and filter expression ("conversation_id=eq.<id>"); unsubscribe frames only
// carry the ref of an earlier subscribe.
type ClientFrame struct {
	Type   string `json:"type"`
	Ref    string `json:"ref"`
	Table  string `json:"table,omitempty"`
	Event  string `json:"event,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// ServerFrame is sent by the server.
type ServerFrame struct {
	Type    string      `json:"type"`
	Ref     string      `json:"ref,omitempty"`
	Event   *feed.Event `json:"event,omitempty"`
	Message string      `json:"message,omitempty"`
}
