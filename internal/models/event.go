package models

import "encoding/json"

const (
	EventJoin            = "join"
	EventJoined          = "joined"
	EventSendMessage     = "send-message"
	EventReceiveMessage  = "receive-message"
	EventMessageReaction = "message-reaction"
	EventMessagesSeen    = "messages-seen"
	EventError           = "error"
)

// Event is the envelope exchanged over the realtime channel.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEvent(eventType string, data any) (Event, error) {
	if data == nil {
		return Event{Type: eventType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw}, nil
}

type ReactionEvent struct {
	MessageID int64    `json:"messageId"`
	Reaction  string   `json:"reaction"`
	Message   *Message `json:"message,omitempty"`
}

type SeenEvent struct {
	ReaderID int64 `json:"readerId"`
	SenderID int64 `json:"senderId"`
}
