package models

import "time"

type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	Seen       bool      `json:"seen"`
	Reaction   *string   `json:"reaction"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Involves reports whether userID is the sender or the receiver.
func (m *Message) Involves(userID int64) bool {
	return m != nil && (m.SenderID == userID || m.ReceiverID == userID)
}

// UnreadCounts maps sender id to the number of unseen messages that sender
// has addressed to one receiver.
type UnreadCounts map[int64]int
