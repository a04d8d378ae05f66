package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Misikirayu/mate-finder/internal/models"
	"go.uber.org/zap"
)

type joinPayload struct {
	UserID int64 `json:"userId"`
}

type reactionPayload struct {
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
}

type seenPayload struct {
	SenderID int64 `json:"senderId"`
}

// handle processes one client event. Apart from join, every event requires a
// prior join and is relayed only to the rooms of the message participants.
func (c *Client) handle(ctx context.Context, messages messageLookup, incoming models.Event) {
	if incoming.Type == models.EventJoin {
		var req joinPayload
		if err := json.Unmarshal(incoming.Data, &req); err != nil || req.UserID <= 0 {
			c.writeError("invalid join payload")
			return
		}
		if err := c.hub.Join(c, req.UserID); err != nil {
			c.writeError(err.Error())
			return
		}
		c.joined = true
		return
	}

	if !c.joined {
		c.writeError("join a room first")
		return
	}

	switch incoming.Type {
	case models.EventSendMessage:
		var message models.Message
		if err := json.Unmarshal(incoming.Data, &message); err != nil || message.ReceiverID <= 0 {
			c.writeError("invalid message payload")
			return
		}
		if message.SenderID != c.userID {
			c.writeError("cannot relay a message sent by another user")
			return
		}
		c.relay(ctx, models.EventReceiveMessage, message, message.SenderID, message.ReceiverID)

	case models.EventMessageReaction:
		var req reactionPayload
		if err := json.Unmarshal(incoming.Data, &req); err != nil || req.MessageID <= 0 || strings.TrimSpace(req.Reaction) == "" {
			c.writeError("invalid reaction payload")
			return
		}
		if messages == nil {
			c.writeError("reactions are not available")
			return
		}
		message, err := messages.GetMessage(ctx, req.MessageID)
		if err != nil {
			c.writeError("message not found")
			return
		}
		if !message.Involves(c.userID) {
			c.writeError("not a participant of this conversation")
			return
		}
		c.relay(ctx, models.EventMessageReaction, models.ReactionEvent{
			MessageID: req.MessageID,
			Reaction:  req.Reaction,
		}, message.SenderID, message.ReceiverID)

	case models.EventMessagesSeen:
		var req seenPayload
		if err := json.Unmarshal(incoming.Data, &req); err != nil || req.SenderID <= 0 {
			c.writeError("invalid seen payload")
			return
		}
		c.relay(ctx, models.EventMessagesSeen, models.SeenEvent{ReaderID: c.userID, SenderID: req.SenderID}, req.SenderID)

	default:
		c.writeError("unsupported message type")
	}
}

func (c *Client) relay(ctx context.Context, eventType string, data any, userIDs ...int64) {
	event, err := models.NewEvent(eventType, data)
	if err != nil {
		c.writeError("invalid message payload")
		return
	}
	if err := c.hub.Publish(ctx, event, userIDs...); err != nil && !errors.Is(err, ErrHubStopped) {
		c.hub.logger.Warn("relay client event", zap.String("type", eventType), zap.Error(err))
	}
}
