package services

import (
	"context"
	"strings"

	"github.com/Misikirayu/mate-finder/internal/models"
	"go.uber.org/zap"
)

type messageStore interface {
	Create(ctx context.Context, senderID int64, receiverID int64, content string) (*models.Message, error)
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	ListConversation(ctx context.Context, userA int64, userB int64) ([]models.Message, error)
	MarkSeen(ctx context.Context, senderID int64, receiverID int64) (int64, error)
	UnreadCounts(ctx context.Context, receiverID int64) (models.UnreadCounts, error)
	SetReaction(ctx context.Context, id int64, reaction string) (*models.Message, error)
}

// EventPublisher delivers an event to the rooms of the given users. Delivery
// is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event, userIDs ...int64) error
}

type MessagingService struct {
	messages  messageStore
	publisher EventPublisher
	logger    *zap.Logger
}

func NewMessagingService(messages messageStore, publisher EventPublisher, logger *zap.Logger) *MessagingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagingService{
		messages:  messages,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *MessagingService) Send(ctx context.Context, senderID int64, receiverID int64, content string) (*models.Message, error) {
	if receiverID <= 0 {
		return nil, validationError("Receiver is required")
	}
	if receiverID == senderID {
		return nil, validationError("Cannot send a message to yourself")
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationError("Message content is required")
	}

	message, err := s.messages.Create(ctx, senderID, receiverID, content)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, notFoundError("Receiver not found", err)
		}
		return nil, storeError(s.logger, "message.send", err, "")
	}

	s.publish(ctx, models.EventReceiveMessage, message, message.SenderID, message.ReceiverID)
	return message, nil
}

func (s *MessagingService) Conversation(ctx context.Context, userA int64, userB int64) ([]models.Message, error) {
	if userB <= 0 {
		return nil, validationError("Invalid user id")
	}
	messages, err := s.messages.ListConversation(ctx, userA, userB)
	if err != nil {
		return nil, storeError(s.logger, "message.conversation", err, "")
	}
	return messages, nil
}

func (s *MessagingService) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, "message.get", err, "Message not found")
	}
	return message, nil
}

// MarkSeen flags everything senderID sent to receiverID as seen and returns
// the receiver's unread counts after the update.
func (s *MessagingService) MarkSeen(ctx context.Context, receiverID int64, senderID int64) (models.UnreadCounts, error) {
	if senderID <= 0 {
		return nil, validationError("Sender is required")
	}

	updated, err := s.messages.MarkSeen(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeError(s.logger, "message.mark_seen", err, "")
	}

	counts, err := s.messages.UnreadCounts(ctx, receiverID)
	if err != nil {
		return nil, storeError(s.logger, "message.unread_counts", err, "")
	}

	s.logger.Debug("messages marked seen",
		zap.Int64("receiver_id", receiverID),
		zap.Int64("sender_id", senderID),
		zap.Int64("updated", updated),
	)
	s.publish(ctx, models.EventMessagesSeen, models.SeenEvent{ReaderID: receiverID, SenderID: senderID}, senderID)
	return counts, nil
}

// React replaces the reaction on a message. Any participant or caller may
// overwrite it.
func (s *MessagingService) React(ctx context.Context, messageID int64, reaction string) (*models.Message, error) {
	if messageID <= 0 {
		return nil, validationError("Message id is required")
	}
	if strings.TrimSpace(reaction) == "" {
		return nil, validationError("Reaction is required")
	}

	message, err := s.messages.SetReaction(ctx, messageID, reaction)
	if err != nil {
		return nil, storeError(s.logger, "message.react", err, "Message not found")
	}

	s.publish(ctx, models.EventMessageReaction, models.ReactionEvent{
		MessageID: message.ID,
		Reaction:  reaction,
		Message:   message,
	}, message.SenderID, message.ReceiverID)
	return message, nil
}

func (s *MessagingService) UnreadCounts(ctx context.Context, receiverID int64) (models.UnreadCounts, error) {
	counts, err := s.messages.UnreadCounts(ctx, receiverID)
	if err != nil {
		return nil, storeError(s.logger, "message.unread_counts", err, "")
	}
	return counts, nil
}

func (s *MessagingService) publish(ctx context.Context, eventType string, data any, userIDs ...int64) {
	if s.publisher == nil {
		return
	}
	event, err := models.NewEvent(eventType, data)
	if err != nil {
		s.logger.Warn("encode realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, event, userIDs...); err != nil {
		s.logger.Warn("publish realtime event", zap.String("type", eventType), zap.Error(err))
	}
}
