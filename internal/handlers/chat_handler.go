package handlers

import (
	"context"
	"strings"

	"github.com/Misikirayu/mate-finder/internal/middleware"
	"github.com/Misikirayu/mate-finder/internal/models"
	chatws "github.com/Misikirayu/mate-finder/internal/websocket"
	"github.com/Misikirayu/mate-finder/pkg/utils"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type chatApplicationService interface {
	Send(ctx context.Context, senderID int64, receiverID int64, content string) (*models.Message, error)
	Conversation(ctx context.Context, userA int64, userB int64) ([]models.Message, error)
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	MarkSeen(ctx context.Context, receiverID int64, senderID int64) (models.UnreadCounts, error)
	React(ctx context.Context, messageID int64, reaction string) (*models.Message, error)
	UnreadCounts(ctx context.Context, receiverID int64) (models.UnreadCounts, error)
}

type tokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

type ChatHandler struct {
	service chatApplicationService
	hub     *chatws.Hub
	tokens  tokenVerifier
}

type sendMessageRequest struct {
	ReceiverID flexibleID `json:"receiverId"`
	Content    string     `json:"content"`
}

type markSeenRequest struct {
	SenderID flexibleID `json:"senderId"`
}

type reactRequest struct {
	MessageID flexibleID `json:"messageId"`
	Reaction  string     `json:"reaction"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, tokens tokenVerifier) *ChatHandler {
	return &ChatHandler{
		service: service,
		hub:     hub,
		tokens:  tokens,
	}
}

func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	otherID, ok := parsePathID(c, "userId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	messages, err := h.service.Conversation(c.Context(), userID, otherID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	message, err := h.service.Send(c.Context(), userID, int64(req.ReceiverID), req.Content)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) MarkSeen(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req markSeenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	counts, err := h.service.MarkSeen(c.Context(), userID, int64(req.SenderID))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"unreadCounts": counts})
}

func (h *ChatHandler) React(c *fiber.Ctx) error {
	if _, err := parseProfileUserID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req reactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	message, err := h.service.React(c.Context(), int64(req.MessageID), req.Reaction)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) Unread(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	counts, err := h.service.UnreadCounts(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"unreadCounts": counts})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		tokenString, _ = middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	}
	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	claims, err := h.tokens.Verify(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	middleware.SetIdentity(c, claims)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userIDStr, _ := conn.Locals("user_id").(string)
	userID, err := parseUserIDString(userIDStr)
	if err != nil {
		_ = conn.Close()
		return
	}

	client := chatws.NewClient(h.hub, conn, userID)
	if err := h.hub.Register(client); err != nil {
		_ = conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump(context.Background(), h.service)
}
