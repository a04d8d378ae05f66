package handlers

import (
	"context"
	"io"
	"strings"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/Misikirayu/mate-finder/internal/services"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
)

const maxImageSizeBytes = 5 * 1024 * 1024

type profileApplicationService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, callerID int64, filter models.UserListFilter) ([]models.User, error)
	Update(ctx context.Context, userID int64, in services.UpdateProfileInput) (*models.User, error)
	UploadImage(ctx context.Context, userID int64, content []byte, mimeType string) (*models.User, error)
}

type ProfileHandler struct {
	service profileApplicationService
}

func NewProfileHandler(service profileApplicationService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateProfileRequest struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Bio            *string `json:"bio"`
	StudyInterests *string `json:"studyInterests"`
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := h.service.Update(c.Context(), userID, services.UpdateProfileInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Bio:            req.Bio,
		StudyInterests: req.StudyInterests,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

func (h *ProfileHandler) UploadImage(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Image file is empty"})
	}
	if fileHeader.Size > maxImageSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Image exceeds 5MB limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open image file"})
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxImageSizeBytes+1))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read image file"})
	}

	mimeType := strings.TrimSpace(fileHeader.Header.Get(fiber.HeaderContentType))
	if mimeType == "" || mimeType == fiber.MIMEOctetStream {
		mimeType = mimetype.Detect(content).String()
	}

	user, err := h.service.UploadImage(c.Context(), userID, content, mimeType)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

func (h *ProfileHandler) ListUsers(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	users, err := h.service.List(c.Context(), userID, models.UserListFilter{
		Search:   c.Query("search"),
		Interest: c.Query("interest"),
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"users": users})
}

func (h *ProfileHandler) GetUser(c *fiber.Ctx) error {
	id, ok := parsePathID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	user, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}
