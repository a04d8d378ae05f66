package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/Misikirayu/mate-finder/internal/repository"
	"go.uber.org/zap"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type profileStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListExcept(ctx context.Context, excludeID int64, filter models.UserListFilter) ([]models.User, error)
	UpdatePartial(ctx context.Context, id int64, req repository.UpdateUserInput) (*models.User, error)
	UpdateProfileImage(ctx context.Context, id int64, imagePath string) (*models.User, error)
}

type ProfileService struct {
	users   profileStore
	storage StorageService
	logger  *zap.Logger
	now     func() time.Time
}

type UpdateProfileInput struct {
	FirstName      *string
	LastName       *string
	Bio            *string
	StudyInterests *string
}

func NewProfileService(users profileStore, storage StorageService, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		users:   users,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ProfileService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, validationError("Invalid user id")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, "profile.get", err, "User not found")
	}
	return user, nil
}

func (s *ProfileService) List(ctx context.Context, callerID int64, filter models.UserListFilter) ([]models.User, error) {
	users, err := s.users.ListExcept(ctx, callerID, filter)
	if err != nil {
		return nil, storeError(s.logger, "profile.list", err, "")
	}
	return users, nil
}

// Update replaces each provided field and keeps the stored value for fields
// that are nil or blank.
func (s *ProfileService) Update(ctx context.Context, userID int64, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.UpdatePartial(ctx, userID, repository.UpdateUserInput{
		FirstName:      provided(in.FirstName, true),
		LastName:       provided(in.LastName, true),
		Bio:            provided(in.Bio, false),
		StudyInterests: provided(in.StudyInterests, false),
	})
	if err != nil {
		return nil, storeError(s.logger, "profile.update", err, "User not found")
	}
	return user, nil
}

// UploadImage stores the image and points the profile at it. The previous
// image is removed best effort. A failed row update leaves the new file
// orphaned.
func (s *ProfileService) UploadImage(ctx context.Context, userID int64, content []byte, mimeType string) (*models.User, error) {
	contentType := normalizeMIME(mimeType)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, validationError("Only image files are allowed (jpeg, png, gif, webp)")
	}
	if len(content) == 0 {
		return nil, validationError("Image file is empty")
	}
	if s.storage == nil {
		return nil, newError(ErrStore, "Storage service is not configured", nil)
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "profile.image.lookup", err, "User not found")
	}

	filename := fmt.Sprintf("user-%d-%d%s", userID, s.now().UnixMilli(), ext)
	imagePath, err := s.storage.UploadFile(ctx, content, filename, contentType)
	if err != nil {
		s.logger.Error("upload profile image", zap.Int64("user_id", userID), zap.Error(err))
		return nil, newError(ErrStore, "Failed to upload image", err)
	}

	updated, err := s.users.UpdateProfileImage(ctx, userID, imagePath)
	if err != nil {
		s.logger.Warn("profile image stored but row update failed", zap.String("path", imagePath))
		return nil, storeError(s.logger, "profile.image.update", err, "User not found")
	}

	if current.ProfileImage != nil && *current.ProfileImage != "" && *current.ProfileImage != imagePath {
		if err := s.storage.DeleteFile(ctx, *current.ProfileImage); err != nil {
			s.logger.Warn("delete previous profile image", zap.String("path", *current.ProfileImage), zap.Error(err))
		}
	}

	return updated, nil
}

func provided(value *string, trim bool) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	if trim {
		trimmed := strings.TrimSpace(*value)
		return &trimmed
	}
	return value
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if mimeType == "image/jpg" || mimeType == "image/pjpeg" {
		return "image/jpeg"
	}
	return mimeType
}
