package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, store *memoryUserStore, first, last, email string) *models.User {
	t.Helper()
	user := &models.User{FirstName: first, LastName: last, Email: email, PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func newTestProfileService(store *memoryUserStore, storage *memoryStorage) *ProfileService {
	svc := NewProfileService(store, storage, nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func TestProfileGetByID(t *testing.T) {
	store := newMemoryUserStore()
	user := seedUser(t, store, "Alice", "Smith", "alice@x.io")
	svc := newTestProfileService(store, newMemoryStorage())

	got, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.io", got.Email)

	_, err = svc.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "User not found", PublicMessage(err, ""))
}

func TestProfileListExcludesCaller(t *testing.T) {
	store := newMemoryUserStore()
	caller := seedUser(t, store, "Alice", "Smith", "alice@x.io")
	seedUser(t, store, "Bob", "Lee", "bob@x.io")
	seedUser(t, store, "Carol", "King", "carol@x.io")
	svc := newTestProfileService(store, newMemoryStorage())

	users, err := svc.List(context.Background(), caller.ID, models.UserListFilter{})
	require.NoError(t, err)

	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, caller.ID, u.ID)
	}
	assert.Equal(t, "Carol", users[0].FirstName)
}

func TestProfileUpdateKeepsBlankFields(t *testing.T) {
	store := newMemoryUserStore()
	user := seedUser(t, store, "Alice", "Smith", "alice@x.io")
	svc := newTestProfileService(store, newMemoryStorage())

	updated, err := svc.Update(context.Background(), user.ID, UpdateProfileInput{
		FirstName:      strPtr("  Ally "),
		LastName:       strPtr(""),
		Bio:            strPtr("Physics major"),
		StudyInterests: nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "Ally", updated.FirstName)
	assert.Equal(t, "Smith", updated.LastName)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "Physics major", *updated.Bio)
	assert.Nil(t, updated.StudyInterests)
}

func TestProfileUpdateUnknownUser(t *testing.T) {
	svc := newTestProfileService(newMemoryUserStore(), newMemoryStorage())

	_, err := svc.Update(context.Background(), 9, UpdateProfileInput{Bio: strPtr("x")})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadImageRejectsNonImages(t *testing.T) {
	store := newMemoryUserStore()
	user := seedUser(t, store, "Alice", "Smith", "alice@x.io")
	storage := newMemoryStorage()
	svc := newTestProfileService(store, storage)

	for _, mimeType := range []string{"application/pdf", "text/plain", "image/svg+xml", ""} {
		_, err := svc.UploadImage(context.Background(), user.ID, []byte("data"), mimeType)
		assert.ErrorIs(t, err, ErrValidation, mimeType)
		assert.Equal(t, "Only image files are allowed (jpeg, png, gif, webp)", PublicMessage(err, ""))
	}
	assert.Empty(t, storage.files)
}

func TestUploadImageStoresAndReplaces(t *testing.T) {
	store := newMemoryUserStore()
	user := seedUser(t, store, "Alice", "Smith", "alice@x.io")
	storage := newMemoryStorage()
	svc := newTestProfileService(store, storage)

	first, err := svc.UploadImage(context.Background(), user.ID, []byte("jpeg-bytes"), "image/jpg")
	require.NoError(t, err)
	require.NotNil(t, first.ProfileImage)
	assert.Equal(t, "/uploads/user-1-1700000000000.jpg", *first.ProfileImage)

	svc.now = func() time.Time { return time.UnixMilli(1700000005000) }
	second, err := svc.UploadImage(context.Background(), user.ID, []byte("png-bytes"), "image/png; charset=binary")
	require.NoError(t, err)

	assert.Equal(t, "/uploads/user-1-1700000005000.png", *second.ProfileImage)
	assert.Equal(t, []string{"/uploads/user-1-1700000000000.jpg"}, storage.deleted)
	assert.Len(t, storage.files, 1)
}

func TestUploadImageStorageFailure(t *testing.T) {
	store := newMemoryUserStore()
	user := seedUser(t, store, "Alice", "Smith", "alice@x.io")
	storage := newMemoryStorage()
	storage.uploadErr = errors.New("bucket unavailable")
	svc := newTestProfileService(store, storage)

	_, err := svc.UploadImage(context.Background(), user.ID, []byte("gif"), "image/gif")

	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, "Failed to upload image", PublicMessage(err, ""))
}

func TestUploadImageUnknownUser(t *testing.T) {
	storage := newMemoryStorage()
	svc := newTestProfileService(newMemoryUserStore(), storage)

	_, err := svc.UploadImage(context.Background(), 77, []byte("webp"), "image/webp")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, storage.files)
}
