package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/Misikirayu/mate-finder/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type memoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User

	// skipLookup makes GetByEmail miss so the insert races the unique index.
	skipLookup bool
	failWith   error
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[int64]*models.User)}
}

func (s *memoryUserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value violates unique constraint"}
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.skipLookup {
		return nil, pgx.ErrNoRows
	}
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *memoryUserStore) ListExcept(_ context.Context, excludeID int64, filter models.UserListFilter) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0)
	for id, user := range s.users {
		if id == excludeID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(user.FirstName+" "+user.LastName), strings.ToLower(filter.Search)) {
			continue
		}
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (s *memoryUserStore) UpdatePartial(_ context.Context, id int64, req repository.UpdateUserInput) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if req.StudyInterests != nil {
		user.StudyInterests = req.StudyInterests
	}
	copied := *user
	return &copied, nil
}

func (s *memoryUserStore) UpdateProfileImage(_ context.Context, id int64, imagePath string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user.ProfileImage = &imagePath
	copied := *user
	return &copied, nil
}

type memoryMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []models.Message
	clock    func() time.Time

	// knownUsers, when set, emulates the receiver foreign key.
	knownUsers map[int64]bool
	failWith   error

	// reactionLimit, when positive, emulates a length-capped reaction column.
	reactionLimit int
}

func newMemoryMessageStore() *memoryMessageStore {
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	return &memoryMessageStore{
		clock: func() time.Time {
			tick++
			return start.Add(time.Duration(tick) * time.Millisecond)
		},
	}
}

func (s *memoryMessageStore) Create(_ context.Context, senderID int64, receiverID int64, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.knownUsers != nil && !s.knownUsers[receiverID] {
		return nil, &pgconn.PgError{Code: pgForeignKeyViolation}
	}
	s.nextID++
	message := models.Message{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.clock(),
	}
	s.messages = append(s.messages, message)
	return &message, nil
}

func (s *memoryMessageStore) GetByID(_ context.Context, id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range s.messages {
		if message.ID == id {
			return &message, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryMessageStore) ListConversation(_ context.Context, userA int64, userB int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	result := make([]models.Message, 0)
	for _, message := range s.messages {
		if (message.SenderID == userA && message.ReceiverID == userB) ||
			(message.SenderID == userB && message.ReceiverID == userA) {
			result = append(result, message)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *memoryMessageStore) MarkSeen(_ context.Context, senderID int64, receiverID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Seen {
			m.Seen = true
			updated++
		}
	}
	return updated, nil
}

func (s *memoryMessageStore) UnreadCounts(_ context.Context, receiverID int64) (models.UnreadCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(models.UnreadCounts)
	for _, m := range s.messages {
		if m.ReceiverID == receiverID && !m.Seen {
			counts[m.SenderID]++
		}
	}
	return counts, nil
}

func (s *memoryMessageStore) SetReaction(_ context.Context, id int64, reaction string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactionLimit > 0 && len([]rune(reaction)) > s.reactionLimit {
		return nil, &pgconn.PgError{Code: pgStringTooLong, Message: "value too long for type character varying(64)"}
	}
	for i := range s.messages {
		if s.messages[i].ID == id {
			value := reaction
			s.messages[i].Reaction = &value
			copied := s.messages[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type publishedEvent struct {
	event   models.Event
	userIDs []int64
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.Event, userIDs ...int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{event: event, userIDs: append([]int64(nil), userIDs...)})
	return nil
}

func (p *recordingPublisher) last() publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return publishedEvent{}
	}
	return p.events[len(p.events)-1]
}

type memoryStorage struct {
	files     map[string][]byte
	deleted   []string
	uploadErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (s *memoryStorage) UploadFile(_ context.Context, content []byte, filename string, _ string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	path := "/uploads/" + filename
	s.files[path] = content
	return path, nil
}

func (s *memoryStorage) DeleteFile(_ context.Context, fileURL string) error {
	delete(s.files, fileURL)
	s.deleted = append(s.deleted, fileURL)
	return nil
}

type fixedTokenIssuer struct{}

func (fixedTokenIssuer) Issue(userID int64, _ string, ttl time.Duration) (string, time.Time, error) {
	return "token-" + time.Duration(userID).String(), time.Now().Add(ttl), nil
}
