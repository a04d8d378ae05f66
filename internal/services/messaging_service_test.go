package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
)

func newTestMessagingService() (*MessagingService, *memoryMessageStore, *recordingPublisher) {
	store := newMemoryMessageStore()
	publisher := &recordingPublisher{}
	return NewMessagingService(store, publisher, nil), store, publisher
}

func mustSend(t *testing.T, svc *MessagingService, from, to int64, content string) *models.Message {
	t.Helper()
	message, err := svc.Send(context.Background(), from, to, content)
	require.NoError(t, err)
	return message
}

func TestSendValidation(t *testing.T) {
	svc, store, publisher := newTestMessagingService()

	cases := []struct {
		name     string
		receiver int64
		content  string
		message  string
	}{
		{"missing receiver", 0, "hi", "Receiver is required"},
		{"self send", alice, "hi", "Cannot send a message to yourself"},
		{"blank content", bob, "   ", "Message content is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), alice, tc.receiver, tc.content)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tc.message, PublicMessage(err, ""))
		})
	}
	assert.Empty(t, store.messages)
	assert.Empty(t, publisher.events)
}

func TestSendUnknownReceiver(t *testing.T) {
	svc, store, _ := newTestMessagingService()
	store.knownUsers = map[int64]bool{alice: true}

	_, err := svc.Send(context.Background(), alice, 42, "hi")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Receiver not found", PublicMessage(err, ""))
}

func TestSendPublishesToBothParticipants(t *testing.T) {
	svc, _, publisher := newTestMessagingService()

	message := mustSend(t, svc, alice, bob, "hi")

	published := publisher.last()
	assert.Equal(t, models.EventReceiveMessage, published.event.Type)
	assert.ElementsMatch(t, []int64{alice, bob}, published.userIDs)

	var payload models.Message
	require.NoError(t, json.Unmarshal(published.event.Data, &payload))
	assert.Equal(t, message.ID, payload.ID)
	assert.Equal(t, "hi", payload.Content)
	assert.False(t, payload.Seen)
}

func TestConversationIsSymmetric(t *testing.T) {
	svc, _, _ := newTestMessagingService()
	mustSend(t, svc, alice, bob, "hi")
	mustSend(t, svc, bob, alice, "hey")
	mustSend(t, svc, alice, carol, "other thread")
	mustSend(t, svc, alice, bob, "study at 5?")

	ab, err := svc.Conversation(context.Background(), alice, bob)
	require.NoError(t, err)
	ba, err := svc.Conversation(context.Background(), bob, alice)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	require.Len(t, ab, 3)
	for i := 1; i < len(ab); i++ {
		assert.False(t, ab[i].CreatedAt.Before(ab[i-1].CreatedAt))
	}
	assert.Equal(t, "study at 5?", ab[2].Content)
}

func TestConversationEmptyIsNotNil(t *testing.T) {
	svc, _, _ := newTestMessagingService()

	messages, err := svc.Conversation(context.Background(), alice, bob)

	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	svc, store, _ := newTestMessagingService()
	mustSend(t, svc, alice, bob, "one")
	mustSend(t, svc, alice, bob, "two")

	first, err := svc.MarkSeen(context.Background(), bob, alice)
	require.NoError(t, err)
	second, err := svc.MarkSeen(context.Background(), bob, alice)
	require.NoError(t, err)

	assert.Equal(t, 0, first[alice])
	assert.Equal(t, 0, second[alice])
	assert.Equal(t, first, second)
	for _, m := range store.messages {
		assert.True(t, m.Seen)
	}
}

func TestMarkSeenOnlyTouchesOneDirection(t *testing.T) {
	svc, store, publisher := newTestMessagingService()
	mustSend(t, svc, alice, bob, "to bob")
	reply := mustSend(t, svc, bob, alice, "to alice")

	_, err := svc.MarkSeen(context.Background(), bob, alice)
	require.NoError(t, err)

	stored, err := store.GetByID(context.Background(), reply.ID)
	require.NoError(t, err)
	assert.False(t, stored.Seen)

	published := publisher.last()
	assert.Equal(t, models.EventMessagesSeen, published.event.Type)
	assert.Equal(t, []int64{alice}, published.userIDs)

	var payload models.SeenEvent
	require.NoError(t, json.Unmarshal(published.event.Data, &payload))
	assert.Equal(t, models.SeenEvent{ReaderID: bob, SenderID: alice}, payload)
}

func TestReactLastWriteWins(t *testing.T) {
	svc, _, publisher := newTestMessagingService()
	message := mustSend(t, svc, alice, bob, "hi")

	_, err := svc.React(context.Background(), message.ID, "👍")
	require.NoError(t, err)
	updated, err := svc.React(context.Background(), message.ID, "❤️")
	require.NoError(t, err)

	require.NotNil(t, updated.Reaction)
	assert.Equal(t, "❤️", *updated.Reaction)

	fetched, err := svc.GetMessage(context.Background(), message.ID)
	require.NoError(t, err)
	assert.Equal(t, "❤️", *fetched.Reaction)

	published := publisher.last()
	assert.Equal(t, models.EventMessageReaction, published.event.Type)
	assert.ElementsMatch(t, []int64{alice, bob}, published.userIDs)
}

func TestReactErrors(t *testing.T) {
	svc, _, _ := newTestMessagingService()
	message := mustSend(t, svc, alice, bob, "hi")

	_, err := svc.React(context.Background(), 999, "👍")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Message not found", PublicMessage(err, ""))

	for _, blank := range []string{"", " ", "\t\n"} {
		_, err = svc.React(context.Background(), message.ID, blank)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Reaction is required", PublicMessage(err, ""))
	}
}

func TestReactAcceptsLongReaction(t *testing.T) {
	svc, _, _ := newTestMessagingService()
	message := mustSend(t, svc, alice, bob, "hi")
	long := strings.Repeat("🎉", 200)

	updated, err := svc.React(context.Background(), message.ID, long)

	require.NoError(t, err)
	assert.Equal(t, long, *updated.Reaction)
}

func TestReactOnCappedColumnIsValidationError(t *testing.T) {
	svc, store, publisher := newTestMessagingService()
	message := mustSend(t, svc, alice, bob, "hi")
	store.reactionLimit = 64
	published := len(publisher.events)

	_, err := svc.React(context.Background(), message.ID, strings.Repeat("x", 65))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrStore)
	assert.Equal(t, "Value is too long", PublicMessage(err, ""))
	assert.Len(t, publisher.events, published)
}

func TestUnreadCountsExcludeOwnMessages(t *testing.T) {
	svc, _, _ := newTestMessagingService()
	for _, content := range []string{"a", "b", "c"} {
		mustSend(t, svc, alice, bob, content)
	}
	mustSend(t, svc, bob, alice, "back")

	counts, err := svc.UnreadCounts(context.Background(), bob)

	require.NoError(t, err)
	assert.Equal(t, models.UnreadCounts{alice: 3}, counts)
}

func TestStoreFailureIsMasked(t *testing.T) {
	svc, store, _ := newTestMessagingService()
	store.failWith = errors.New("pq: relation \"messages\" does not exist")

	_, err := svc.Conversation(context.Background(), alice, bob)

	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, "Database error", PublicMessage(err, ""))
}

func TestSignupSendSeenFlow(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserStore()
	auth := newTestAuthService(users)
	messaging, _, _ := newTestMessagingService()

	aliceUser, err := auth.Signup(ctx, validSignup())
	require.NoError(t, err)
	bobUser, err := auth.Signup(ctx, SignupInput{FirstName: "Bob", LastName: "Lee", Email: "bob@x.io", Password: "secret2"})
	require.NoError(t, err)

	login, err := auth.Login(ctx, "alice@x.io", "secret1")
	require.NoError(t, err)
	require.Equal(t, aliceUser.ID, login.User.ID)

	sent := mustSend(t, messaging, aliceUser.ID, bobUser.ID, "hi")

	conversation, err := messaging.Conversation(ctx, bobUser.ID, aliceUser.ID)
	require.NoError(t, err)
	require.Len(t, conversation, 1)
	assert.Equal(t, sent.ID, conversation[0].ID)
	assert.False(t, conversation[0].Seen)

	counts, err := messaging.MarkSeen(ctx, bobUser.ID, aliceUser.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)

	seen, err := messaging.GetMessage(ctx, sent.ID)
	require.NoError(t, err)
	assert.True(t, seen.Seen)
}
