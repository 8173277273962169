package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)

	return s
}

func TestRegisterUser_Idempotent(t *testing.T) {
	s := newTestStorage(t)

	created, err := s.RegisterUser(1, false)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.RegisterUser(1, false)
	require.NoError(t, err)
	assert.False(t, created)

	consent, err := s.GetConsent(1)
	require.NoError(t, err)
	assert.Equal(t, ConsentPending, consent)
}

func TestRegisterUser_DoesNotResetConsent(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.RegisterUser(1, false)
	require.NoError(t, err)
	require.NoError(t, s.SetConsent(1, ConsentOptedOut))

	// A later observation of the same user must not touch the stored state.
	created, err := s.RegisterUser(1, false)
	require.NoError(t, err)
	assert.False(t, created)

	consent, err := s.GetConsent(1)
	require.NoError(t, err)
	assert.Equal(t, ConsentOptedOut, consent)
}

func TestRegisterUser_BotsAreOptedIn(t *testing.T) {
	s := newTestStorage(t)

	created, err := s.RegisterUser(7, true)
	require.NoError(t, err)
	assert.True(t, created)

	consent, err := s.GetConsent(7)
	require.NoError(t, err)
	assert.Equal(t, ConsentOptedIn, consent)
}

func TestGetConsent_UnknownUser(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetConsent(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetConsent_UnknownUser(t *testing.T) {
	s := newTestStorage(t)

	err := s.SetConsent(404, ConsentOptedIn)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAnonymous(t *testing.T) {
	s := newTestStorage(t)

	assert.ErrorIs(t, s.SetAnonymous(1, true), ErrNotFound)

	_, err := s.RegisterUser(1, false)
	require.NoError(t, err)
	require.NoError(t, s.SetAnonymous(1, true))

	user, err := s.GetUser(1)
	require.NoError(t, err)
	assert.True(t, user.Anonymous)
}

func TestRegisterServer_DoesNotOverwriteName(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.RegisterServer(42, "First Name", nil))
	require.NoError(t, s.RegisterServer(42, "Renamed Later", nil))

	server, err := s.GetServer(42)
	require.NoError(t, err)
	assert.Equal(t, "First Name", server.Name)
}

func TestServerTags(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.RegisterServer(42, "Chat", nil))

	tags, err := s.GetServerTags(42)
	require.NoError(t, err)
	assert.Empty(t, tags)

	require.NoError(t, s.SetServerTags(42, []string{"gaming", "rust"}))

	tags, err = s.GetServerTags(42)
	require.NoError(t, err)
	assert.Equal(t, []string{"gaming", "rust"}, tags)
}

func TestSetServerTags_UnknownServer(t *testing.T) {
	s := newTestStorage(t)

	err := s.SetServerTags(404, []string{"x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStageMessage_Dedup(t *testing.T) {
	s := newTestStorage(t)

	name := "alice"
	msg := &Message{
		MessageID:  100,
		ServerID:   42,
		AuthorName: &name,
		Content:    "hi",
		Timestamp:  1000,
	}
	require.NoError(t, s.StageMessage(msg))

	// Overlapping grabs re-stage the same window; this must be a no-op.
	again := &Message{
		MessageID:  100,
		ServerID:   42,
		AuthorName: &name,
		Content:    "hi",
		Timestamp:  1000,
	}
	require.NoError(t, s.StageMessage(again))

	count, err := s.CountMessages(42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStageMessage_SameIdDifferentServer(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.StageMessage(&Message{MessageID: 100, ServerID: 1, Content: "a"}))
	require.NoError(t, s.StageMessage(&Message{MessageID: 100, ServerID: 2, Content: "b"}))

	msg, err := s.GetMessage(100, 2)
	require.NoError(t, err)
	assert.Equal(t, "b", msg.Content)
}

func TestGetMessage_Unknown(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetMessage(100, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConversation_SequentialIDs(t *testing.T) {
	s := newTestStorage(t)

	first, err := s.CreateConversation(42, "1,2,", nil)
	require.NoError(t, err)
	second, err := s.CreateConversation(42, "3,4,", nil)
	require.NoError(t, err)

	assert.Equal(t, first+1, second)

	conversation, err := s.GetConversation(first)
	require.NoError(t, err)
	assert.Equal(t, "1,2,", conversation.MessageIDs)
	assert.Nil(t, conversation.Tags)
}

func TestGetConversation_Unknown(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetConversation(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransaction_RollsBackEverything(t *testing.T) {
	s := newTestStorage(t)

	err := s.Transaction(func(tx *Storage) error {
		if err := tx.StageMessage(&Message{MessageID: 1, ServerID: 42, Content: "x"}); err != nil {
			return err
		}
		if _, err := tx.CreateConversation(42, "1,", nil); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	messages, err := s.CountMessages(42)
	require.NoError(t, err)
	assert.Zero(t, messages)

	conversations, err := s.CountConversations(42)
	require.NoError(t, err)
	assert.Zero(t, conversations)
}
