package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.skobk.in/skobkin/telegram-conversation-saver/archive"
	"git.skobk.in/skobkin/telegram-conversation-saver/render"
	"git.skobk.in/skobkin/telegram-conversation-saver/storage"
)

func newTestRouter(t *testing.T) (*gin.Engine, *archive.Archiver, *storage.Storage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	require.NoError(t, store.RegisterServer(42, "Test Chat", nil))

	return NewRouter(render.New(store)), archive.New(store), store
}

func doRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)

	return w
}

func TestGetConversation_Missing(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, "/convo/404")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetConversation_BadID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, "/convo/not-a-number")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConversation_Rendered(t *testing.T) {
	router, archiver, _ := newTestRouter(t)

	window := []archive.Message{
		{ID: 102, AuthorID: 1, AuthorName: "alice", Content: "yo", Timestamp: 2000},
		{ID: 101, AuthorID: 1, AuthorName: "alice", Content: "hi", Timestamp: 1000},
	}
	conversationID, err := archiver.Archive(42, window, "funny")
	require.NoError(t, err)
	assert.Equal(t, uint(1), conversationID)

	w := doRequest(router, "/convo/1")
	require.Equal(t, http.StatusOK, w.Code)

	var conversation render.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversation))
	assert.Equal(t, "Test Chat", conversation.ServerName)
	require.Len(t, conversation.Messages, 2)
	assert.Equal(t, "hi", conversation.Messages[0].Content)
	assert.Equal(t, []string{"funny"}, conversation.Tags)
}

func TestHealthz(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}
