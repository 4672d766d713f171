package ws

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/auth"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func newInboxTestServer(t *testing.T, convoViews *mocks.ConversationViewsMock) (*httptest.Server, *Hub, *auth.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	verifier := auth.NewVerifier("test-secret")
	handler := NewInboxWebSocketHandler(hub, convoViews, verifier)

	r := gin.New()
	r.GET("/ws/inbox", handler.Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, hub, verifier
}

func TestInboxHandshakeRejectsMissingToken(t *testing.T) {
	server, hub, _ := newInboxTestServer(t, new(mocks.ConversationViewsMock))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/inbox"), nil)
	require.NoError(t, err)
	defer conn.Close()

	expectCloseCode(t, conn, CloseUnauthenticated)
	assert.Empty(t, hub.InboxMembers(1))
}

func TestInboxHandshakeSendsSnapshot(t *testing.T) {
	convoViews := new(mocks.ConversationViewsMock)
	convoViews.On("SnapshotFor", mock.Anything, int64(1)).
		Return([]models.ConversationView{{ID: 10, UnreadCountForMe: 2}}, nil).Once()

	server, hub, verifier := newInboxTestServer(t, convoViews)
	token, err := verifier.Sign(auth.Identity{UserID: 1, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/inbox?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var snapshot SnapshotEvent
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, "conversations_snapshot", snapshot.Type)
	require.Len(t, snapshot.Conversations, 1)
	assert.Equal(t, 2, snapshot.Conversations[0].UnreadCountForMe)

	require.Eventually(t, func() bool {
		return len(hub.InboxMembers(1)) == 1
	}, time.Second, 5*time.Millisecond)

	convoViews.AssertExpectations(t)
}

func TestInboxSnapshotDegradesToEmptyListOnStoreError(t *testing.T) {
	convoViews := new(mocks.ConversationViewsMock)
	convoViews.On("SnapshotFor", mock.Anything, int64(1)).
		Return(([]models.ConversationView)(nil), assert.AnError).Once()

	server, _, verifier := newInboxTestServer(t, convoViews)
	token, err := verifier.Sign(auth.Identity{UserID: 1, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/inbox?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var snapshot SnapshotEvent
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, "conversations_snapshot", snapshot.Type)
	assert.NotNil(t, snapshot.Conversations)
	assert.Empty(t, snapshot.Conversations)
}
