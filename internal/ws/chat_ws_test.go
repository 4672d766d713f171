package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
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
	"messaging-service/internal/repositories"
)

func newChatTestServer(t *testing.T, convos *mocks.ConversationRepositoryMock) (*httptest.Server, *Hub, *auth.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	verifier := auth.NewVerifier("test-secret")
	router := NewRouter(hub, new(mocks.ConversationViewsMock))
	handler := NewChatWebSocketHandler(hub, router, convos, new(mocks.MessageRepositoryMock), new(mocks.BlockRepositoryMock), verifier)

	r := gin.New()
	r.GET("/ws/chats/:conversation_id", handler.Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, hub, verifier
}

func wsURL(server *httptest.Server, path string) string {
	return strings.Replace(server.URL, "http", "ws", 1) + path
}

func expectCloseCode(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}

func TestChatHandshakeRejectsMissingToken(t *testing.T) {
	server, hub, _ := newChatTestServer(t, new(mocks.ConversationRepositoryMock))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chats/10"), nil)
	require.NoError(t, err)
	defer conn.Close()

	expectCloseCode(t, conn, CloseUnauthenticated)
	assert.Empty(t, hub.ChatMembers(10))
}

func TestChatHandshakeRejectsNonParticipant(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	convos.On("Get", mock.Anything, int64(10)).
		Return(models.Conversation{ID: 10, BuyerID: 5, SellerID: 6}, nil).Once()

	server, hub, verifier := newChatTestServer(t, convos)
	token, err := verifier.Sign(auth.Identity{UserID: 1, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chats/10?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	expectCloseCode(t, conn, CloseForbidden)
	assert.Empty(t, hub.ChatMembers(10))
	convos.AssertExpectations(t)
}

func TestChatHandshakeRejectsUnknownConversation(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	convos.On("Get", mock.Anything, int64(10)).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	server, _, verifier := newChatTestServer(t, convos)
	token, err := verifier.Sign(auth.Identity{UserID: 1, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chats/10?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	expectCloseCode(t, conn, CloseForbidden)
}

func TestChatHandshakeAcceptsParticipantAndSendsHello(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	convos.On("Get", mock.Anything, int64(10)).
		Return(models.Conversation{ID: 10, BuyerID: 1, SellerID: 2}, nil).Once()

	server, hub, verifier := newChatTestServer(t, convos)
	token, err := verifier.Sign(auth.Identity{UserID: 1, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chats/10?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var hello HelloEvent
	require.NoError(t, json.Unmarshal(raw, &hello))
	assert.Equal(t, "hello", hello.Type)
	assert.EqualValues(t, 10, hello.Room)

	require.Eventually(t, func() bool {
		return len(hub.ChatMembers(10)) == 1 && len(hub.InboxMembers(1)) == 1
	}, time.Second, 5*time.Millisecond)

	convos.AssertExpectations(t)
}

func TestChatTypingRelayedToPeer(t *testing.T) {
	convos := new(mocks.ConversationRepositoryMock)
	convos.On("Get", mock.Anything, int64(10)).
		Return(models.Conversation{ID: 10, BuyerID: 1, SellerID: 2}, nil).Twice()

	server, _, verifier := newChatTestServer(t, convos)

	aliceToken, err := verifier.Sign(auth.Identity{UserID: 1, Username: "alice"}, time.Minute)
	require.NoError(t, err)
	bobToken, err := verifier.Sign(auth.Identity{UserID: 2, Username: "bob"}, time.Minute)
	require.NoError(t, err)

	alice, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chats/10?token="+aliceToken), nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chats/10?token="+bobToken), nil)
	require.NoError(t, err)
	defer bob.Close()

	// Drain hello frames.
	alice.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = alice.ReadMessage()
	require.NoError(t, err)
	bob.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = bob.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, alice.WriteJSON(map[string]string{"type": "typing"}))

	bob.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := bob.ReadMessage()
	require.NoError(t, err)

	var typing TypingEvent
	require.NoError(t, json.Unmarshal(raw, &typing))
	assert.Equal(t, "typing", typing.Type)
	assert.Equal(t, "alice", typing.Username)
}
