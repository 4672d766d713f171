package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/auth"
)

// fakeConn records written frames; reads block until the conn is closed.
type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	closedCh chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{closedCh: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closedCh
	return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]byte, len(data))
	copy(frame, data)
	f.written = append(f.written, frame)
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closedCh)
	}
	return nil
}

func (f *fakeConn) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestSession(conn ConnLike) *Session {
	return NewSession(conn, auth.Identity{UserID: 1, Username: "alice"})
}

func TestSessionSendDeliversInOrder(t *testing.T) {
	conn := newFakeConn()
	sess := newTestSession(conn)
	defer sess.Close(websocket.CloseNormalClosure, "")

	require.True(t, sess.Send([]byte("m1")))
	require.True(t, sess.Send([]byte("m2")))
	require.True(t, sess.Send([]byte("m3")))

	require.Eventually(t, func() bool {
		return len(conn.frames()) == 3
	}, time.Second, 5*time.Millisecond)

	frames := conn.frames()
	assert.Equal(t, "m1", string(frames[0]))
	assert.Equal(t, "m2", string(frames[1]))
	assert.Equal(t, "m3", string(frames[2]))
}

func TestSessionSendEventMarshalsFrame(t *testing.T) {
	conn := newFakeConn()
	sess := newTestSession(conn)
	defer sess.Close(websocket.CloseNormalClosure, "")

	require.True(t, sess.SendEvent(NewHelloEvent(42)))

	require.Eventually(t, func() bool {
		return len(conn.frames()) == 1
	}, time.Second, 5*time.Millisecond)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(conn.frames()[0], &frame))
	assert.Equal(t, "hello", frame["type"])
	assert.EqualValues(t, 42, frame["room"])
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	sess := newTestSession(conn)

	var calls int
	sess.OnClose(func() { calls++ })

	sess.Close(websocket.CloseNormalClosure, "")
	sess.Close(websocket.CloseNormalClosure, "")

	assert.True(t, sess.Closed())
	assert.True(t, conn.isClosed())
	assert.Equal(t, 1, calls)
}

func TestSessionSendAfterCloseIsRejected(t *testing.T) {
	conn := newFakeConn()
	sess := newTestSession(conn)
	sess.Close(websocket.CloseNormalClosure, "")

	assert.False(t, sess.Send([]byte("late")))
}

func TestSessionOverflowClosesConnection(t *testing.T) {
	conn := newStalledConn()
	sess := NewSession(conn, auth.Identity{UserID: 2, Username: "bob"})

	// The pump takes one payload and stalls; once the buffer fills, the next
	// send must tear the session down instead of blocking the caller.
	for i := 0; i <= sendBufferSize+1; i++ {
		sess.Send([]byte("x"))
	}

	assert.True(t, sess.Closed())
}

// stalledConn blocks every write so the pump never drains the send buffer.
type stalledConn struct {
	fakeConn
	block chan struct{}
}

func newStalledConn() *stalledConn {
	return &stalledConn{fakeConn: fakeConn{closedCh: make(chan struct{})}, block: make(chan struct{})}
}

func (s *stalledConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-s.block:
	case <-s.closedCh:
	}
	return nil
}
