package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/auth"
)

// Close codes signalled to clients on terminal conditions.
const (
	CloseUnauthenticated = 4001
	CloseForbidden       = 4403
	CloseInternalError   = websocket.CloseInternalServerErr // 1011
)

// ConnLike is the subset of a websocket connection the session needs. The
// gorilla *websocket.Conn satisfies it.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

const sendBufferSize = 64

// Session is one live connection. Inbound commands are read sequentially by
// the owning handler goroutine; outbound pushes go through a buffered channel
// drained by a dedicated write pump, so the router never blocks on a slow
// reader.
type Session struct {
	ID          string
	UserID      int64
	Username    string
	IP          string
	DeviceID    string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time

	conn      ConnLike
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	leave []func()
}

// NewSession wraps an accepted connection for the authenticated identity and
// starts the write pump.
func NewSession(conn ConnLike, identity auth.Identity) *Session {
	s := &Session{
		ID:          newConnID(),
		UserID:      identity.UserID,
		Username:    identity.Username,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// OnClose registers a callback to run during Close, before the transport is
// torn down. Handlers use it for registry deregistration.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	s.leave = append(s.leave, fn)
	s.mu.Unlock()
}

// Send queues a payload for delivery. It never blocks: a full buffer means
// the client stopped draining, and the session is closed instead of stalling
// the fan-out path.
func (s *Session) Send(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	default:
		log.Printf("websocket send buffer full, closing conn=%s user=%d", s.ID, s.UserID)
		s.Close(CloseInternalError, "send buffer overflow")
		return false
	}
}

// SendEvent marshals and queues a typed wire event.
func (s *Session) SendEvent(event Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket event marshal error: %v", err)
		return false
	}
	return s.Send(payload)
}

// ReadMessage blocks for the next inbound frame.
func (s *Session) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

// Closed reports whether teardown has begun. A closed session is never a
// deliverable fan-out target.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close tears the session down: deregistration callbacks first, then the
// close frame and the transport. Safe to call from the inbound loop, the
// write pump and external events alike; repeated calls are no-ops.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		callbacks := s.leave
		s.leave = nil
		s.mu.Unlock()
		for _, fn := range callbacks {
			fn()
		}

		close(s.done)

		deadline := time.Now().Add(time.Second)
		if err := s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
			log.Printf("websocket close frame error conn=%s: %v", s.ID, err)
		}
		if err := s.conn.Close(); err != nil {
			log.Printf("websocket close error conn=%s: %v", s.ID, err)
		}
	})
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error conn=%s: %v", s.ID, err)
				s.Close(CloseInternalError, "write failed")
				return
			}
		}
	}
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
