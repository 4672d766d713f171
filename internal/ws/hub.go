package ws

import "sync"

// Hub is the process-wide presence registry. It maps chat rooms (keyed by
// conversation id) and inbox rooms (keyed by user id) to their live sessions.
// Purely in-memory: it is rebuilt empty on restart and clients re-join on
// reconnect.
type Hub struct {
	chatRooms  map[int64]map[*Session]bool
	inboxRooms map[int64]map[*Session]bool
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		chatRooms:  make(map[int64]map[*Session]bool),
		inboxRooms: make(map[int64]map[*Session]bool),
	}
}

// JoinChat registers a session in a conversation's chat room. Joining twice
// is a no-op.
func (h *Hub) JoinChat(conversationID int64, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.chatRooms[conversationID]; !ok {
		h.chatRooms[conversationID] = make(map[*Session]bool)
	}
	h.chatRooms[conversationID][s] = true
}

// LeaveChat removes a session from a chat room. Leaving a room the session
// never joined is a no-op.
func (h *Hub) LeaveChat(conversationID int64, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.chatRooms[conversationID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.chatRooms, conversationID)
		}
	}
}

// JoinInbox registers a session in a user's inbox room. Every live connection
// for a user joins their inbox, across devices and open views.
func (h *Hub) JoinInbox(userID int64, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inboxRooms[userID]; !ok {
		h.inboxRooms[userID] = make(map[*Session]bool)
	}
	h.inboxRooms[userID][s] = true
}

// LeaveInbox removes a session from a user's inbox room.
func (h *Hub) LeaveInbox(userID int64, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.inboxRooms[userID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.inboxRooms, userID)
		}
	}
}

// ChatMembers returns a snapshot of the deliverable sessions in a chat room.
// Sessions that have begun teardown are excluded.
func (h *Hub) ChatMembers(conversationID int64) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return liveMembers(h.chatRooms[conversationID])
}

// InboxMembers returns a snapshot of the deliverable sessions in an inbox room.
func (h *Hub) InboxMembers(userID int64) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return liveMembers(h.inboxRooms[userID])
}

func liveMembers(room map[*Session]bool) []*Session {
	if len(room) == 0 {
		return nil
	}
	members := make([]*Session, 0, len(room))
	for s := range room {
		if !s.Closed() {
			members = append(members, s)
		}
	}
	return members
}
