package ws

import "testing"

func TestHubJoinAndLeaveChat(t *testing.T) {
	hub := NewHub()
	sess := &Session{done: make(chan struct{})}

	hub.JoinChat(1, sess)
	if len(hub.chatRooms) != 1 {
		t.Fatalf("expected chat room to be created")
	}

	hub.JoinChat(1, sess)
	if len(hub.chatRooms[1]) != 1 {
		t.Fatalf("expected duplicate join to be a no-op")
	}

	hub.LeaveChat(1, sess)
	if len(hub.chatRooms) != 0 {
		t.Fatalf("expected empty chat room to be removed")
	}

	hub.LeaveChat(1, sess)
}

func TestHubJoinAndLeaveInbox(t *testing.T) {
	hub := NewHub()
	first := &Session{done: make(chan struct{})}
	second := &Session{done: make(chan struct{})}

	hub.JoinInbox(7, first)
	hub.JoinInbox(7, second)
	if len(hub.InboxMembers(7)) != 2 {
		t.Fatalf("expected both sessions in the inbox room")
	}

	hub.LeaveInbox(7, first)
	if len(hub.InboxMembers(7)) != 1 {
		t.Fatalf("expected one session after leave")
	}

	hub.LeaveInbox(7, second)
	if len(hub.inboxRooms) != 0 {
		t.Fatalf("expected empty inbox room to be removed")
	}
}

func TestHubMembersExcludeClosedSessions(t *testing.T) {
	hub := NewHub()
	live := &Session{done: make(chan struct{})}
	closed := &Session{done: make(chan struct{})}
	close(closed.done)

	hub.JoinChat(3, live)
	hub.JoinChat(3, closed)

	members := hub.ChatMembers(3)
	if len(members) != 1 || members[0] != live {
		t.Fatalf("expected only the live session, got %d members", len(members))
	}
}
