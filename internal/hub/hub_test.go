package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/johnrmarty/chat-prd/internal/stats"
	"github.com/johnrmarty/chat-prd/internal/testutil"
	"github.com/johnrmarty/chat-prd/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewHub(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", StatActiveConnections).Once()
	su.On("RegisterMetric", StatActiveRooms).Once()
	su.On("RegisterMetric", StatActiveSessions).Once()
	su.On("RegisterMetric", StatBroadcasts).Once()

	h := NewHub(testutil.TestLogger(t), su)

	assert.NotNil(t, h.clients, "expected clients map to be initialized")
	assert.NotNil(t, h.rooms, "expected rooms map to be initialized")
	assert.NotNil(t, h.eventChan, "expected event channel to be initialized")
	assert.NotNil(t, h.unloadRoomChan, "expected unload channel to be initialized")
}

func TestRegisterDeregisterClient(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("Incr", StatActiveConnections).Once()
	su.On("Decr", StatActiveConnections).Once()

	h := newTestHub(t, su)
	c := newTestClient(h, "sess-1", "user-1", "alice")

	h.RegisterClient(c)
	assert.Contains(t, h.clients, c, "expected client to be registered")

	h.DeregisterClient(c)
	assert.NotContains(t, h.clients, c, "expected client to be removed")

	// a second deregister is a no-op
	h.DeregisterClient(c)
}

func Test_routeEvent(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	h := newTestHub(t, su)
	c := newTestClient(h, "sess-1", "user-1", "alice")

	// a non-join event for a project with no room is dropped
	h.routeEvent(&ClientEvent{
		Message: &NewMessage{ProjectId: "proj-1", Message: json.RawMessage(`{}`)},
		client:  c,
	})
	assert.Empty(t, h.rooms, "expected no room for a non-join event")

	h.routeEvent(joinEvent(c, "proj-1", "sess-1", "user-1", "alice"))

	assert.Len(t, h.rooms, 1, "expected a room to be created on first join")

	// the room goroutine processes the join and answers with a snapshot
	ev := receiveEvent(t, c)
	assert.Len(t, ev.ActiveUsers, 1, "expected a one-member snapshot")
	assert.Equal(t, "sess-1", ev.ActiveUsers[0].SessionId)

	// a second join for the same project reuses the room
	c2 := newTestClient(h, "sess-2", "user-2", "bob")
	h.routeEvent(joinEvent(c2, "proj-1", "sess-2", "user-2", "bob"))
	assert.Len(t, h.rooms, 1, "expected the existing room to be reused")
}

// Events from one connection must take effect in the order they were read:
// a chat message sent immediately after the join still broadcasts, and a
// leave followed by an immediate rejoin never resolves backwards.
func TestReceiptOrder(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	h := NewHub(testutil.TestLogger(t), su)
	go h.Run()
	defer h.Shutdown(context.Background())

	t.Run("message right after join is broadcast", func(t *testing.T) {
		c := newTestClient(h, "sess-1", "user-1", "alice")

		c.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-1", SessionId: "sess-1"}, client: c})
		c.route(&ClientEvent{
			Message: &NewMessage{ProjectId: "proj-1", Message: json.RawMessage(`{"role":"user","content":"first"}`)},
			client:  c,
		})

		ev := receiveEvent(t, c)
		assert.Len(t, ev.ActiveUsers, 1, "expected the join snapshot first")

		ev = receiveEvent(t, c)
		assert.NotNil(t, ev.Message, "expected the message to survive the join window")
		assert.Equal(t, "first", ev.Message.Content)
	})

	t.Run("leave followed by immediate rejoin lands joined", func(t *testing.T) {
		c := newTestClient(h, "sess-2", "user-2", "bob")

		c.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-2", SessionId: "sess-2"}, client: c})
		receiveEvent(t, c) // join snapshot

		c.route(&ClientEvent{Leave: &LeaveProject{ProjectId: "proj-2"}, client: c})
		c.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-2", SessionId: "sess-2"}, client: c})

		ev := receiveEvent(t, c)
		assert.Len(t, ev.ActiveUsers, 1, "expected the rejoin snapshot")

		// the rejoined session still receives broadcasts
		c.route(&ClientEvent{
			Message: &NewMessage{ProjectId: "proj-2", Message: json.RawMessage(`{"role":"user","content":"back"}`)},
			client:  c,
		})
		ev = receiveEvent(t, c)
		assert.NotNil(t, ev.Message, "expected the post-rejoin message")
		assert.Equal(t, "back", ev.Message.Content)
	})
}

// Joining and then leaving must tear the room down: rooms exist only while
// they have at least one session.
func TestRoomLifecycle(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", StatActiveSessions).Maybe()

	roomGone := make(chan struct{})
	su.On("Decr", StatActiveRooms).Run(func(mock.Arguments) { close(roomGone) }).Once()

	h := NewHub(testutil.TestLogger(t), su)
	go h.Run()

	c := newTestClient(h, "sess-1", "user-1", "alice")
	c.route(&ClientEvent{
		Join:   &JoinProject{ProjectId: "proj-1", SessionId: "sess-1"},
		client: c,
	})

	receiveEvent(t, c) // join snapshot

	c.route(&ClientEvent{
		Leave:  &LeaveProject{ProjectId: "proj-1"},
		client: c,
	})

	select {
	case <-roomGone:
	case <-time.After(time.Second):
		t.Fatal("timeout: empty room was not unloaded")
	}

	h.Shutdown(context.Background())
}

// Full two-session exchange through the hub run loop: join, chat, typing,
// content generation, then leave.
func TestTwoSessionFlow(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	h := NewHub(testutil.TestLogger(t), su)
	go h.Run()
	defer h.Shutdown(context.Background())

	alice := newTestClient(h, "sess-a", "user-a", "alice")
	bob := newTestClient(h, "sess-b", "user-b", "bob")

	alice.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-1", SessionId: "sess-a"}, client: alice})
	ev := receiveEvent(t, alice)
	assert.Len(t, ev.ActiveUsers, 1, "expected snapshot with one session")

	bob.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-1", SessionId: "sess-b"}, client: bob})

	ev = receiveEvent(t, alice)
	assert.Equal(t, []types.Session{
		{SessionId: "sess-a", UserId: "user-a", Username: "alice", ProjectId: "proj-1"},
		{SessionId: "sess-b", UserId: "user-b", Username: "bob", ProjectId: "proj-1"},
	}, ev.ActiveUsers, "expected both sessions in join order")
	receiveEvent(t, bob) // bob's copy of the snapshot

	// chat message reaches both, including the sender
	alice.route(&ClientEvent{
		Message: &NewMessage{ProjectId: "proj-1", Message: json.RawMessage(`{"role":"user","content":"hello bob"}`)},
		client:  alice,
	})
	for _, c := range []*Client{alice, bob} {
		ev := receiveEvent(t, c)
		assert.NotNil(t, ev.Message, "expected message-received")
		assert.Equal(t, "hello bob", ev.Message.Content)
		assert.Equal(t, "alice", ev.Message.SenderName)
	}

	// typing reaches only the other session
	bob.route(&ClientEvent{Typing: &Typing{ProjectId: "proj-1", IsTyping: true}, client: bob})
	ev = receiveEvent(t, alice)
	assert.NotNil(t, ev.UserTyping, "expected user-typing")
	assert.Equal(t, "bob", ev.UserTyping.Username)

	// bob leaves; alice gets the shrunk snapshot
	bob.route(&ClientEvent{Leave: &LeaveProject{ProjectId: "proj-1"}, client: bob})
	ev = receiveEvent(t, alice)
	assert.Equal(t, []types.Session{
		{SessionId: "sess-a", UserId: "user-a", Username: "alice", ProjectId: "proj-1"},
	}, ev.ActiveUsers, "expected snapshot without bob")
}

func TestCloseRoom(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", StatActiveSessions).Maybe()

	roomGone := make(chan struct{})
	su.On("Decr", StatActiveRooms).Run(func(mock.Arguments) { close(roomGone) }).Once()

	h := NewHub(testutil.TestLogger(t), su)
	go h.Run()
	defer h.Shutdown(context.Background())

	c := newTestClient(h, "sess-1", "user-1", "alice")
	c.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-1", SessionId: "sess-1"}, client: c})
	receiveEvent(t, c)

	err := h.CloseRoom(context.Background(), "proj-1")
	assert.NoError(t, err, "expected close to succeed")

	select {
	case <-roomGone:
	case <-time.After(time.Second):
		t.Fatal("timeout: room was not closed")
	}

	assert.Nil(t, c.getRoom("proj-1"), "expected client room mapping to be cleared")

	// closing an unknown project is a no-op
	err = h.CloseRoom(context.Background(), "missing")
	assert.NoError(t, err, "expected closing a missing room to succeed")
}

func TestShutdown(t *testing.T) {
	t.Run("stops rooms and returns", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("RegisterMetric", mock.Anything).Times(4)
		su.On("Incr", mock.Anything).Maybe()
		su.On("Decr", mock.Anything).Maybe()

		h := NewHub(testutil.TestLogger(t), su)
		go h.Run()

		c := newTestClient(h, "sess-1", "user-1", "alice")
		c.route(&ClientEvent{Join: &JoinProject{ProjectId: "proj-1", SessionId: "sess-1"}, client: c})
		receiveEvent(t, c)

		err := h.Shutdown(context.Background())
		assert.NoError(t, err, "expected clean shutdown")
	})

	t.Run("honors context expiry when the run loop is not serving", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("RegisterMetric", mock.Anything).Times(4)

		h := NewHub(testutil.TestLogger(t), su)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := h.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "expected deadline error")
	})
}
