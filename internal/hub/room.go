package hub

import (
	"log"
	"slices"

	"github.com/johnrmarty/chat-prd/internal/stats"
	"github.com/johnrmarty/chat-prd/internal/types"
)

const (
	anonymousUserId = "anonymous"
	defaultUsername = "User"
)

type exitReq struct {
	// force skips the empty check; used during hub shutdown.
	force bool
	// resp reports whether the room actually shut down. An unload is
	// declined when a late join arrived while the request was in flight.
	resp chan bool
}

// Room serializes all state for one project: the session registry, the
// connection set and every broadcast happen on the room's own goroutine, so
// events for different projects never contend on a shared lock.
type Room struct {
	projectId string
	hub       *Hub
	// events carries every client-originated event for the project in the
	// order the hub forwarded it, so joins, leaves and messages from one
	// connection cannot reorder against each other.
	events chan *ClientEvent
	// leaveChan is the transport-close path only; an explicit leave-project
	// arrives on events like any other client event.
	leaveChan chan *Client
	// sessions is the per-project session registry, keyed by session id.
	// order preserves join order for active-user snapshots.
	sessions map[string]types.Session
	order    []string
	// clients maps live connections to the session id they joined under.
	clients map[*Client]string
	log     *log.Logger
	stats   stats.StatsProvider
	exit    chan exitReq
}

func newRoom(projectId string, h *Hub) *Room {
	return &Room{
		projectId: projectId,
		hub:       h,
		events:    make(chan *ClientEvent, 256),
		leaveChan: make(chan *Client, 256),
		sessions:  make(map[string]types.Session),
		clients:   make(map[*Client]string),
		log:       h.log,
		stats:     h.stats,
		exit:      make(chan exitReq),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.projectId)

	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case c := <-r.leaveChan:
			r.handleLeave(c)
		case e := <-r.exit:
			if r.handleExit(e) {
				return
			}
		}
	}
}

func (r *Room) dispatch(ev *ClientEvent) {
	switch {
	case ev.Join != nil:
		r.handleJoin(ev)
	case ev.Leave != nil:
		r.handleLeave(ev.client)
	default:
		r.handleEvent(ev)
	}
}

func (r *Room) handleJoin(ev *ClientEvent) {
	join := ev.Join
	c := ev.client

	sess := types.Session{
		SessionId: join.SessionId,
		UserId:    join.UserId,
		Username:  join.Username,
		ProjectId: r.projectId,
	}
	if sess.UserId == "" {
		sess.UserId = c.userId
	}
	if sess.UserId == "" {
		sess.UserId = anonymousUserId
	}
	if sess.Username == "" {
		sess.Username = c.username
	}
	if sess.Username == "" {
		sess.Username = defaultUsername
	}

	if _, ok := r.sessions[sess.SessionId]; !ok {
		r.order = append(r.order, sess.SessionId)
		r.stats.Incr(StatActiveSessions)
	}
	// a rejoin under the same session id replaces the prior entry, picking
	// up identity that loaded after the socket connected
	r.sessions[sess.SessionId] = sess
	r.clients[c] = sess.SessionId
	c.addRoom(r)

	r.log.Printf("session %q (%s) joined project %q", sess.SessionId, sess.Username, r.projectId)
	r.broadcastActiveUsers()
}

// handleLeave covers both an explicit leave-project and a transport close. A
// leave for a connection that never joined is a no-op.
func (r *Room) handleLeave(c *Client) {
	sessionId, ok := r.clients[c]
	if !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.projectId)

	// keep the session while a reconnect that beat this teardown still
	// holds the same session id on another connection
	for _, other := range r.clients {
		if other == sessionId {
			return
		}
	}

	delete(r.sessions, sessionId)
	if i := slices.Index(r.order, sessionId); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.stats.Decr(StatActiveSessions)

	r.log.Printf("session %q left project %q", sessionId, r.projectId)

	if len(r.sessions) == 0 {
		r.requestUnload()
		return
	}

	r.broadcastActiveUsers()
}

func (r *Room) handleEvent(ev *ClientEvent) {
	if _, ok := r.clients[ev.client]; !ok {
		r.log.Printf("dropping event from a connection not joined to project %q", r.projectId)
		return
	}

	switch {
	case ev.Message != nil:
		msg := Normalize(ev.Message.Message, r.sessionFor(ev.client))
		r.broadcast(&ServerEvent{Message: &msg})
	case ev.Generating != nil:
		sess := r.sessionFor(ev.client)
		r.broadcast(&ServerEvent{
			GenerationStarted: &GenerationStarted{
				ContentType: ev.Generating.ContentType,
				UserId:      sess.UserId,
			},
		})
	case ev.Generated != nil:
		// notify-and-forget: no pairing with a preceding
		// generating-content event is required
		sess := r.sessionFor(ev.client)
		r.broadcast(&ServerEvent{
			GenerationCompleted: &GenerationCompleted{
				ContentType: ev.Generated.ContentType,
				Content:     ev.Generated.Content,
				GeneratedBy: sess.UserId,
			},
		})
	case ev.Typing != nil:
		sess := r.sessionFor(ev.client)
		r.broadcast(&ServerEvent{
			UserTyping: &UserTyping{
				UserId:   sess.UserId,
				Username: sess.Username,
				IsTyping: ev.Typing.IsTyping,
			},
			SkipClient: ev.client,
		})
	}
}

// handleExit drains joins that were routed before the hub committed to the
// unload, then declines if the room is no longer empty. It reports whether
// the room goroutine should stop.
func (r *Room) handleExit(e exitReq) bool {
	if !e.force {
	drain:
		for {
			select {
			case ev := <-r.events:
				r.dispatch(ev)
			default:
				break drain
			}
		}

		if len(r.sessions) > 0 {
			if e.resp != nil {
				e.resp <- false
			}
			return false
		}
	}

	r.log.Printf("room %q is exiting", r.projectId)
	for c := range r.clients {
		c.delRoom(r.projectId)
	}

	if e.resp != nil {
		e.resp <- true
	}
	return true
}

func (r *Room) requestUnload() {
	select {
	case r.hub.unloadRoomChan <- r.projectId:
	default:
		r.log.Printf("unload channel full, room %q stays loaded", r.projectId)
	}
}

func (r *Room) sessionFor(c *Client) types.Session {
	if c == nil {
		return types.Session{}
	}
	return r.sessions[r.clients[c]]
}

// membersOf returns a snapshot of the current sessions in join order.
// Callers never observe registry mutations through it.
func (r *Room) membersOf() []types.Session {
	members := make([]types.Session, 0, len(r.order))
	for _, id := range r.order {
		members = append(members, r.sessions[id])
	}
	return members
}

// broadcastActiveUsers sends the full membership snapshot to every member,
// including the connection that caused the change. Consumers treat it as a
// full replace, not a diff.
func (r *Room) broadcastActiveUsers() {
	r.broadcast(&ServerEvent{ActiveUsers: r.membersOf()})
}

func (r *Room) broadcast(ev *ServerEvent) {
	ev.Timestamp = Now()

	for c := range r.clients {
		if c == ev.SkipClient {
			continue
		}
		c.queueEvent(ev)
	}

	r.stats.Incr(StatBroadcasts)
}
