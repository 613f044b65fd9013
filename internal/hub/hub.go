package hub

import (
	"context"
	"log"
	"sync"

	"github.com/johnrmarty/chat-prd/internal/stats"
)

const (
	StatActiveConnections = "NumActiveConnections"
	StatActiveRooms       = "NumActiveRooms"
	StatActiveSessions    = "NumActiveSessions"
	StatBroadcasts        = "NumBroadcasts"
)

type stopReq struct {
	done chan struct{}
}

type closeRoomReq struct {
	projectId string
	done      chan struct{}
}

// Hub is the composition root for live collaboration state. It owns the room
// map and only routes: every room-bound client event is forwarded to the
// right room goroutine, and rooms are created and torn down here, so room
// lifetime has exactly one writer.
//
// All client events for a connection funnel through eventChan and land on a
// single per-room channel, so two events read from the same connection commit
// in receipt order. In particular a message sent right after a join is
// processed after the join, and a leave followed by a rejoin cannot resolve
// backwards.
type Hub struct {
	log            *log.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	eventChan      chan *ClientEvent
	unloadRoomChan chan string
	closeRoomChan  chan closeRoomReq
	rooms          map[string]*Room
	stop           chan stopReq
}

func NewHub(logger *log.Logger, sp stats.StatsProvider) *Hub {
	for _, name := range []string{
		StatActiveConnections,
		StatActiveRooms,
		StatActiveSessions,
		StatBroadcasts,
	} {
		sp.RegisterMetric(name)
	}

	return &Hub{
		log:            logger,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		eventChan:      make(chan *ClientEvent, 256),
		unloadRoomChan: make(chan string, 256),
		closeRoomChan:  make(chan closeRoomReq),
		rooms:          make(map[string]*Room),
		stop:           make(chan stopReq),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.eventChan:
			h.routeEvent(ev)
		case projectId := <-h.unloadRoomChan:
			h.unloadRoom(projectId)
		case req := <-h.closeRoomChan:
			h.closeRoom(req.projectId)
			close(req.done)
		case req := <-h.stop:
			h.log.Println("shutting down rooms")
			for projectId, room := range h.rooms {
				resp := make(chan bool)
				room.exit <- exitReq{force: true, resp: resp}
				<-resp
				delete(h.rooms, projectId)
				h.stats.Decr(StatActiveRooms)
			}

			close(req.done)
			return
		}
	}
}

// routeEvent forwards one client event to its room's channel. A join creates
// the room on demand; everything else for an unknown project is dropped.
func (h *Hub) routeEvent(ev *ClientEvent) {
	projectId := ev.projectId()

	room, ok := h.rooms[projectId]
	if !ok {
		if ev.Join == nil {
			h.log.Printf("dropping event for unknown project %q", projectId)
			return
		}
		room = newRoom(projectId, h)
		h.rooms[projectId] = room
		h.stats.Incr(StatActiveRooms)
		go room.start()
	}

	select {
	case room.events <- ev:
	default:
		h.log.Printf("event channel full on room %q", projectId)
	}
}

// unloadRoom tears down an empty room. The room re-checks emptiness before
// exiting, so an unload that raced with a join is declined and the room
// stays registered.
func (h *Hub) unloadRoom(projectId string) {
	room, ok := h.rooms[projectId]
	if !ok {
		return
	}

	resp := make(chan bool)
	room.exit <- exitReq{resp: resp}
	if !<-resp {
		return
	}

	delete(h.rooms, projectId)
	h.stats.Decr(StatActiveRooms)
	h.log.Printf("removed room %q", projectId)
}

func (h *Hub) closeRoom(projectId string) {
	room, ok := h.rooms[projectId]
	if !ok {
		return
	}

	resp := make(chan bool)
	room.exit <- exitReq{force: true, resp: resp}
	<-resp

	delete(h.rooms, projectId)
	h.stats.Decr(StatActiveRooms)
	h.log.Printf("closed room %q", projectId)
}

// CloseRoom forcibly tears down a project's room, disconnecting it from any
// remaining participants. Used when the project itself is deleted.
func (h *Hub) CloseRoom(ctx context.Context, projectId string) error {
	req := closeRoomReq{projectId: projectId, done: make(chan struct{})}

	select {
	case h.closeRoomChan <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) RegisterClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	h.clients[c] = struct{}{}
	h.stats.Incr(StatActiveConnections)
}

func (h *Hub) DeregisterClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	h.stats.Decr(StatActiveConnections)
}

func (h *Hub) Shutdown(ctx context.Context) error {
	h.clientsLock.Lock()
	for c := range h.clients {
		c.stopClient()
	}
	h.clientsLock.Unlock()

	req := stopReq{done: make(chan struct{})}
	select {
	case h.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
