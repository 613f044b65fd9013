package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one live connection to one browser tab. It owns no room state:
// every mutation goes through the hub or a room goroutine.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	log       *log.Logger
	sessionId string
	userId    string
	username  string
	send      chan *ServerEvent
	rooms     map[string]*Room
	roomsLock sync.RWMutex
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewClient(conn *websocket.Conn, h *Hub, logger *log.Logger, sessionId, userId, username string) *Client {
	return &Client{
		conn:      conn,
		hub:       h,
		log:       logger,
		sessionId: sessionId,
		userId:    userId,
		username:  username,
		send:      make(chan *ServerEvent, 256),
		rooms:     make(map[string]*Room),
		stop:      make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeEvent(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var ev ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Println("error parsing event:", err)
			continue
		}

		ev.client = c
		c.route(&ev)
	}
}

// route forwards one inbound event to the hub. Every room-bound event takes
// the same path, so two events read from this connection commit in receipt
// order: a message sent right after a join lands after the join. Events
// missing a project id are dropped with a log notice; the live channel is
// not an error surface.
func (c *Client) route(ev *ClientEvent) {
	switch {
	case ev.Join != nil:
		if ev.Join.ProjectId == "" || ev.Join.SessionId == "" {
			c.log.Println("dropping join-project event with no project or session id")
			return
		}
	case ev.Message != nil, ev.Generating != nil, ev.Generated != nil, ev.Typing != nil, ev.Leave != nil:
		if ev.projectId() == "" {
			c.log.Println("dropping event with no project id")
			return
		}
	default:
		c.log.Println("dropping unrecognized event")
		return
	}

	select {
	case c.hub.eventChan <- ev:
	default:
		c.log.Println("hub event channel full, dropping event")
	}
}

// queueEvent enqueues an outbound event, dropping it when the connection
// cannot keep up. Delivery is best effort.
func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case c.send <- ev:
	default:
		c.log.Println("failed to queue event, channel is full")
		return false
	}

	return true
}

func serializeEvent(ev *ServerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup runs when the transport closes: it has the identical effect to an
// explicit leave-project for every joined project.
func (c *Client) cleanup() {
	c.hub.DeregisterClient(c)
	c.leaveAllRooms()
	c.stopClient()
}

func (c *Client) leaveAllRooms() {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	for _, room := range c.rooms {
		select {
		case room.leaveChan <- c:
		default:
			c.log.Printf("leave channel full for project %q", room.projectId)
		}
	}
}

func (c *Client) addRoom(r *Room) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	c.rooms[r.projectId] = r
}

func (c *Client) delRoom(projectId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()

	delete(c.rooms, projectId)
}

func (c *Client) getRoom(projectId string) *Room {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	return c.rooms[projectId]
}
