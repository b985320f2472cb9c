package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrooms/internal/message"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum inbound frame size; a full send_message event fits well under this.
	sendBufferSize = 256
)

// Client is one connected session: it owns a fresh handle, forwards inbound
// join/send events, and receives broadcast deliveries on its send channel.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	handle string

	send chan []byte
	done chan struct{}

	closeOnce   sync.Once
	cleanupOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		handle: uuid.NewString(),
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Deliver queues a payload for the session without blocking. It reports
// false once the session is closed, or when the peer is so far behind that
// its buffer is full, in which case the connection is dropped.
func (c *Client) Deliver(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		c.Close()
		return false
	}
}

// Close tears down the transport. Registry cleanup happens in the read
// pump's exit path, so membership outlives Close only briefly.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump pumps inbound events from the websocket to the hub. Events are
// handled in arrival order on this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.cleanupOnce.Do(func() { c.hub.unregister(c) })
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error: %v", err)
			}
			break
		}
		c.handleEvent(raw)
	}
}

func (c *Client) handleEvent(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.Deliver(errorEvent("invalid event payload"))
		return
	}

	switch env.Event {
	case EventJoinRoom:
		var data joinRoomData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.RoomID == "" {
			c.Deliver(errorEvent("roomId is required"))
			return
		}
		c.hub.registry.Join(data.RoomID, c.handle, c)
		c.Deliver(joinedRoomEvent(data.RoomID))

	case EventSendMessage:
		var data sendMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			c.Deliver(errorEvent("invalid send_message payload"))
			return
		}
		// The store call is not tied to the socket's lifetime: a disconnect
		// mid-send must not cancel a commit already in flight.
		_, err := c.hub.SendMessage(context.Background(), data.RoomID, data.SenderName, data.Content)
		if err != nil {
			c.Deliver(errorEvent(sendErrorMessage(err, data.RoomID)))
		}

	default:
		c.Deliver(errorEvent("unknown event: " + env.Event))
	}
}

func sendErrorMessage(err error, roomID string) string {
	var verr *message.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	if errors.Is(err, message.ErrRoomNotFound) {
		return "Room with ID " + roomID + " not found"
	}
	return "failed to send message"
}

// writePump pumps payloads from the send channel to the websocket and keeps
// the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
