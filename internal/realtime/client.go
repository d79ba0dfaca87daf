package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 30 * time.Second
)

// WSClient adapts a websocket connection to the hub's Subscriber
// interface. Writes are serialized with a mutex because gorilla
// permits only one concurrent writer per connection.
type WSClient struct {
	conn  *websocket.Conn
	jobID string

	interval time.Duration

	mu       sync.Mutex
	closed   bool
	lastSeen time.Time
	stop     chan struct{}
}

func NewWSClient(conn *websocket.Conn, jobID string) *WSClient {
	return newWSClient(conn, jobID, heartbeatInterval)
}

func newWSClient(conn *websocket.Conn, jobID string, interval time.Duration) *WSClient {
	c := &WSClient{
		conn:     conn,
		jobID:    jobID,
		interval: interval,
		lastSeen: time.Now(),
		stop:     make(chan struct{}),
	}
	go c.heartbeatLoop()
	return c
}

// MarkActivity records an inbound client message. Heartbeats only go
// out after the peer has been silent for a full interval.
func (c *WSClient) MarkActivity() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *WSClient) idleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastSeen)
}

func (c *WSClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)
	return c.conn.Close()
}

func (c *WSClient) heartbeatLoop() {
	// Poll faster than the interval so a beat lands soon after the
	// quiet period elapses.
	ticker := time.NewTicker(c.interval / 3)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.idleFor() < c.interval {
				continue
			}
			// Application-level heartbeat so browser clients without
			// ping handlers still observe liveness.
			beat := NewProgressEvent(EventHeartbeat, c.jobID, "heartbeat", 0, "", "")
			data, err := beat.Marshal()
			if err != nil {
				continue
			}
			if err := c.Send(data); err != nil {
				_ = c.Close()
				return
			}
			c.MarkActivity()
		}
	}
}
