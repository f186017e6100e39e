package socket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Options struct {
	URL               string
	ReconnectInterval time.Duration
	Header            http.Header
	Dialer            *websocket.Dialer
}

// client keeps one websocket to the backend open and redials when it drops
type client struct {
	me     string
	opts   Options
	outbox chan types.Outbound

	mu        sync.Mutex
	connected bool
}

func New(deviceID string, opts Options) types.MessageHandler {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 2 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &client{me: deviceID, opts: opts, outbox: make(chan types.Outbound, 100)}
}

func (c *client) Receive(message types.Message) {
	out, ok := message.Message.(types.Outbound)
	if !ok {
		return
	}
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		log.Printf("Socket: not connected, dropping %s", out.EventName())
		return
	}
	select {
	case c.outbox <- out:
	default:
		log.Printf("Socket: outbox full, dropping %s", out.EventName())
	}
}

func (c *client) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	for {
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Socket: dial %s failed: %v", c.opts.URL, err)
		} else {
			log.Printf("Socket: connected to %s", c.opts.URL)
			c.setConnected(true)
			post(types.Wrap(c.me, types.SocketConnected{}))

			reason := c.serve(ctx, conn, post)

			c.setConnected(false)
			if ctx.Err() != nil {
				log.Println("Socket shutting down")
				return
			}
			log.Printf("Socket: disconnected: %s", reason)
			post(types.Wrap(c.me, types.SocketDisconnected{Reason: reason}))
		}

		select {
		case <-ctx.Done():
			log.Println("Socket shutting down")
			return
		case <-time.After(c.opts.ReconnectInterval):
		}
	}
}

func (c *client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
	if !v {
		// anything queued for the old connection is stale
		for {
			select {
			case <-c.outbox:
			default:
				return
			}
		}
	}
}

// serve runs the read loop until the connection fails or ctx is cancelled
func (c *client) serve(ctx context.Context, conn *websocket.Conn, post types.PostFn) string {
	done := make(chan struct{})
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		c.writeLoop(ctx, conn, done)
	}()
	defer func() {
		close(done)
		writer.Wait()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Socket: read error: %v", err)
			}
			return err.Error()
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		event, payload, err := Decode(message)
		if errors.Is(err, ErrUnknownEvent) {
			log.Printf("Socket: dropping unknown event %s", event)
			continue
		}
		if err != nil {
			log.Printf("Socket: %v", err)
			continue
		}
		post(types.CreateMessage(types.TypeName(payload), "backend", c.me, payload))
	}
}

func (c *client) writeLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// unblocks the read loop
			conn.Close()
			return
		case out := <-c.outbox:
			b, err := Encode(out)
			if err != nil {
				log.Printf("Socket: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Printf("Socket: write %s failed: %v", out.EventName(), err)
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
