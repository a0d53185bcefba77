// Package sse implements the server-sent-events broadcaster shared by
// the API progress feed, watch mode and live preview: heartbeats, a
// client cap and best-effort ordered delivery.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	ginsse "github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// ErrChannelFull is reported to clients beyond the cap via HTTP 503.
var ErrChannelFull = fmt.Errorf("sse channel at client capacity")

// Options configure a Channel.
type Options struct {
	// Heartbeat is the comment keep-alive interval; zero disables it.
	Heartbeat time.Duration
	// MaxClients caps concurrent subscribers; zero means 64.
	MaxClients int
	// OnConnect and OnDisconnect observe the client count.
	OnConnect    func(count int)
	OnDisconnect func(count int)
}

// message is either a heartbeat comment or an encoded event.
type message struct {
	comment bool
	event   ginsse.Event
}

type subscriber struct {
	ch chan message
}

// Channel is an ordered, best-effort SSE broadcaster. Events within
// one channel preserve Send order; slow clients drop messages rather
// than block the sender.
type Channel struct {
	mu      sync.Mutex
	opts    Options
	clients map[*subscriber]struct{}
	closed  bool
	stop    chan struct{}
}

// NewChannel creates a Channel and starts its heartbeat.
func NewChannel(opts Options) *Channel {
	if opts.MaxClients <= 0 {
		opts.MaxClients = 64
	}
	ch := &Channel{
		opts:    opts,
		clients: make(map[*subscriber]struct{}),
		stop:    make(chan struct{}),
	}
	if opts.Heartbeat > 0 {
		go ch.heartbeatLoop()
	}
	return ch
}

func (c *Channel) heartbeatLoop() {
	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.dispatch(message{comment: true})
		}
	}
}

// ClientCount returns the number of live subscribers.
func (c *Channel) ClientCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// Send broadcasts one named event. The optional id becomes the SSE
// event id.
func (c *Channel) Send(event string, data interface{}, id ...string) {
	msg := message{event: ginsse.Event{Event: event, Data: data}}
	if len(id) > 0 {
		msg.event.Id = id[0]
	}
	c.dispatch(msg)
}

// Broadcast sends data as an unnamed message event.
func (c *Channel) Broadcast(data interface{}) {
	c.dispatch(message{event: ginsse.Event{Event: "message", Data: data}})
}

// Close disconnects every subscriber and stops the heartbeat.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.stop)
	for sub := range c.clients {
		close(sub.ch)
		delete(c.clients, sub)
	}
}

func (c *Channel) dispatch(msg message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for sub := range c.clients {
		select {
		case sub.ch <- msg:
		default:
			// Slow client: drop the message, keep the connection.
		}
	}
}

func (c *Channel) subscribe() (*subscriber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("sse channel closed")
	}
	if len(c.clients) >= c.opts.MaxClients {
		return nil, ErrChannelFull
	}
	sub := &subscriber{ch: make(chan message, 64)}
	c.clients[sub] = struct{}{}
	count := len(c.clients)
	if c.opts.OnConnect != nil {
		go c.opts.OnConnect(count)
	}
	return sub, nil
}

func (c *Channel) unsubscribe(sub *subscriber) {
	c.mu.Lock()
	if _, ok := c.clients[sub]; ok {
		delete(c.clients, sub)
		close(sub.ch)
	}
	count := len(c.clients)
	closed := c.closed
	c.mu.Unlock()

	if !closed && c.opts.OnDisconnect != nil {
		go c.opts.OnDisconnect(count)
	}
}

// Handler returns the gin handler that attaches a subscriber to the
// channel. Exceeding the client cap yields 503.
func (c *Channel) Handler() gin.HandlerFunc {
	return func(g *gin.Context) {
		sub, err := c.subscribe()
		if err != nil {
			g.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		defer c.unsubscribe(sub)

		g.Header("Content-Type", "text/event-stream")
		g.Header("Cache-Control", "no-cache")
		g.Header("Connection", "keep-alive")
		g.Header("X-Accel-Buffering", "no")
		g.Writer.Flush()

		for {
			select {
			case <-g.Request.Context().Done():
				return
			case msg, ok := <-sub.ch:
				if !ok {
					return
				}
				if msg.comment {
					if _, err := g.Writer.Write([]byte(": heartbeat\n\n")); err != nil {
						return
					}
				} else if err := ginsse.Encode(g.Writer, msg.event); err != nil {
					logger.Debug("[SSE] encode failed, dropping client: %v", err)
					return
				}
				g.Writer.Flush()
			}
		}
	}
}
