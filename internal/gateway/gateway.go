// Package gateway is the reference deployment of the shared room store: a
// websocket endpoint that mirrors the store contract frame for frame and
// fans snapshot pushes out to subscribers.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sketchdash/internal/store"
)

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 256
	maxFrameBytes  = 1 << 20
)

type Gateway struct {
	store    store.Store
	log      zerolog.Logger
	limit    rate.Limit
	burst    int
	upgrader websocket.Upgrader
}

// New wraps a store. Each connection gets its own token bucket of limit
// requests per second with the given burst.
func New(st store.Store, log zerolog.Logger, limit rate.Limit, burst int) *Gateway {
	if limit <= 0 {
		limit = 50
	}
	if burst <= 0 {
		burst = 100
	}
	return &Gateway{
		store: st,
		log:   log.With().Str("component", "gateway").Logger(),
		limit: limit,
		burst: burst,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Mount registers /health and /ws on the router.
func (g *Gateway) Mount(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})
	r.GET("/ws", g.handleWS)
}

type client struct {
	conn *websocket.Conn
	send chan store.Response

	mu     sync.Mutex
	subs   map[int64]store.UnsubscribeFunc
	closed bool
}

func (g *Gateway) handleWS(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan store.Response, sendBufferSize),
		subs: make(map[int64]store.UnsubscribeFunc),
	}
	go g.writePump(cl)
	g.readPump(cl)
}

func (g *Gateway) readPump(cl *client) {
	defer g.drop(cl)
	cl.conn.SetReadLimit(maxFrameBytes)
	limiter := rate.NewLimiter(g.limit, g.burst)

	for {
		var req store.Request
		if err := cl.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debug().Err(err).Msg("client gone")
			}
			return
		}
		if !limiter.Allow() {
			cl.push(store.Response{Event: store.EventResult, Seq: req.Seq, Error: "rate_limited"})
			continue
		}
		g.handle(cl, req)
	}
}

func (g *Gateway) handle(cl *client, req store.Request) {
	ctx := context.Background()
	resp := store.Response{Event: store.EventResult, Seq: req.Seq}

	switch req.Op {
	case store.OpCreate:
		resp.Error = store.ErrorCode(g.store.Create(ctx, req.Key, req.Doc))
	case store.OpPatch:
		resp.Error = store.ErrorCode(g.store.Patch(ctx, req.Key, req.Doc))
	case store.OpDelete:
		resp.Error = store.ErrorCode(g.store.Delete(ctx, req.Key))
	case store.OpRead:
		doc, err := g.store.ReadOnce(ctx, req.Key)
		resp.Doc = doc
		resp.Error = store.ErrorCode(err)
	case store.OpList:
		docs, err := g.store.List(ctx, req.Key)
		resp.Docs = docs
		resp.Error = store.ErrorCode(err)
	case store.OpSubscribe:
		g.subscribe(cl, req)
		return
	case store.OpUnsubscribe:
		cl.mu.Lock()
		unsub := cl.subs[req.Sub]
		delete(cl.subs, req.Sub)
		cl.mu.Unlock()
		if unsub != nil {
			unsub()
		}
	default:
		resp.Error = "bad_op"
	}
	cl.push(resp)
}

func (g *Gateway) subscribe(cl *client, req store.Request) {
	sub := req.Sub
	unsub, err := g.store.Subscribe(context.Background(), req.Key, func(key string, doc store.Doc) {
		cl.push(store.Response{
			Event:   store.EventSnapshot,
			Sub:     sub,
			Key:     key,
			Doc:     doc,
			Deleted: doc == nil,
		})
	})
	resp := store.Response{Event: store.EventResult, Seq: req.Seq, Sub: sub}
	if err != nil {
		resp.Error = store.ErrorCode(err)
		cl.push(resp)
		return
	}
	cl.mu.Lock()
	cl.subs[sub] = unsub
	cl.mu.Unlock()
	cl.push(resp)
}

func (g *Gateway) writePump(cl *client) {
	for resp := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteJSON(resp); err != nil {
			g.drop(cl)
			return
		}
	}
}

// push queues a frame, dropping the connection when the client cannot keep
// up rather than blocking the store's fanout. The send happens under the
// mutex so a concurrent drop cannot close the channel mid-send.
func (cl *client) push(resp store.Response) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.closed {
		return
	}
	select {
	case cl.send <- resp:
	default:
		cl.conn.Close()
	}
}

func (g *Gateway) drop(cl *client) {
	cl.mu.Lock()
	if cl.closed {
		cl.mu.Unlock()
		return
	}
	cl.closed = true
	subs := cl.subs
	cl.subs = nil
	cl.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	close(cl.send)
	cl.conn.Close()
}
