package store

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const callTimeout = 10 * time.Second

// Remote is a Store speaking the gateway wire protocol over a websocket.
// Transport failures surface as ErrUnavailable; the caller's recovery is
// the next subscription push or an explicit user retry, never a crash.
type Remote struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextSeq int64
	nextSub int64
	pending map[int64]chan Response
	subs    map[int64]SnapshotFunc
	closed  bool
}

// Dial connects to a gateway websocket endpoint (ws://host/ws).
func Dial(ctx context.Context, url string) (*Remote, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, ErrUnavailable
	}
	r := &Remote{
		conn:    conn,
		pending: make(map[int64]chan Response),
		subs:    make(map[int64]SnapshotFunc),
	}
	go r.readLoop()
	return r, nil
}

func (r *Remote) Close() error {
	r.fail()
	return r.conn.Close()
}

func (r *Remote) Create(ctx context.Context, key string, doc Doc) error {
	resp, err := r.call(ctx, Request{Op: OpCreate, Key: key, Doc: doc})
	if err != nil {
		return err
	}
	return CodeError(resp.Error)
}

func (r *Remote) Patch(ctx context.Context, key string, fields Doc) error {
	resp, err := r.call(ctx, Request{Op: OpPatch, Key: key, Doc: fields})
	if err != nil {
		return err
	}
	return CodeError(resp.Error)
}

func (r *Remote) Delete(ctx context.Context, key string) error {
	resp, err := r.call(ctx, Request{Op: OpDelete, Key: key})
	if err != nil {
		return err
	}
	return CodeError(resp.Error)
}

func (r *Remote) ReadOnce(ctx context.Context, key string) (Doc, error) {
	resp, err := r.call(ctx, Request{Op: OpRead, Key: key})
	if err != nil {
		return nil, err
	}
	if err := CodeError(resp.Error); err != nil {
		return nil, err
	}
	return resp.Doc, nil
}

func (r *Remote) List(ctx context.Context, prefix string) (map[string]Doc, error) {
	resp, err := r.call(ctx, Request{Op: OpList, Key: prefix})
	if err != nil {
		return nil, err
	}
	if err := CodeError(resp.Error); err != nil {
		return nil, err
	}
	if resp.Docs == nil {
		return map[string]Doc{}, nil
	}
	return resp.Docs, nil
}

func (r *Remote) Subscribe(ctx context.Context, prefix string, fn SnapshotFunc) (UnsubscribeFunc, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrUnavailable
	}
	r.nextSub++
	sub := r.nextSub
	// Registered before the request goes out so the initial snapshot push
	// cannot race past an unregistered handler.
	r.subs[sub] = fn
	r.mu.Unlock()

	resp, err := r.call(ctx, Request{Op: OpSubscribe, Key: prefix, Sub: sub})
	if err == nil {
		err = CodeError(resp.Error)
	}
	if err != nil {
		r.mu.Lock()
		delete(r.subs, sub)
		r.mu.Unlock()
		return nil, err
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, sub)
			r.mu.Unlock()
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()
			_, _ = r.call(ctx, Request{Op: OpUnsubscribe, Sub: sub})
		})
	}
	return unsub, nil
}

func (r *Remote) call(ctx context.Context, req Request) (Response, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Response{}, ErrUnavailable
	}
	r.nextSeq++
	req.Seq = r.nextSeq
	ch := make(chan Response, 1)
	r.pending[req.Seq] = ch
	r.mu.Unlock()

	r.writeMu.Lock()
	err := r.conn.WriteJSON(req)
	r.writeMu.Unlock()
	if err != nil {
		r.mu.Lock()
		delete(r.pending, req.Seq)
		r.mu.Unlock()
		return Response{}, ErrUnavailable
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrUnavailable
		}
		return resp, nil
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.pending, req.Seq)
		r.mu.Unlock()
		return Response{}, ErrUnavailable
	}
}

func (r *Remote) readLoop() {
	for {
		var resp Response
		if err := r.conn.ReadJSON(&resp); err != nil {
			r.fail()
			return
		}
		switch resp.Event {
		case EventSnapshot:
			r.mu.Lock()
			fn := r.subs[resp.Sub]
			r.mu.Unlock()
			if fn == nil {
				continue
			}
			if resp.Deleted {
				fn(resp.Key, nil)
			} else {
				fn(resp.Key, resp.Doc)
			}
		case EventResult:
			r.mu.Lock()
			ch := r.pending[resp.Seq]
			delete(r.pending, resp.Seq)
			r.mu.Unlock()
			if ch != nil {
				ch <- resp
			}
		}
	}
}

// fail marks the connection dead and releases every waiting caller.
func (r *Remote) fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for seq, ch := range r.pending {
		close(ch)
		delete(r.pending, seq)
	}
	r.subs = make(map[int64]SnapshotFunc)
}
