package game

import (
	"context"
	"sync"

	"sketchdash/internal/store"
)

// Watch subscribes to a room and returns a conflated channel of immutable
// snapshots: the local view is always a pure projection of the latest
// pushed value, never an incremental mutation. Intermediate snapshots a
// slow consumer missed are dropped in favor of the newest. The channel
// closes when the room is deleted; the returned func cancels the watch.
func (s *Service) Watch(ctx context.Context, code string) (<-chan Room, store.UnsubscribeFunc, error) {
	ch := make(chan Room, 1)
	var mu sync.Mutex
	closed := false

	unsub, err := s.store.Subscribe(ctx, roomDocKey(code), func(key string, doc store.Doc) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		if doc == nil {
			closed = true
			close(ch)
			return
		}
		room, err := decodeRoom(doc)
		if err != nil {
			s.log.Warn().Err(err).Str("room", code).Msg("dropping undecodable snapshot")
			return
		}
		select {
		case <-ch:
		default:
		}
		ch <- room
	})
	if err != nil {
		return nil, nil, err
	}

	stop := func() {
		unsub()
		mu.Lock()
		if !closed {
			closed = true
			close(ch)
		}
		mu.Unlock()
	}
	return ch, stop, nil
}
