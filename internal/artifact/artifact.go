// Package artifact stores drawing blobs, namespaced by room code. The
// size and content-type limits live here, at the storage boundary, not in
// the game core.
package artifact

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const DefaultMaxBytes = 1 << 20 // 1 MiB per drawing

var (
	ErrTooLarge           = errors.New("artifact: exceeds size limit")
	ErrUnsupportedContent = errors.New("artifact: content type must be image/*")
	ErrNotFound           = errors.New("artifact: not found")
)

// Store is the blob side of the shared store: opaque refs in, bytes out.
// Room-level enumeration and deletion exist for the reaper.
type Store interface {
	Put(ctx context.Context, roomCode string, data []byte, contentType string) (ref string, err error)
	Get(ctx context.Context, ref string) (data []byte, contentType string, err error)
	Rooms(ctx context.Context) ([]string, error)
	DeleteRoom(ctx context.Context, roomCode string) error
}

type blob struct {
	data        []byte
	contentType string
}

// Memory is the in-process Store used by tests and the gateway.
type Memory struct {
	maxBytes int

	mu    sync.Mutex
	rooms map[string]map[string]blob // roomCode -> artifactID -> blob
}

func NewMemory(maxBytes int) *Memory {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Memory{maxBytes: maxBytes, rooms: make(map[string]map[string]blob)}
}

func (m *Memory) Put(ctx context.Context, roomCode string, data []byte, contentType string) (string, error) {
	if len(data) > m.maxBytes {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedContent
	}
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[roomCode] == nil {
		m.rooms[roomCode] = make(map[string]blob)
	}
	m.rooms[roomCode][id] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return refFor(roomCode, id), nil
}

func (m *Memory) Get(ctx context.Context, ref string) ([]byte, string, error) {
	roomCode, id, ok := splitRef(ref)
	if !ok {
		return nil, "", ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rooms[roomCode][id]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), b.data...), b.contentType, nil
}

func (m *Memory) Rooms(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		out = append(out, code)
	}
	return out, nil
}

// DeleteRoom removes every artifact under the room's namespace. Removing
// an absent namespace is a success.
func (m *Memory) DeleteRoom(ctx context.Context, roomCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomCode)
	return nil
}

func refFor(roomCode, id string) string {
	return "artifacts/" + roomCode + "/" + id
}

func splitRef(ref string) (roomCode, id string, ok bool) {
	parts := strings.Split(ref, "/")
	if len(parts) != 3 || parts[0] != "artifacts" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
