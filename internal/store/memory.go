package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Memory is the in-process Store. It backs all tests and the gateway's
// fanout; every mutation is followed by synchronous snapshot pushes to
// matching subscribers, which keeps test ordering deterministic.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]Doc
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	prefix string
	fn     SnapshotFunc
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]Doc),
		subs: make(map[int]*subscription),
	}
}

func (m *Memory) Create(ctx context.Context, key string, doc Doc) error {
	m.mu.Lock()
	if _, ok := m.docs[key]; ok {
		m.mu.Unlock()
		return ErrExists
	}
	m.docs[key] = deepCopy(doc)
	snap := deepCopy(m.docs[key])
	subs := m.matching(key)
	m.mu.Unlock()

	notify(subs, key, snap)
	return nil
}

func (m *Memory) Patch(ctx context.Context, key string, fields Doc) error {
	m.mu.Lock()
	doc, ok := m.docs[key]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	for path, v := range fields {
		SetPath(doc, path, deepCopyValue(v))
	}
	snap := deepCopy(doc)
	subs := m.matching(key)
	m.mu.Unlock()

	notify(subs, key, snap)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.docs[key]
	delete(m.docs, key)
	var subs []*subscription
	if existed {
		subs = m.matching(key)
	}
	m.mu.Unlock()

	notify(subs, key, nil)
	return nil
}

func (m *Memory) ReadOnce(ctx context.Context, key string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(doc), nil
}

func (m *Memory) List(ctx context.Context, prefix string) (map[string]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Doc)
	for key, doc := range m.docs {
		if underPrefix(key, prefix) {
			out[key] = deepCopy(doc)
		}
	}
	return out, nil
}

func (m *Memory) Subscribe(ctx context.Context, prefix string, fn SnapshotFunc) (UnsubscribeFunc, error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = &subscription{prefix: prefix, fn: fn}
	var initial []struct {
		key string
		doc Doc
	}
	for key, doc := range m.docs {
		if underPrefix(key, prefix) {
			initial = append(initial, struct {
				key string
				doc Doc
			}{key, deepCopy(doc)})
		}
	}
	m.mu.Unlock()

	for _, s := range initial {
		fn(s.key, s.doc)
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
	return unsub, nil
}

func (m *Memory) matching(key string) []*subscription {
	var out []*subscription
	for _, s := range m.subs {
		if underPrefix(key, s.prefix) {
			out = append(out, s)
		}
	}
	return out
}

func notify(subs []*subscription, key string, doc Doc) {
	for _, s := range subs {
		if doc == nil {
			s.fn(key, nil)
			continue
		}
		s.fn(key, deepCopy(doc))
	}
}

func underPrefix(key, prefix string) bool {
	if prefix == "" || key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+"/")
}

// deepCopy round-trips through JSON so callers can never alias internal
// state. Documents are JSON-shaped by contract.
func deepCopy(doc Doc) Doc {
	b, err := json.Marshal(doc)
	if err != nil {
		return Doc{}
	}
	var out Doc
	if err := json.Unmarshal(b, &out); err != nil {
		return Doc{}
	}
	return out
}

func deepCopyValue(v any) any {
	switch v.(type) {
	case nil, bool, string, float64, int, int64:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
