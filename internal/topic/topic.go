// Package topic serves drawing topics. The catalog is an explicit service
// object holding its own cached list with TTL refresh; sources are
// constructor dependencies so nothing lives in package-level state.
package topic

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Source provides the raw topic list.
type Source interface {
	Topics(ctx context.Context) ([]string, error)
}

// DefaultTopics seeds the catalog when no source is configured.
var DefaultTopics = []string{
	"a cat riding a bicycle",
	"breakfast on the moon",
	"a very tired robot",
	"the world's worst haircut",
	"a dragon at the dentist",
	"rush hour under the sea",
	"a snowman on vacation",
	"the last slice of pizza",
	"a ghost doing laundry",
	"dinosaurs at a birthday party",
	"a wizard stuck in traffic",
	"an octopus playing drums",
}

type Catalog struct {
	source Source
	ttl    time.Duration
	log    zerolog.Logger

	mu        sync.Mutex
	topics    []string
	fetchedAt time.Time
	last      string
	rand      *rand.Rand
}

// NewCatalog builds a catalog over source, refreshing the cached list once
// ttl has elapsed. A nil source serves DefaultTopics forever.
func NewCatalog(source Source, ttl time.Duration, log zerolog.Logger) *Catalog {
	return &Catalog{
		source: source,
		ttl:    ttl,
		log:    log.With().Str("component", "topics").Logger(),
		topics: append([]string(nil), DefaultTopics...),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a topic, never repeating the immediately previous one when
// more than one topic is available.
func (c *Catalog) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refreshLocked()
	if len(c.topics) == 0 {
		return ""
	}
	t := c.topics[c.rand.Intn(len(c.topics))]
	for len(c.topics) > 1 && t == c.last {
		t = c.topics[c.rand.Intn(len(c.topics))]
	}
	c.last = t
	return t
}

// List returns the current topic list, refreshing it first if stale.
func (c *Catalog) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked()
	return append([]string(nil), c.topics...)
}

// refreshLocked replaces the cache from the source once the TTL elapsed.
// A failed refresh keeps serving the stale list.
func (c *Catalog) refreshLocked() {
	if c.source == nil {
		return
	}
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	topics, err := c.source.Topics(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("topic refresh failed, serving cached list")
		c.fetchedAt = time.Now()
		return
	}
	if topics = dedupe(topics); len(topics) > 0 {
		c.topics = topics
	}
	c.fetchedAt = time.Now()
}

// dedupe keeps the first occurrence of each topic. A remote catalog gives
// no uniqueness guarantee, and the no-repeat retry in Next relies on a
// multi-entry list having more than one distinct value.
func dedupe(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// StaticSource serves a fixed list.
type StaticSource []string

func (s StaticSource) Topics(ctx context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}
