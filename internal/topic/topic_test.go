package topic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAvoidsImmediateRepetition(t *testing.T) {
	c := NewCatalog(StaticSource{"alpha", "beta", "gamma"}, time.Hour, zerolog.Nop())

	prev := c.Next()
	require.NotEmpty(t, prev)
	for i := 0; i < 200; i++ {
		cur := c.Next()
		assert.NotEqual(t, prev, cur)
		prev = cur
	}
}

func TestNextWithSingleTopic(t *testing.T) {
	c := NewCatalog(StaticSource{"only"}, time.Hour, zerolog.Nop())
	assert.Equal(t, "only", c.Next())
	assert.Equal(t, "only", c.Next())
}

// A source list with repeated entries collapses to its distinct values,
// so the no-repeat retry in Next always terminates.
func TestNextWithDuplicateOnlyList(t *testing.T) {
	c := NewCatalog(StaticSource{"same", "same", "same"}, time.Hour, zerolog.Nop())

	assert.Equal(t, "same", c.Next())
	assert.Equal(t, "same", c.Next())
	assert.Equal(t, []string{"same"}, c.List())
}

func TestNilSourceServesDefaults(t *testing.T) {
	c := NewCatalog(nil, time.Hour, zerolog.Nop())
	assert.Contains(t, DefaultTopics, c.Next())
}

type flakySource struct {
	lists [][]string
	errs  []error
	calls int
}

func (s *flakySource) Topics(ctx context.Context) ([]string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.lists) {
		i = len(s.lists) - 1
	}
	return s.lists[i], s.errs[i]
}

func TestTTLRefresh(t *testing.T) {
	src := &flakySource{
		lists: [][]string{{"first"}, {"second"}},
		errs:  []error{nil, nil},
	}
	c := NewCatalog(src, 50*time.Millisecond, zerolog.Nop())

	assert.Equal(t, "first", c.Next())
	assert.Equal(t, "first", c.Next(), "within TTL the cache is served")
	assert.Equal(t, 1, src.calls)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, "second", c.Next())
	assert.Equal(t, 2, src.calls)
}

func TestFailedRefreshKeepsStaleList(t *testing.T) {
	src := &flakySource{
		lists: [][]string{{"good"}, nil},
		errs:  []error{nil, errors.New("catalog down")},
	}
	c := NewCatalog(src, 0, zerolog.Nop())

	assert.Equal(t, "good", c.Next())
	assert.Equal(t, "good", c.Next(), "stale list survives a failed refresh")
}

func TestListRefreshes(t *testing.T) {
	c := NewCatalog(StaticSource{"a", "b"}, time.Hour, zerolog.Nop())
	assert.ElementsMatch(t, []string{"a", "b"}, c.List())
}
