// Package reaper garbage-collects abandoned rooms and orphaned drawing
// artifacts. There is no server to run it on, so every client sweeps once
// at cold start, detached from foreground startup, and treats every error
// as non-fatal.
package reaper

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sketchdash/internal/artifact"
	"sketchdash/internal/store"
)

const (
	roomPrefix       = "rooms"
	DefaultRetention = 24 * time.Hour
)

type Reaper struct {
	store     store.Store
	artifacts artifact.Store
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func New(st store.Store, artifacts artifact.Store, retention time.Duration, log zerolog.Logger) *Reaper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Reaper{
		store:     st,
		artifacts: artifacts,
		retention: retention,
		log:       log.With().Str("component", "reaper").Logger(),
		now:       time.Now,
	}
}

// Run sweeps in a detached goroutine so app startup is never blocked.
func (r *Reaper) Run(ctx context.Context) {
	go r.Sweep(ctx)
}

// Sweep deletes every room older than the retention window together with
// its artifact namespace, then removes artifact namespaces whose room no
// longer exists. Deletes are idempotent, so arbitrarily many clients can
// sweep concurrently; a room already gone counts as swept.
func (r *Reaper) Sweep(ctx context.Context) {
	docs, err := r.store.List(ctx, roomPrefix)
	if err != nil {
		r.log.Warn().Err(err).Msg("room enumeration failed, skipping sweep")
		return
	}

	cutoff := r.now().Add(-r.retention)
	live := make(map[string]bool, len(docs))
	for key, doc := range docs {
		// The listing may include the bare collection key; only documents
		// strictly under the prefix are rooms.
		code, ok := strings.CutPrefix(key, roomPrefix+"/")
		if !ok || code == "" {
			r.log.Warn().Str("key", key).Msg("skipping non-room document")
			continue
		}
		createdAt, ok := createdAtOf(doc)
		if ok && createdAt.After(cutoff) {
			live[code] = true
			continue
		}
		if !ok {
			r.log.Warn().Str("room", code).Msg("room without createdAt, reaping")
		}
		r.reapRoom(ctx, code)
	}

	r.sweepOrphans(ctx, live)
}

func (r *Reaper) reapRoom(ctx context.Context, code string) {
	if err := r.store.Delete(ctx, roomPrefix+"/"+code); err != nil {
		r.log.Warn().Err(err).Str("room", code).Msg("room delete failed")
		return
	}
	if err := r.artifacts.DeleteRoom(ctx, code); err != nil {
		r.log.Warn().Err(err).Str("room", code).Msg("artifact delete failed")
		return
	}
	r.log.Info().Str("room", code).Msg("stale room reaped")
}

// sweepOrphans bounds storage growth from rooms deleted without their
// artifacts (e.g. a client that died mid-reap).
func (r *Reaper) sweepOrphans(ctx context.Context, live map[string]bool) {
	codes, err := r.artifacts.Rooms(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("artifact enumeration failed, skipping orphan sweep")
		return
	}
	for _, code := range codes {
		if live[code] {
			continue
		}
		if err := r.artifacts.DeleteRoom(ctx, code); err != nil {
			r.log.Warn().Err(err).Str("room", code).Msg("orphan delete failed")
			continue
		}
		r.log.Info().Str("room", code).Msg("orphaned artifacts reaped")
	}
}

func createdAtOf(doc store.Doc) (time.Time, bool) {
	raw, ok := doc["createdAt"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
