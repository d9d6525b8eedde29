package game

import (
	"context"
	"time"

	"sketchdash/internal/store"
)

// SubmitDrawing records a player's drawing for the round it was drawn in.
// Submissions are disjoint-key writes, so players can never conflict with
// one another. A straggler submission for an earlier round is still
// accepted into that round's own bucket, where it cannot corrupt the
// round currently in progress.
func (s *Service) SubmitDrawing(ctx context.Context, code, playerID string, round int, ref string) error {
	if ref == "" {
		return ErrValidation
	}
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return err
	}
	if _, ok := room.Players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	if round < 1 || round > room.CurrentRound {
		return ErrInvalidTransition
	}

	fields := store.Doc{
		"drawings." + roundKey(round) + "." + playerID: ref,
	}
	if round == room.CurrentRound && room.Status == StatusDrawing {
		fields["players."+playerID+".hasSubmitted"] = true
	}
	return s.store.Patch(ctx, roomDocKey(code), fields)
}

// ShouldFinishDrawing reports whether this client should attempt the
// drawing→rating transition: either every player has a slot for the
// current round, or the shared deadline has passed on its local clock.
func ShouldFinishDrawing(room Room, now time.Time) bool {
	if room.Status != StatusDrawing {
		return false
	}
	if !now.Before(room.DrawingDeadline()) {
		return true
	}
	slots := room.RoundDrawings(room.CurrentRound)
	for id := range room.Players {
		if _, ok := slots[id]; !ok {
			return false
		}
	}
	return true
}

// FinishDrawing applies the drawing→rating transition. Every client whose
// timer fires races to call it; the guard below makes the duplicates
// silent successes. Players without a submission get the placeholder ref
// so rating is never blocked on an absent drawing.
func (s *Service) FinishDrawing(ctx context.Context, code string) error {
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != StatusDrawing {
		// Already advanced by another client.
		return nil
	}

	fields := store.Doc{
		"status":          string(StatusRating),
		"ratingStartTime": s.now().UTC().Format(time.RFC3339Nano),
	}
	slots := room.RoundDrawings(room.CurrentRound)
	for id := range room.Players {
		if _, ok := slots[id]; !ok {
			fields["drawings."+roundKey(room.CurrentRound)+"."+id] = PlaceholderDrawing
		}
	}
	if err := s.store.Patch(ctx, roomDocKey(code), fields); err != nil {
		return err
	}
	s.log.Debug().Str("room", code).Int("round", room.CurrentRound).Msg("drawing phase finished")
	return nil
}
