package game

import (
	"context"
	"sort"
	"time"

	"sketchdash/internal/store"
)

// SubmitRating records a 1..5 score from rater to target for the current
// round. Ratings are disjoint-key writes per rater.
func (s *Service) SubmitRating(ctx context.Context, code, raterID, targetID string, score int) error {
	if score < MinScore || score > MaxScore {
		return ErrValidation
	}
	if raterID == targetID {
		return ErrSelfRating
	}
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return err
	}
	if _, ok := room.Players[raterID]; !ok {
		return ErrPlayerNotFound
	}
	if _, ok := room.Players[targetID]; !ok {
		return ErrPlayerNotFound
	}
	if room.Status != StatusRating {
		return ErrInvalidTransition
	}

	return s.store.Patch(ctx, roomDocKey(code), store.Doc{
		"ratings." + roundKey(room.CurrentRound) + "." + raterID + "." + targetID: score,
	})
}

// ShouldFinishRating reports whether this client should attempt the
// rating→results transition: every player has rated every other player,
// or the rating deadline has passed. The deadline keeps an abandoned
// player from stalling the room forever.
func ShouldFinishRating(room Room, now time.Time) bool {
	if room.Status != StatusRating {
		return false
	}
	if !now.Before(room.RatingDeadline()) {
		return true
	}
	given := room.RoundRatings(room.CurrentRound)
	for raterID := range room.Players {
		for targetID := range room.Players {
			if raterID == targetID {
				continue
			}
			if _, ok := given[raterID][targetID]; !ok {
				return false
			}
		}
	}
	return true
}

// FinishRating applies the rating→results transition and the round's score
// aggregation. Both round and total scores are pure functions of the
// pre-transition snapshot, so two clients racing here write identical
// values; the status guard stops a later duplicate from double-counting.
func (s *Service) FinishRating(ctx context.Context, code string) error {
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != StatusRating {
		return nil
	}

	fields := store.Doc{
		"status": string(StatusResults),
	}
	for id, p := range room.Players {
		rs := roundScore(room, room.CurrentRound, id)
		fields["players."+id+".roundScore"] = rs
		fields["players."+id+".totalScore"] = p.TotalScore + rs
	}
	if err := s.store.Patch(ctx, roomDocKey(code), fields); err != nil {
		return err
	}
	s.log.Debug().Str("room", code).Int("round", room.CurrentRound).Msg("round scored")
	return nil
}

// NextRound is the host-only results→drawing transition, or
// results→finished after the last round. Calling it again once the room
// has moved on is a silent success.
func (s *Service) NextRound(ctx context.Context, code, requesterID string) error {
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return err
	}
	if requesterID != room.HostID {
		return ErrNotHost
	}
	switch room.Status {
	case StatusResults:
	case StatusDrawing, StatusFinished:
		return nil
	default:
		return ErrInvalidTransition
	}

	if room.CurrentRound >= room.Settings.NumRounds {
		return s.store.Patch(ctx, roomDocKey(code), store.Doc{
			"status": string(StatusFinished),
		})
	}

	fields := store.Doc{
		"status":           string(StatusDrawing),
		"currentRound":     room.CurrentRound + 1,
		"currentTopic":     s.topics.Next(),
		"drawingStartTime": s.now().UTC().Format(time.RFC3339Nano),
	}
	for id := range room.Players {
		fields["players."+id+".roundScore"] = 0
		fields["players."+id+".hasSubmitted"] = false
	}
	return s.store.Patch(ctx, roomDocKey(code), fields)
}

// roundScore is the sum of all ratings given to playerID in the round by
// raters other than the player.
func roundScore(room Room, round int, playerID string) int {
	total := 0
	for raterID, targets := range room.RoundRatings(round) {
		if raterID == playerID {
			continue
		}
		total += targets[playerID]
	}
	return total
}

// Standing is one leaderboard row.
type Standing struct {
	PlayerID   string
	Name       string
	TotalScore int
}

// Leaderboard ranks players by descending total score; ties break by join
// order, then id, so repeated computation is stable on every client.
func Leaderboard(room Room) []Standing {
	players := make([]Player, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].TotalScore != players[j].TotalScore {
			return players[i].TotalScore > players[j].TotalScore
		}
		if players[i].JoinOrder != players[j].JoinOrder {
			return players[i].JoinOrder < players[j].JoinOrder
		}
		return players[i].ID < players[j].ID
	})
	out := make([]Standing, len(players))
	for i, p := range players {
		out[i] = Standing{PlayerID: p.ID, Name: p.Name, TotalScore: p.TotalScore}
	}
	return out
}

// AverageScore is the derived per-round display value, never persisted.
func AverageScore(room Room, playerID string) float64 {
	completed := room.CompletedRounds()
	if completed == 0 {
		return 0
	}
	return float64(room.Players[playerID].TotalScore) / float64(completed)
}
