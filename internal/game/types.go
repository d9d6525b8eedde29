package game

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusDrawing  Status = "drawing"
	StatusRating   Status = "rating"
	StatusResults  Status = "results"
	StatusFinished Status = "finished"
)

// PlaceholderDrawing marks a round slot for a player who never submitted,
// so the rating phase is never blocked by an absent drawing.
const PlaceholderDrawing = "__none__"

const (
	MinRounds           = 1
	MaxRounds           = 10
	MinTimeLimitSeconds = 10
	MaxTimeLimitSeconds = 600

	MinScore = 1
	MaxScore = 5
)

type Settings struct {
	NumRounds        int `json:"numRounds"`
	TimeLimitSeconds int `json:"timeLimitSeconds"`
}

func (s Settings) Validate() error {
	if s.NumRounds < MinRounds || s.NumRounds > MaxRounds {
		return ErrValidation
	}
	if s.TimeLimitSeconds < MinTimeLimitSeconds || s.TimeLimitSeconds > MaxTimeLimitSeconds {
		return ErrValidation
	}
	return nil
}

type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsHost       bool   `json:"isHost"`
	JoinOrder    int    `json:"joinOrder"`
	RoundScore   int    `json:"roundScore"`
	TotalScore   int    `json:"totalScore"`
	HasSubmitted bool   `json:"hasSubmitted"`
}

// Room is the full shared state of one game session. Field names are the
// wire schema; subscribing clients on other code versions depend on them.
// Round-scoped collections are keyed by decimal round number and never
// reset in place, so a straggler write from a finished round lands under
// its own round's key.
type Room struct {
	Code             string                               `json:"code"`
	HostID           string                               `json:"hostId"`
	Status           Status                               `json:"status"`
	Settings         Settings                             `json:"settings"`
	CurrentRound     int                                  `json:"currentRound"`
	CurrentTopic     string                               `json:"currentTopic"`
	DrawingStartTime time.Time                            `json:"drawingStartTime"`
	RatingStartTime  time.Time                            `json:"ratingStartTime"`
	CreatedAt        time.Time                            `json:"createdAt"`
	Players          map[string]Player                    `json:"players"`
	Drawings         map[string]map[string]string         `json:"drawings,omitempty"`
	Ratings          map[string]map[string]map[string]int `json:"ratings,omitempty"`
}

func roundKey(r int) string { return strconv.Itoa(r) }

// RoundDrawings returns the submission slots for round r, nil if none yet.
func (r Room) RoundDrawings(round int) map[string]string {
	return r.Drawings[roundKey(round)]
}

// RoundRatings returns raterID -> targetID -> score for round r.
func (r Room) RoundRatings(round int) map[string]map[string]int {
	return r.Ratings[roundKey(round)]
}

// DrawingDeadline is a local wall-clock computation anchored to the shared
// drawingStartTime; clients may disagree by network-latency scale, which is
// fine because the transition it gates is first-past-the-post and idempotent.
func (r Room) DrawingDeadline() time.Time {
	return r.DrawingStartTime.Add(time.Duration(r.Settings.TimeLimitSeconds) * time.Second)
}

func (r Room) RatingDeadline() time.Time {
	return r.RatingStartTime.Add(time.Duration(r.Settings.TimeLimitSeconds) * time.Second)
}

// CompletedRounds is the number of rounds whose scores have been applied.
func (r Room) CompletedRounds() int {
	switch r.Status {
	case StatusResults, StatusFinished:
		return r.CurrentRound
	default:
		if r.CurrentRound > 0 {
			return r.CurrentRound - 1
		}
		return 0
	}
}
