package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRatingValidation(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	code := startedRoom(t, svc)

	// Still in drawing.
	assert.ErrorIs(t, svc.SubmitRating(ctx, code, "b", "a", 3), ErrInvalidTransition)

	clock.advance(31 * time.Second)
	require.NoError(t, svc.FinishDrawing(ctx, code))

	assert.ErrorIs(t, svc.SubmitRating(ctx, code, "b", "a", 0), ErrValidation)
	assert.ErrorIs(t, svc.SubmitRating(ctx, code, "b", "a", 6), ErrValidation)
	assert.ErrorIs(t, svc.SubmitRating(ctx, code, "b", "b", 3), ErrSelfRating)
	assert.ErrorIs(t, svc.SubmitRating(ctx, code, "ghost", "a", 3), ErrPlayerNotFound)
	assert.ErrorIs(t, svc.SubmitRating(ctx, code, "b", "ghost", 3), ErrPlayerNotFound)

	require.NoError(t, svc.SubmitRating(ctx, code, "b", "a", 5))
	room, err := svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 5, room.RoundRatings(1)["b"]["a"])
}

// End-to-end scenario: two rounds, ratings 5 and 3 for A in round 1 and
// a sum of 4 in round 2 give roundScore 8 and totalScore 12.
func TestTwoRoundScoringScenario(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	code := startedRoom(t, svc) // players a (host), b, c

	// Round 1.
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.SubmitDrawing(ctx, code, id, 1, "artifacts/"+code+"/"+id))
	}
	require.NoError(t, svc.FinishDrawing(ctx, code))
	require.NoError(t, svc.SubmitRating(ctx, code, "b", "a", 5))
	require.NoError(t, svc.SubmitRating(ctx, code, "c", "a", 3))
	require.NoError(t, svc.SubmitRating(ctx, code, "a", "b", 2))
	require.NoError(t, svc.FinishRating(ctx, code))

	room, err := svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, StatusResults, room.Status)
	assert.Equal(t, 8, room.Players["a"].RoundScore)
	assert.Equal(t, 8, room.Players["a"].TotalScore)
	assert.Equal(t, 2, room.Players["b"].TotalScore)
	assert.Equal(t, 0, room.Players["c"].TotalScore)

	// Round 2.
	require.NoError(t, svc.NextRound(ctx, code, "a"))
	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, room.CurrentRound)
	assert.Equal(t, 0, room.Players["a"].RoundScore)
	assert.False(t, room.Players["a"].HasSubmitted)

	clock.advance(31 * time.Second)
	require.NoError(t, svc.FinishDrawing(ctx, code))
	require.NoError(t, svc.SubmitRating(ctx, code, "b", "a", 1))
	require.NoError(t, svc.SubmitRating(ctx, code, "c", "a", 3))
	require.NoError(t, svc.FinishRating(ctx, code))

	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 4, room.Players["a"].RoundScore)
	assert.Equal(t, 12, room.Players["a"].TotalScore)

	// Last round done: the room terminates.
	require.NoError(t, svc.NextRound(ctx, code, "a"))
	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, room.Status)
	assert.Equal(t, 12, room.Players["a"].TotalScore)
}

// A player who never submits still accrues whatever ratings they receive,
// possibly zero, and never blocks the round.
func TestAbsentPlayerScoresReceivedRatingsOnly(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	code := startedRoom(t, svc)

	require.NoError(t, svc.SubmitDrawing(ctx, code, "a", 1, "artifacts/x/a"))
	require.NoError(t, svc.SubmitDrawing(ctx, code, "b", 1, "artifacts/x/b"))
	clock.advance(31 * time.Second)
	require.NoError(t, svc.FinishDrawing(ctx, code))

	room, err := svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderDrawing, room.RoundDrawings(1)["c"])

	require.NoError(t, svc.SubmitRating(ctx, code, "a", "b", 4))
	require.NoError(t, svc.SubmitRating(ctx, code, "b", "c", 2))
	require.NoError(t, svc.FinishRating(ctx, code))

	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, room.Players["c"].RoundScore)
	assert.Equal(t, 0, room.Players["a"].RoundScore)
}

func TestShouldFinishRating(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	code := startedRoom(t, svc)

	clock.advance(31 * time.Second)
	require.NoError(t, svc.FinishDrawing(ctx, code))

	room, err := svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.False(t, ShouldFinishRating(room, clock.Now()))
	assert.True(t, ShouldFinishRating(room, clock.Now().Add(30*time.Second)))

	pairs := [][2]string{
		{"a", "b"}, {"a", "c"},
		{"b", "a"}, {"b", "c"},
		{"c", "a"},
	}
	for _, p := range pairs {
		require.NoError(t, svc.SubmitRating(ctx, code, p[0], p[1], 3))
	}
	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.False(t, ShouldFinishRating(room, clock.Now()), "one rating still missing")

	require.NoError(t, svc.SubmitRating(ctx, code, "c", "b", 3))
	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.True(t, ShouldFinishRating(room, clock.Now()))
}

func TestNextRoundAuthorization(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	code := startedRoom(t, svc)

	// A lobby room has no round to advance from.
	lobbyCode, err := svc.CreateRoom(ctx, "h", "Host", validSettings())
	require.NoError(t, err)
	assert.ErrorIs(t, svc.NextRound(ctx, lobbyCode, "h"), ErrInvalidTransition)

	// During drawing the call is indistinguishable from a double-tap after
	// an advance, so it is a harmless no-op.
	require.NoError(t, svc.NextRound(ctx, code, "a"))
	room, err := svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentRound)

	clock.advance(31 * time.Second)
	require.NoError(t, svc.FinishDrawing(ctx, code))
	require.NoError(t, svc.FinishRating(ctx, code))

	assert.ErrorIs(t, svc.NextRound(ctx, code, "b"), ErrNotHost)
	require.NoError(t, svc.NextRound(ctx, code, "a"))

	// Host double-tap: the room already advanced, second call is a no-op.
	require.NoError(t, svc.NextRound(ctx, code, "a"))
	room, err = svc.ReadRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, room.CurrentRound)
	assert.Equal(t, StatusDrawing, room.Status)
}

func TestLeaderboard(t *testing.T) {
	room := Room{Players: map[string]Player{
		"a": {ID: "a", Name: "Alice", JoinOrder: 0, TotalScore: 7},
		"b": {ID: "b", Name: "Bob", JoinOrder: 1, TotalScore: 9},
		"c": {ID: "c", Name: "Carol", JoinOrder: 2, TotalScore: 7},
		"d": {ID: "d", Name: "Dave", JoinOrder: 3, TotalScore: 0},
	}}

	want := []string{"b", "a", "c", "d"}
	for i := 0; i < 5; i++ {
		got := Leaderboard(room)
		require.Len(t, got, 4)
		for j, id := range want {
			assert.Equal(t, id, got[j].PlayerID)
		}
	}
}

func TestAverageScoreIsDerived(t *testing.T) {
	room := Room{
		Status:       StatusResults,
		CurrentRound: 2,
		Players:      map[string]Player{"a": {ID: "a", TotalScore: 9}},
	}
	assert.InDelta(t, 4.5, AverageScore(room, "a"), 1e-9)

	lobby := Room{Status: StatusLobby, Players: map[string]Player{"a": {ID: "a"}}}
	assert.Zero(t, AverageScore(lobby, "a"))
}
