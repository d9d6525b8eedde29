// Package game is the client-side room protocol: lifecycle transitions,
// round coordination and scoring, all executed redundantly by whichever
// device observes the triggering condition first. There is no server-side
// arbiter; every shared-key write is an idempotent function of the
// snapshot it was computed from, so racing duplicates converge on the
// same post-transition state.
package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"sketchdash/internal/store"
)

const (
	codeLength      = 5
	maxCodeAttempts = 8
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// TopicSource hands out drawing topics, avoiding immediate repetition.
type TopicSource interface {
	Next() string
}

type Service struct {
	store  store.Store
	topics TopicSource
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(st store.Store, topics TopicSource, log zerolog.Logger) *Service {
	return &Service{
		store:  st,
		topics: topics,
		log:    log.With().Str("component", "game").Logger(),
		now:    time.Now,
	}
}

// CreateRoom writes a new lobby room with the creator as its sole, host
// player and returns the join code. Code collisions are retried with a
// fresh code up to a bound.
func (s *Service) CreateRoom(ctx context.Context, hostID, hostName string, settings Settings) (string, error) {
	if hostID == "" || hostName == "" {
		return "", ErrValidation
	}
	if err := settings.Validate(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := randomCode(codeLength)
		room := Room{
			Code:         code,
			HostID:       hostID,
			Status:       StatusLobby,
			Settings:     settings,
			CurrentRound: 0,
			CreatedAt:    s.now().UTC(),
			Players: map[string]Player{
				hostID: {ID: hostID, Name: hostName, IsHost: true, JoinOrder: 0},
			},
		}
		err := s.store.Create(ctx, roomDocKey(code), encodeRoom(room))
		if err == nil {
			s.log.Info().Str("room", code).Msg("room created")
			return code, nil
		}
		if errors.Is(err, store.ErrExists) {
			continue
		}
		return "", err
	}
	return "", ErrExhaustedRetries
}

// JoinRoom adds a player while the room is still in the lobby. Re-joining
// with the same playerID is a no-op that only refreshes the name.
func (s *Service) JoinRoom(ctx context.Context, code, playerID, playerName string) (Room, error) {
	if playerID == "" || playerName == "" {
		return Room{}, ErrValidation
	}
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return Room{}, err
	}

	if existing, ok := room.Players[playerID]; ok {
		if existing.Name != playerName {
			err = s.store.Patch(ctx, roomDocKey(code), store.Doc{
				"players." + playerID + ".name": playerName,
			})
			if err != nil {
				return Room{}, err
			}
			existing.Name = playerName
			room.Players[playerID] = existing
		}
		return room, nil
	}

	if room.Status != StatusLobby {
		return Room{}, ErrRoomNotJoinable
	}

	p := Player{ID: playerID, Name: playerName, JoinOrder: len(room.Players)}
	err = s.store.Patch(ctx, roomDocKey(code), store.Doc{
		"players." + playerID: encodePlayer(p),
	})
	if err != nil {
		return Room{}, err
	}
	room.Players[playerID] = p
	return room, nil
}

// StartGame is the host-only lobby→drawing transition: assigns the first
// topic and anchors the round-1 drawing timer.
func (s *Service) StartGame(ctx context.Context, code, requesterID string) error {
	room, err := s.readRoom(ctx, code)
	if err != nil {
		return err
	}
	if requesterID != room.HostID {
		return ErrNotHost
	}
	if room.Status != StatusLobby {
		return ErrInvalidTransition
	}

	err = s.store.Patch(ctx, roomDocKey(code), store.Doc{
		"status":           string(StatusDrawing),
		"currentRound":     1,
		"currentTopic":     s.topics.Next(),
		"drawingStartTime": s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("room", code).Msg("game started")
	return nil
}

// DeleteRoom removes the record. Deleting an absent room is a success.
func (s *Service) DeleteRoom(ctx context.Context, code string) error {
	return s.store.Delete(ctx, roomDocKey(code))
}

// ReadRoom returns a point-in-time snapshot of the room.
func (s *Service) ReadRoom(ctx context.Context, code string) (Room, error) {
	return s.readRoom(ctx, code)
}

func (s *Service) readRoom(ctx context.Context, code string) (Room, error) {
	doc, err := s.store.ReadOnce(ctx, roomDocKey(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, err
	}
	room, err := decodeRoom(doc)
	if err != nil {
		return Room{}, err
	}
	if room.Players == nil {
		room.Players = map[string]Player{}
	}
	return room, nil
}

func encodePlayer(p Player) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"name":         p.Name,
		"isHost":       p.IsHost,
		"joinOrder":    p.JoinOrder,
		"roundScore":   p.RoundScore,
		"totalScore":   p.TotalScore,
		"hasSubmitted": p.HasSubmitted,
	}
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
