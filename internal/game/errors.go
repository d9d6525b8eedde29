package game

import "errors"

var (
	ErrValidation        = errors.New("invalid settings or input")
	ErrRoomNotFound      = errors.New("room not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotHost           = errors.New("not host")
	ErrRoomNotJoinable   = errors.New("room not joinable")
	ErrInvalidTransition = errors.New("invalid phase for action")
	ErrSelfRating        = errors.New("cannot rate own drawing")
	ErrExhaustedRetries  = errors.New("room code generation exhausted retries")
)
