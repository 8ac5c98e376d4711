package game

import "errors"

// Input and authorization errors are reported to the offending connection
// only and never mutate room state.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrUnknownPlayer    = errors.New("player is not seated in this room")
	ErrNotHost          = errors.New("only the host may do that")
	ErrWrongPhase       = errors.New("action not allowed in the current phase")
	ErrRoundComplete    = errors.New("round already complete")
	ErrNoAttemptsLeft   = errors.New("no attempts left this round")
	ErrInvalidGuess     = errors.New("guess must be five letters")
	ErrNotInDictionary  = errors.New("word not in the selected dictionary")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrMatchRunning     = errors.New("match already in progress")
	ErrMatchNotOver     = errors.New("match is not finished")
)
