package game

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MaxPlayersPerRoom = 6
	MinPlayersToStart = 2
	RoundAttempts     = 6

	RoomCodeLength       = 5
	RoundTransitionDelay = 3 * time.Second
	BotRoundGrace        = 1500 * time.Millisecond

	RoomIdleTimeout = 10 * time.Minute
	SweepInterval   = 30 * time.Second

	DefaultRoundsTarget = 3
	maxPlayerNameLen    = 20
)

// ValidRoundsTarget reports whether rounds is one of the selectable match
// lengths.
func ValidRoundsTarget(rounds int) bool {
	switch rounds {
	case 1, 3, 5, 10, 15:
		return true
	}
	return false
}

// SanitizePlayerName trims, defaults and truncates a display name.
func SanitizePlayerName(name string) string {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" {
		cleaned = "Player"
	}
	if len(cleaned) > maxPlayerNameLen {
		cleaned = cleaned[:maxPlayerNameLen]
	}
	return cleaned
}

// RoomStatus is the coarse lifecycle state of a room.
type RoomStatus string

const (
	StatusLobby    RoomStatus = "lobby"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// Player is one seat in a room. The identity is generated at join time and
// dies with the seat. Conn is nil for bots.
type Player struct {
	ID         string
	Name       string
	Score      int
	Attempts   int
	JoinedAt   time.Time
	UserID     string // external account reference, empty for guests and bots
	IsBot      bool
	Difficulty Difficulty // set only when IsBot

	Bot  *BotSession
	Conn *websocket.Conn

	writeMu sync.Mutex
}

// SendJSON writes one message to the player's connection, serializing writes
// per connection as gorilla/websocket requires. Bots and detached seats are
// silently skipped.
func (p *Player) SendJSON(v any) error {
	if p == nil || p.Conn == nil {
		return nil
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.Conn.WriteJSON(v)
}

// HistoryEntry records one resolved round in the match log.
type HistoryEntry struct {
	Round      int    `json:"round"`
	WinnerID   string `json:"winner,omitempty"`
	Draw       bool   `json:"draw"`
	Word       string `json:"word"`
	Tiebreaker bool   `json:"isTiebreaker"`
}

// Room is the shared mutable unit of match state. Every field below Mu is
// guarded by Mu; helpers that read several fields must be called with it
// held. Different rooms are fully independent.
type Room struct {
	Mu sync.Mutex

	Code          string
	Status        RoomStatus
	Lang          string
	HostID        string
	RoundsTarget  int
	MaxAttempts   int
	BotDifficulty Difficulty

	RoundIndex              int
	RoundsCompleted         int
	StandardRoundsCompleted int
	TiebreakerActive        bool
	CurrentRoundTiebreaker  bool

	Word           string // secret, set only while a round is live
	RoundComplete  bool
	RoundStartedAt time.Time

	Players       map[string]*Player
	History       []HistoryEntry
	LastActivity  time.Time
	EmptySince    time.Time // zero while the room has players
	StatsRecorded bool

	// Ctx outlives rounds and is cancelled when the room is reclaimed.
	Ctx    context.Context
	Cancel context.CancelFunc

	// transitionCancel aborts the pending scheduled round transition, if any.
	transitionCancel context.CancelFunc
	// botCancel stops every bot think-loop armed for the current round.
	botCancel context.CancelFunc
}

// Touch refreshes the idle clock. Callers hold Mu.
func (r *Room) Touch() {
	r.LastActivity = time.Now()
}

// HumanCount counts non-bot seats. Callers hold Mu.
func (r *Room) HumanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// Leaders returns the players tied at the maximum score. Callers hold Mu.
func (r *Room) Leaders() []*Player {
	if len(r.Players) == 0 {
		return nil
	}
	best := -1
	for _, p := range r.Players {
		if p.Score > best {
			best = p.Score
		}
	}
	var leaders []*Player
	for _, p := range r.Players {
		if p.Score == best {
			leaders = append(leaders, p)
		}
	}
	return leaders
}

// AllAttemptsSpent reports whether every seat has exhausted its attempt
// budget for the round. Callers hold Mu.
func (r *Room) AllAttemptsSpent() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if p.Attempts < r.MaxAttempts {
			return false
		}
	}
	return true
}

// Scoreboard builds the sorted public score list. Callers hold Mu.
func (r *Room) Scoreboard() []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(r.Players))
	for _, p := range r.Players {
		entries = append(entries, ScoreEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			IsHost:   p.ID == r.HostID,
			IsBot:    p.IsBot,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries
}

// Payload builds the full room snapshot broadcast after every mutation.
// Callers hold Mu.
func (r *Room) Payload() RoomPayload {
	return RoomPayload{
		Code:             r.Code,
		Status:           r.Status,
		RoundNumber:      r.RoundIndex,
		RoundsTarget:     r.RoundsTarget,
		RoundsCompleted:  r.StandardRoundsCompleted,
		TiebreakerActive: r.TiebreakerActive,
		Players:          r.Scoreboard(),
		MaxAttempts:      r.MaxAttempts,
		CanStart:         r.Status == StatusLobby && len(r.Players) >= MinPlayersToStart,
		CanPlayAgain:     r.Status == StatusFinished,
		HostID:           r.HostID,
		Language:         r.Lang,
		BotDifficulty:    r.BotDifficulty,
	}
}

// snapshotPlayers copies the player set for lock-free broadcasting.
// Callers hold Mu.
func (r *Room) snapshotPlayers() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, p)
	}
	return out
}
