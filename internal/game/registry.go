package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lucasmv/wordclash-backend/internal/stats"
	"github.com/lucasmv/wordclash-backend/internal/words"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Dictionary is the word service a registry consults for secrets and guess
// validation.
type Dictionary interface {
	RandomWord(lang string) string
	Contains(lang, word string) bool
	Words(lang string) []string
	Supported(lang string) bool
}

// Registry owns every room in the process. All room lookups and room set
// mutations go through it; there is no ambient global room map. Individual
// room state is guarded by each room's own mutex, so rooms proceed fully in
// parallel.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	dict  Dictionary
	stats stats.Recorder
	log   zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	// Tuning knobs, overridable in tests.
	TransitionDelay time.Duration
	BotGrace        time.Duration
	IdleTimeout     time.Duration
	SweepInterval   time.Duration
}

func NewRegistry(dict Dictionary, rec stats.Recorder, log zerolog.Logger) *Registry {
	if rec == nil {
		rec = stats.NoopRecorder{}
	}
	return &Registry{
		rooms: make(map[string]*Room),
		dict:  dict,
		stats: rec,
		log:   log.With().Str("component", "registry").Logger(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),

		TransitionDelay: RoundTransitionDelay,
		BotGrace:        BotRoundGrace,
		IdleTimeout:     RoomIdleTimeout,
		SweepInterval:   SweepInterval,
	}
}

// Room looks up a room by its (upper-cased) code.
func (reg *Registry) Room(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return room, ok
}

// RoomCount reports how many rooms currently exist.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// CreateRoom makes a fresh room and seats the creator as host. The creator's
// room_created reply and the initial room_update are sent before returning.
func (reg *Registry) CreateRoom(conn *websocket.Conn, name, userID string, rounds int, lang string) (*Room, *Player) {
	if !ValidRoundsTarget(rounds) {
		rounds = DefaultRoundsTarget
	}
	lang = strings.ToLower(lang)
	if !reg.dict.Supported(lang) {
		lang = words.DefaultLang
	}

	player := &Player{
		ID:       uuid.NewString(),
		Name:     SanitizePlayerName(name),
		JoinedAt: time.Now(),
		UserID:   userID,
		Conn:     conn,
	}

	ctx, cancel := context.WithCancel(context.Background())
	room := &Room{
		Status:        StatusLobby,
		Lang:          lang,
		HostID:        player.ID,
		RoundsTarget:  rounds,
		MaxAttempts:   RoundAttempts,
		BotDifficulty: DifficultyMedium,
		RoundComplete: true,
		Players:       map[string]*Player{player.ID: player},
		LastActivity:  time.Now(),
		Ctx:           ctx,
		Cancel:        cancel,
	}

	reg.mu.Lock()
	room.Code = reg.generateCodeLocked()
	reg.rooms[room.Code] = room
	reg.mu.Unlock()

	reg.log.Info().Str("room", room.Code).Str("player", player.ID).
		Int("rounds", rounds).Str("lang", lang).Msg("room created")

	_ = player.SendJSON(Message[RoomCreatedData]{Type: EventRoomCreated, Data: RoomCreatedData{
		Code:         room.Code,
		PlayerID:     player.ID,
		Host:         true,
		RoundsTarget: rounds,
		Language:     lang,
	}})

	room.Mu.Lock()
	payload := room.Payload()
	players := room.snapshotPlayers()
	room.Mu.Unlock()
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})

	return room, player
}

// JoinRoom seats a new player. Joining a playing room is rejected unless the
// caller explicitly asks to resume; the seat is fresh either way (new
// identity, zero score).
func (reg *Registry) JoinRoom(conn *websocket.Conn, code, name, userID string, resume bool) (*Room, *Player, error) {
	room, ok := reg.Room(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	if room.Status == StatusPlaying && !resume {
		room.Mu.Unlock()
		return nil, nil, ErrMatchRunning
	}
	if len(room.Players) >= MaxPlayersPerRoom {
		room.Mu.Unlock()
		return nil, nil, ErrRoomFull
	}

	player := &Player{
		ID:       uuid.NewString(),
		Name:     SanitizePlayerName(name),
		JoinedAt: time.Now(),
		UserID:   userID,
		Conn:     conn,
	}
	room.Players[player.ID] = player
	room.Touch()
	room.EmptySince = time.Time{}
	payload := room.Payload()
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	reg.log.Info().Str("room", room.Code).Str("player", player.ID).Msg("player joined")

	_ = player.SendJSON(Message[RoomJoinedData]{Type: EventRoomJoined, Data: RoomJoinedData{
		Code:     room.Code,
		PlayerID: player.ID,
	}})
	broadcastExcept(players, player.ID, Message[PlayerJoinedData]{Type: EventPlayerJoined, Data: PlayerJoinedData{
		PlayerID: player.ID,
		Name:     player.Name,
	}})
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})

	return room, player, nil
}

// AddBot seats a computer opponent. Host-only, lobby-only.
func (reg *Registry) AddBot(room *Room, requesterID string) error {
	room.Mu.Lock()
	if room.HostID != requesterID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if room.Status != StatusLobby {
		room.Mu.Unlock()
		return ErrWrongPhase
	}
	if len(room.Players) >= MaxPlayersPerRoom {
		room.Mu.Unlock()
		return ErrRoomFull
	}

	botCount := 0
	for _, p := range room.Players {
		if p.IsBot {
			botCount++
		}
	}
	difficulty := room.BotDifficulty
	bot := &Player{
		ID:         uuid.NewString(),
		Name:       fmt.Sprintf("Bot %d", botCount+1),
		JoinedAt:   time.Now(),
		IsBot:      true,
		Difficulty: difficulty,
		Bot:        NewBotSession(difficulty, reg.dict.Words(room.Lang), reg.newRand()),
	}
	room.Players[bot.ID] = bot
	room.Touch()
	payload := room.Payload()
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	reg.log.Info().Str("room", room.Code).Str("player", bot.ID).
		Str("difficulty", string(difficulty)).Msg("bot added")

	broadcast(players, Message[PlayerJoinedData]{Type: EventPlayerJoined, Data: PlayerJoinedData{
		PlayerID: bot.ID,
		Name:     bot.Name,
		Bot:      true,
	}})
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})
	return nil
}

// RemovePlayer handles a leave or disconnect. Emptied or bot-only rooms are
// reset to an idle lobby; an under-populated running match is cancelled; a
// departing host triggers deterministic re-election.
func (reg *Registry) RemovePlayer(room *Room, playerID string) {
	reg.removePlayer(room, playerID, false)
}

func (reg *Registry) removePlayer(room *Room, playerID string, expelled bool) {
	room.Mu.Lock()
	player, ok := room.Players[playerID]
	if !ok {
		room.Mu.Unlock()
		return
	}
	delete(room.Players, playerID)
	room.Touch()

	left := Message[PlayerLeftData]{Type: EventPlayerLeft, Data: PlayerLeftData{
		PlayerID: player.ID,
		Name:     player.Name,
		Bot:      player.IsBot,
		Expelled: expelled,
	}}

	// Bot-only rooms dismiss their bots and fall through to the empty path.
	if room.HumanCount() == 0 && len(room.Players) > 0 {
		for id, p := range room.Players {
			if p.IsBot {
				delete(room.Players, id)
			}
		}
	}

	if len(room.Players) == 0 {
		reg.resetTransientLocked(room)
		room.HostID = ""
		room.EmptySince = time.Now()
		room.Mu.Unlock()
		reg.log.Info().Str("room", room.Code).Msg("room emptied, idle")
		return
	}

	hostChanged := reg.ensureHostLocked(room)
	belowMinimum := room.Status == StatusPlaying && len(room.Players) < MinPlayersToStart
	payload := room.Payload()
	players := room.snapshotPlayers()
	newHost := room.HostID
	room.Mu.Unlock()

	broadcast(players, left)
	if hostChanged {
		broadcast(players, Message[HostChangeData]{Type: EventHostChange, Data: HostChangeData{PlayerID: newHost}})
	}
	if belowMinimum {
		reg.log.Warn().Str("room", room.Code).Msg("match below minimum players, cancelling")
		reg.finishMatch(room, nil, true)
		return
	}
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})
}

// ExpelPlayer is the host forcibly removing another seat. If a match was in
// progress the room is reset to the lobby rather than silently continuing.
func (reg *Registry) ExpelPlayer(room *Room, requesterID, targetID string) error {
	room.Mu.Lock()
	if room.HostID != requesterID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if requesterID == targetID {
		room.Mu.Unlock()
		return ErrUnknownPlayer
	}
	target, ok := room.Players[targetID]
	if !ok {
		room.Mu.Unlock()
		return ErrUnknownPlayer
	}
	wasPlaying := room.Status == StatusPlaying
	room.Mu.Unlock()

	reg.log.Info().Str("room", room.Code).Str("player", targetID).Msg("player expelled")
	reg.removePlayer(room, targetID, true)
	_ = target.SendJSON(Message[LeftRoomData]{Type: EventLeftRoom, Data: LeftRoomData{Code: room.Code}})

	if wasPlaying {
		room.Mu.Lock()
		stillPlaying := room.Status == StatusPlaying
		room.Mu.Unlock()
		if stillPlaying {
			reg.ResetToLobby(room)
		}
	}
	return nil
}

// ensureHostLocked re-elects a host when the current one is gone: the
// earliest-joined remaining human, falling back to any remaining player.
// Reports whether the host changed. Callers hold room.Mu.
func (reg *Registry) ensureHostLocked(room *Room) bool {
	if _, ok := room.Players[room.HostID]; ok {
		return false
	}
	var elected *Player
	for _, p := range room.Players {
		if p.IsBot {
			continue
		}
		if elected == nil || p.JoinedAt.Before(elected.JoinedAt) {
			elected = p
		}
	}
	if elected == nil {
		for _, p := range room.Players {
			if elected == nil || p.JoinedAt.Before(elected.JoinedAt) {
				elected = p
			}
		}
	}
	if elected == nil {
		room.HostID = ""
		return false
	}
	room.HostID = elected.ID
	return true
}

// resetTransientLocked clears everything tied to the running match and
// returns the room to a quiet lobby. Callers hold room.Mu.
func (reg *Registry) resetTransientLocked(room *Room) {
	reg.cancelTransitionLocked(room)
	reg.stopBotLoopsLocked(room)
	room.Status = StatusLobby
	room.Word = ""
	room.RoundComplete = true
	room.RoundStartedAt = time.Time{}
	room.RoundIndex = 0
	room.RoundsCompleted = 0
	room.StandardRoundsCompleted = 0
	room.TiebreakerActive = false
	room.CurrentRoundTiebreaker = false
	room.StatsRecorded = false
	room.History = nil
	for id, p := range room.Players {
		if p.IsBot {
			delete(room.Players, id)
			continue
		}
		p.Score = 0
		p.Attempts = 0
	}
}

// StartSweeper launches the periodic reclamation of rooms that have sat
// empty beyond the idle window.
func (reg *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reg.sweepIdleRooms()
			}
		}
	}()
}

func (reg *Registry) sweepIdleRooms() {
	now := time.Now()
	var reclaim []*Room

	reg.mu.Lock()
	for code, room := range reg.rooms {
		room.Mu.Lock()
		idle := len(room.Players) == 0 && !room.EmptySince.IsZero() &&
			now.Sub(room.EmptySince) >= reg.IdleTimeout
		room.Mu.Unlock()
		if idle {
			delete(reg.rooms, code)
			reclaim = append(reclaim, room)
		}
	}
	reg.mu.Unlock()

	for _, room := range reclaim {
		room.Cancel()
		reg.log.Info().Str("room", room.Code).Msg("idle room reclaimed")
	}
}

// generateCodeLocked draws an unused uppercase alphanumeric code. Callers
// hold reg.mu.
func (reg *Registry) generateCodeLocked() string {
	buf := make([]byte, RoomCodeLength)
	for {
		reg.rngMu.Lock()
		for i := range buf {
			buf[i] = roomCodeAlphabet[reg.rng.Intn(len(roomCodeAlphabet))]
		}
		reg.rngMu.Unlock()
		code := string(buf)
		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

// newRand hands each bot its own source so think-time draws never contend.
func (reg *Registry) newRand() *rand.Rand {
	reg.rngMu.Lock()
	defer reg.rngMu.Unlock()
	return rand.New(rand.NewSource(reg.rng.Int63()))
}
