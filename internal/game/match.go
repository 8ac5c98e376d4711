package game

import (
	"context"
	"strings"
	"time"

	"github.com/lucasmv/wordclash-backend/internal/stats"
	"github.com/lucasmv/wordclash-backend/internal/words"
)

// StartMatch moves a lobby into play: scores, counters and history are
// cleared, then round one starts immediately. Host-only.
func (reg *Registry) StartMatch(room *Room, requesterID string, rounds int, lang string) error {
	room.Mu.Lock()
	if room.HostID != requesterID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if room.Status == StatusPlaying {
		room.Mu.Unlock()
		return ErrMatchRunning
	}
	if len(room.Players) < MinPlayersToStart {
		room.Mu.Unlock()
		return ErrNotEnoughPlayers
	}

	if ValidRoundsTarget(rounds) {
		room.RoundsTarget = rounds
	}
	if lang = strings.ToLower(lang); reg.dict.Supported(lang) {
		room.Lang = lang
	}
	room.Status = StatusPlaying
	room.RoundIndex = 0
	room.RoundsCompleted = 0
	room.StandardRoundsCompleted = 0
	room.TiebreakerActive = false
	room.CurrentRoundTiebreaker = false
	room.History = nil
	room.StatsRecorded = false
	for _, p := range room.Players {
		p.Score = 0
		p.Attempts = 0
	}
	room.Touch()
	room.EmptySince = time.Time{}

	started := MatchStartedData{RoundsTarget: room.RoundsTarget, Language: room.Lang}
	payload := room.Payload()
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	reg.log.Info().Str("room", room.Code).Int("rounds", started.RoundsTarget).Msg("match started")

	broadcast(players, Message[MatchStartedData]{Type: EventMatchStarted, Data: started})
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})
	reg.startRound(room, false)
	return nil
}

// startRound arms the next round: fresh secret, reset attempt counters,
// re-armed bots. A room that has dropped below the minimum participant count
// gets its match cancelled instead.
func (reg *Registry) startRound(room *Room, tiebreaker bool) {
	room.Mu.Lock()
	if room.Status != StatusPlaying {
		room.Mu.Unlock()
		return
	}
	if len(room.Players) < MinPlayersToStart {
		after := reg.finishMatchLocked(room, nil, true)
		room.Mu.Unlock()
		after()
		return
	}

	room.Touch()
	room.RoundIndex++
	room.CurrentRoundTiebreaker = tiebreaker
	room.RoundComplete = false
	room.Word = reg.dict.RandomWord(room.Lang)
	room.RoundStartedAt = time.Now()
	hasBots := false
	var botDict []string
	for _, p := range room.Players {
		p.Attempts = 0
		if p.IsBot {
			hasBots = true
			// Re-bind before re-arming so a language chosen at match start
			// replaces the dictionary captured when the bot was seated.
			if botDict == nil {
				botDict = reg.dict.Words(room.Lang)
			}
			p.Bot.SetDictionary(botDict)
			p.Bot.Rearm()
		}
	}

	startedData := RoundStartedData{
		RoundNumber:             room.RoundIndex,
		IsTiebreaker:            tiebreaker,
		MaxAttempts:             room.MaxAttempts,
		Scoreboard:              room.Scoreboard(),
		RoundsTarget:            room.RoundsTarget,
		StandardRoundsCompleted: room.StandardRoundsCompleted,
	}
	payload := room.Payload()
	players := room.snapshotPlayers()
	round := room.RoundIndex
	room.Mu.Unlock()

	reg.log.Info().Str("room", room.Code).Int("round", round).
		Bool("tiebreaker", tiebreaker).Msg("round started")

	broadcast(players, Message[RoundStartedData]{Type: EventRoundStarted, Data: startedData})
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})

	if hasBots {
		reg.startBotLoops(room)
	}
}

// SubmitGuess runs one guess, human or bot, through validation, evaluation,
// scoring and broadcasting. Guesses arriving after the round resolved are
// rejected with ErrRoundComplete; resolution itself is idempotent-guarded so
// only the first qualifying guess completes the round.
func (reg *Registry) SubmitGuess(room *Room, playerID, guess string) error {
	guess = strings.ToLower(strings.TrimSpace(guess))

	room.Mu.Lock()
	player, ok := room.Players[playerID]
	if !ok {
		room.Mu.Unlock()
		return ErrUnknownPlayer
	}
	if room.Status != StatusPlaying || room.Word == "" {
		room.Mu.Unlock()
		return ErrWrongPhase
	}
	if room.RoundComplete {
		room.Mu.Unlock()
		return ErrRoundComplete
	}
	if len(guess) != words.WordLength || !isLowerAlpha(guess) {
		room.Mu.Unlock()
		return ErrInvalidGuess
	}
	if !reg.dict.Contains(room.Lang, guess) {
		room.Mu.Unlock()
		return ErrNotInDictionary
	}
	if player.Attempts >= room.MaxAttempts {
		room.Mu.Unlock()
		return ErrNoAttemptsLeft
	}

	room.Touch()
	player.Attempts++
	fb := Evaluate(room.Word, guess)

	if player.Bot != nil {
		player.Bot.Refine(guess, fb)
	}

	result := GuessResultData{
		PlayerID:    player.ID,
		Guess:       strings.ToUpper(guess),
		Feedback:    fb,
		Attempt:     player.Attempts,
		MaxAttempts: room.MaxAttempts,
		RoundNumber: room.RoundIndex,
	}
	peer := PeerGuessData{
		PlayerID:    player.ID,
		Attempt:     player.Attempts,
		Feedback:    Pattern(fb),
		RoundNumber: room.RoundIndex,
	}

	var after func()
	if AllGreen(fb) {
		player.Score++
		after = reg.finalizeRoundLocked(room, player, false)
	} else if room.AllAttemptsSpent() {
		after = reg.finalizeRoundLocked(room, nil, true)
	}

	payload := room.Payload()
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	_ = player.SendJSON(Message[GuessResultData]{Type: EventGuessResult, Data: result})
	broadcastExcept(players, player.ID, Message[PeerGuessData]{Type: EventPeerGuess, Data: peer})
	broadcast(players, Message[RoomPayload]{Type: EventRoomUpdate, Data: payload})
	if after != nil {
		after()
	}
	return nil
}

// finalizeRoundLocked resolves the round exactly once: log the outcome,
// stop the bots, then either finish the match, enter or extend tie-break
// play, or schedule the next standard round. Callers hold room.Mu; the
// returned closure performs all broadcasting and scheduling and must be
// called after unlocking. It is never nil.
func (reg *Registry) finalizeRoundLocked(room *Room, winner *Player, draw bool) func() {
	if room.RoundComplete {
		return func() {}
	}
	room.Touch()
	room.RoundComplete = true
	room.RoundsCompleted++
	isTiebreaker := room.CurrentRoundTiebreaker
	if !isTiebreaker {
		room.StandardRoundsCompleted++
	}
	reg.stopBotLoopsLocked(room)

	var winnerRef *WinnerRef
	var winnerID string
	if winner != nil {
		winnerRef = &WinnerRef{PlayerID: winner.ID, Name: winner.Name, Score: winner.Score}
		winnerID = winner.ID
	}
	room.History = append(room.History, HistoryEntry{
		Round:      room.RoundIndex,
		WinnerID:   winnerID,
		Draw:       draw,
		Word:       strings.ToUpper(room.Word),
		Tiebreaker: isTiebreaker,
	})

	resultMsg := Message[RoundResultData]{Type: EventRoundResult, Data: RoundResultData{
		RoundNumber:  room.RoundIndex,
		Winner:       winnerRef,
		Draw:         draw,
		IsTiebreaker: isTiebreaker,
		CorrectWord:  strings.ToUpper(room.Word),
		Scoreboard:   room.Scoreboard(),
	}}
	players := room.snapshotPlayers()

	leaders := room.Leaders()
	leaderRefs := make([]WinnerRef, 0, len(leaders))
	for _, p := range leaders {
		leaderRefs = append(leaderRefs, WinnerRef{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}

	reg.log.Info().Str("room", room.Code).Int("round", room.RoundIndex).
		Bool("draw", draw).Bool("tiebreaker", isTiebreaker).Msg("round resolved")

	// Sudden-death mode: a lone leader ends it, a persisting tie goes again.
	if room.TiebreakerActive {
		if len(leaders) == 1 {
			finish := reg.finishMatchLocked(room, []string{leaders[0].ID}, false)
			return func() {
				broadcast(players, resultMsg)
				finish()
			}
		}
		return func() {
			broadcast(players, resultMsg)
			broadcast(players, Message[TiebreakerData]{Type: EventTiebreakerPending, Data: TiebreakerData{Leaders: leaderRefs}})
			reg.scheduleRoundTransition(room, true)
		}
	}

	if room.StandardRoundsCompleted >= room.RoundsTarget {
		if len(leaders) == 1 {
			finish := reg.finishMatchLocked(room, []string{leaders[0].ID}, false)
			return func() {
				broadcast(players, resultMsg)
				finish()
			}
		}
		room.TiebreakerActive = true
		return func() {
			broadcast(players, resultMsg)
			broadcast(players, Message[TiebreakerData]{Type: EventTiebreakerStart, Data: TiebreakerData{Leaders: leaderRefs}})
			reg.scheduleRoundTransition(room, true)
		}
	}

	return func() {
		broadcast(players, resultMsg)
		reg.scheduleRoundTransition(room, false)
	}
}

// finishMatch cancels or completes a match from outside the guess path
// (player churn dropping the room below minimum).
func (reg *Registry) finishMatch(room *Room, winnerIDs []string, cancelled bool) {
	room.Mu.Lock()
	after := reg.finishMatchLocked(room, winnerIDs, cancelled)
	room.Mu.Unlock()
	after()
}

// finishMatchLocked marks the match finished, clears transient round state
// and stops all background work. Outcome persistence is a one-shot side
// effect guarded per match. Callers hold room.Mu; the returned closure
// broadcasts and records after unlock.
func (reg *Registry) finishMatchLocked(room *Room, winnerIDs []string, cancelled bool) func() {
	room.Touch()
	reg.cancelTransitionLocked(room)
	reg.stopBotLoopsLocked(room)

	room.Status = StatusFinished
	room.Word = ""
	room.RoundComplete = true
	room.TiebreakerActive = false
	room.CurrentRoundTiebreaker = false

	winnerSet := make(map[string]struct{}, len(winnerIDs))
	for _, id := range winnerIDs {
		winnerSet[id] = struct{}{}
	}
	winners := make([]WinnerRef, 0, len(winnerIDs))
	var participants []stats.Participant
	for _, p := range room.Players {
		_, won := winnerSet[p.ID]
		if won {
			winners = append(winners, WinnerRef{PlayerID: p.ID, Name: p.Name, Score: p.Score})
		}
		if p.UserID != "" && !p.IsBot {
			participants = append(participants, stats.Participant{UserID: p.UserID, Winner: won})
		}
	}

	record := false
	if !cancelled && !room.StatsRecorded && len(participants) > 0 {
		room.StatsRecorded = true
		record = true
	}

	overMsg := Message[MatchOverData]{Type: EventMatchOver, Data: MatchOverData{
		Scoreboard: room.Scoreboard(),
		Winners:    winners,
		Cancelled:  cancelled,
	}}
	players := room.snapshotPlayers()

	// Bot seats exist only for the duration of a match. They appear in the
	// final scoreboard above but not in the post-match room snapshot.
	for id, p := range room.Players {
		if p.IsBot {
			delete(room.Players, id)
		}
	}

	updateMsg := Message[RoomPayload]{Type: EventRoomUpdate, Data: room.Payload()}
	code := room.Code

	reg.log.Info().Str("room", code).Bool("cancelled", cancelled).
		Int("winners", len(winners)).Msg("match finished")

	return func() {
		broadcast(players, overMsg)
		broadcast(players, updateMsg)
		if record {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := reg.stats.RecordMultiplayerMatch(ctx, participants); err != nil {
					reg.log.Error().Err(err).Str("room", code).Msg("failed to record match stats")
				}
			}()
		}
	}
}

// ResetForReplay is the host's play-again action: finished → lobby with
// scores and history cleared, settings preserved unless overridden.
func (reg *Registry) ResetForReplay(room *Room, requesterID string, rounds int) error {
	room.Mu.Lock()
	if room.HostID != requesterID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if room.Status != StatusFinished {
		room.Mu.Unlock()
		return ErrMatchNotOver
	}
	if ValidRoundsTarget(rounds) {
		room.RoundsTarget = rounds
	}
	reg.resetTransientLocked(room)
	room.Touch()
	room.EmptySince = time.Time{}

	resetMsg := Message[MatchResetData]{Type: EventMatchReset, Data: MatchResetData{
		RoundsTarget: room.RoundsTarget,
		Language:     room.Lang,
	}}
	updateMsg := Message[RoomPayload]{Type: EventRoomUpdate, Data: room.Payload()}
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	broadcast(players, resetMsg)
	broadcast(players, updateMsg)
	return nil
}

// ResetToLobby aborts whatever is running and returns the room to a clean
// lobby. Used when an expulsion interrupts a live match.
func (reg *Registry) ResetToLobby(room *Room) {
	room.Mu.Lock()
	reg.resetTransientLocked(room)
	room.Touch()
	resetMsg := Message[MatchResetData]{Type: EventMatchReset, Data: MatchResetData{
		RoundsTarget: room.RoundsTarget,
		Language:     room.Lang,
	}}
	updateMsg := Message[RoomPayload]{Type: EventRoomUpdate, Data: room.Payload()}
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	broadcast(players, resetMsg)
	broadcast(players, updateMsg)
}

// UpdateSettings applies host-adjustable lobby settings. Zero values leave a
// setting untouched.
func (reg *Registry) UpdateSettings(room *Room, requesterID string, rounds int, lang, difficulty string) error {
	room.Mu.Lock()
	if room.HostID != requesterID {
		room.Mu.Unlock()
		return ErrNotHost
	}
	if room.Status != StatusLobby {
		room.Mu.Unlock()
		return ErrWrongPhase
	}
	if ValidRoundsTarget(rounds) {
		room.RoundsTarget = rounds
	}
	langChanged := false
	if lang = strings.ToLower(lang); reg.dict.Supported(lang) && lang != room.Lang {
		room.Lang = lang
		langChanged = true
	}
	if d, ok := ParseDifficulty(difficulty); ok {
		room.BotDifficulty = d
		for _, p := range room.Players {
			if p.IsBot {
				p.Difficulty = d
				p.Bot = NewBotSession(d, reg.dict.Words(room.Lang), reg.newRand())
			}
		}
	} else if langChanged {
		for _, p := range room.Players {
			if p.IsBot {
				p.Bot.SetDictionary(reg.dict.Words(room.Lang))
				p.Bot.Rearm()
			}
		}
	}
	room.Touch()

	requester := room.Players[requesterID]
	settings := SettingsUpdatedData{
		RoundsTarget:  room.RoundsTarget,
		Language:      room.Lang,
		BotDifficulty: room.BotDifficulty,
	}
	updateMsg := Message[RoomPayload]{Type: EventRoomUpdate, Data: room.Payload()}
	players := room.snapshotPlayers()
	room.Mu.Unlock()

	_ = requester.SendJSON(Message[SettingsUpdatedData]{Type: EventSettingsUpdated, Data: settings})
	broadcast(players, updateMsg)
	return nil
}

func isLowerAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
