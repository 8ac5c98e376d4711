package game

import (
	"context"
	"errors"
	"time"
)

// scheduleRoundTransition arms the delayed start of the next round. The
// pending transition is cancelled if the match ends or the room resets in
// the meantime, and a fired timer re-checks the phase so a stale schedule is
// a no-op.
func (reg *Registry) scheduleRoundTransition(room *Room, tiebreaker bool) {
	room.Mu.Lock()
	if room.Status != StatusPlaying {
		room.Mu.Unlock()
		return
	}
	if room.transitionCancel != nil {
		room.transitionCancel()
	}
	ctx, cancel := context.WithCancel(room.Ctx)
	room.transitionCancel = cancel
	delay := reg.TransitionDelay
	room.Mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		room.Mu.Lock()
		if room.Status != StatusPlaying {
			room.Mu.Unlock()
			return
		}
		room.transitionCancel = nil
		room.Mu.Unlock()

		reg.startRound(room, tiebreaker)
	}()
}

// cancelTransitionLocked aborts the pending round transition, if any.
// Callers hold room.Mu.
func (reg *Registry) cancelTransitionLocked(room *Room) {
	if room.transitionCancel != nil {
		room.transitionCancel()
		room.transitionCancel = nil
	}
}

// startBotLoops arms one think-loop per bot seat for the current round.
// All loops share one context so round resolution stops them together.
func (reg *Registry) startBotLoops(room *Room) {
	room.Mu.Lock()
	if room.Status != StatusPlaying || room.RoundComplete {
		room.Mu.Unlock()
		return
	}
	if room.botCancel != nil {
		room.botCancel()
	}
	ctx, cancel := context.WithCancel(room.Ctx)
	room.botCancel = cancel

	var bots []*Player
	for _, p := range room.Players {
		if p.IsBot {
			bots = append(bots, p)
		}
	}
	room.Mu.Unlock()

	for _, bot := range bots {
		go reg.runBotLoop(ctx, room, bot)
	}
}

// runBotLoop plays one bot through one round: an initial grace so humans see
// the board first, then think-delay, guess, repeat until the bot runs out of
// attempts or the round resolves.
func (reg *Registry) runBotLoop(ctx context.Context, room *Room, bot *Player) {
	if !sleepCtx(ctx, reg.BotGrace) {
		return
	}

	for {
		room.Mu.Lock()
		if room.Status != StatusPlaying || room.RoundComplete ||
			bot.Attempts >= room.MaxAttempts || bot.Bot == nil {
			room.Mu.Unlock()
			return
		}
		delay := bot.Bot.ThinkDelay()
		room.Mu.Unlock()

		if !sleepCtx(ctx, delay) {
			return
		}

		room.Mu.Lock()
		if room.Status != StatusPlaying || room.RoundComplete || bot.Bot == nil {
			room.Mu.Unlock()
			return
		}
		guess, ok := bot.Bot.NextGuess()
		room.Mu.Unlock()
		if !ok {
			return
		}

		err := reg.SubmitGuess(room, bot.ID, guess)
		switch {
		case err == nil:
		case errors.Is(err, ErrRoundComplete), errors.Is(err, ErrWrongPhase),
			errors.Is(err, ErrUnknownPlayer), errors.Is(err, ErrNoAttemptsLeft):
			return
		default:
			// Dictionary or validation rejection of a generated word.
			// The word pool guarantees this cannot normally happen.
			reg.log.Warn().Err(err).Str("room", room.Code).
				Str("bot", bot.Name).Str("guess", guess).Msg("bot guess rejected")
			return
		}
	}
}

// stopBotLoopsLocked stops every bot loop armed for the current round.
// Callers hold room.Mu.
func (reg *Registry) stopBotLoopsLocked(room *Room) {
	if room.botCancel != nil {
		room.botCancel()
		room.botCancel = nil
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
