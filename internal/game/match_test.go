package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDict serves secrets from a fixed queue and validates guesses against a
// fixed set, so matches are fully deterministic.
type stubDict struct {
	mu      sync.Mutex
	secrets []string
	next    int
	allowed map[string]bool
}

func newStubDict(secrets []string, allowed ...string) *stubDict {
	d := &stubDict{secrets: secrets, allowed: map[string]bool{}}
	for _, w := range secrets {
		d.allowed[w] = true
	}
	for _, w := range allowed {
		d.allowed[w] = true
	}
	return d
}

func (d *stubDict) RandomWord(string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.secrets[d.next%len(d.secrets)]
	d.next++
	return w
}

func (d *stubDict) Contains(_ string, word string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allowed[word]
}

func (d *stubDict) Words(string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.allowed))
	for w := range d.allowed {
		out = append(out, w)
	}
	return out
}

func (d *stubDict) Supported(lang string) bool { return lang == "en" }

func newTestRegistry(dict Dictionary) *Registry {
	reg := NewRegistry(dict, nil, zerolog.Nop())
	reg.TransitionDelay = 5 * time.Millisecond
	reg.BotGrace = time.Millisecond
	return reg
}

func roomStatus(room *Room) RoomStatus {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.Status
}

func TestCreateRoomSeatsHost(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))

	room, host := reg.CreateRoom(nil, "Alice", "user-1", 3, "en")
	require.NotNil(t, room)
	assert.Len(t, room.Code, RoomCodeLength)
	assert.Equal(t, host.ID, room.HostID)
	assert.Equal(t, StatusLobby, roomStatus(room))
	assert.Equal(t, 1, reg.RoomCount())
}

func TestCreateRoomDefaultsInvalidSettings(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))

	room, _ := reg.CreateRoom(nil, "  ", "", 7, "klingon")
	assert.Equal(t, DefaultRoundsTarget, room.RoundsTarget)
	assert.Equal(t, "pt", room.Lang)
}

func TestJoinRoomRejectsUnknownCodeAndFullRoom(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))

	_, _, err := reg.JoinRoom(nil, "ZZZZZ", "Bob", "", false)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	room, _ := reg.CreateRoom(nil, "Alice", "", 3, "en")
	for i := 0; i < MaxPlayersPerRoom-1; i++ {
		_, _, err := reg.JoinRoom(nil, room.Code, "Guest", "", false)
		require.NoError(t, err)
	}
	_, _, err = reg.JoinRoom(nil, room.Code, "Late", "", false)
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinRoomDuringMatchRequiresResume(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, _, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	_, _, err = reg.JoinRoom(nil, room.Code, "Carol", "", false)
	assert.ErrorIs(t, err, ErrMatchRunning)

	_, p, err := reg.JoinRoom(nil, room.Code, "Carol", "", true)
	require.NoError(t, err)
	assert.Zero(t, p.Score)
}

func TestStartMatchGuards(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")

	assert.ErrorIs(t, reg.StartMatch(room, host.ID, 0, ""), ErrNotEnoughPlayers)

	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	assert.ErrorIs(t, reg.StartMatch(room, bob.ID, 0, ""), ErrNotHost)

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))
	assert.ErrorIs(t, reg.StartMatch(room, host.ID, 0, ""), ErrMatchRunning)
}

func TestGuessValidation(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}, "apply"))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	_, _, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.SubmitGuess(room, host.ID, "apple"), ErrWrongPhase)

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	assert.ErrorIs(t, reg.SubmitGuess(room, "nobody", "apple"), ErrUnknownPlayer)
	assert.ErrorIs(t, reg.SubmitGuess(room, host.ID, "app"), ErrInvalidGuess)
	assert.ErrorIs(t, reg.SubmitGuess(room, host.ID, "app1e"), ErrInvalidGuess)
	assert.ErrorIs(t, reg.SubmitGuess(room, host.ID, "zzzzz"), ErrNotInDictionary)
}

func TestWinningGuessEndsSingleRoundMatch(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}, "apply"))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	_, _, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	require.NoError(t, reg.SubmitGuess(room, host.ID, "apply"))
	require.NoError(t, reg.SubmitGuess(room, host.ID, "apple"))

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Equal(t, StatusFinished, room.Status)
	assert.Equal(t, 1, room.Players[host.ID].Score)
	assert.Empty(t, room.Word)
	require.Len(t, room.History, 1)
	assert.Equal(t, host.ID, room.History[0].WinnerID)
	assert.Equal(t, "APPLE", room.History[0].Word)
}

func TestGuessAfterRoundCompleteRejected(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	reg.TransitionDelay = time.Hour
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	require.NoError(t, reg.SubmitGuess(room, host.ID, "apple"))
	assert.ErrorIs(t, reg.SubmitGuess(room, bob.ID, "apple"), ErrRoundComplete)
}

func TestConcurrentWinningGuessesScoreOnce(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{host.ID, bob.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = reg.SubmitGuess(room, id, "apple")
		}(i, id)
	}
	wg.Wait()

	// The loser sees either the completed round or, because the single-round
	// match finishes immediately, the finished phase.
	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrRoundComplete) || errors.Is(err, ErrWrongPhase),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Equal(t, 1, room.Players[host.ID].Score+room.Players[bob.ID].Score)
}

func TestExhaustedAttemptsDrawLeadsToTiebreaker(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}, "apply"))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	room.Mu.Lock()
	room.MaxAttempts = 1
	room.Mu.Unlock()

	require.NoError(t, reg.SubmitGuess(room, host.ID, "apply"))
	require.NoError(t, reg.SubmitGuess(room, bob.ID, "apply"))

	room.Mu.Lock()
	assert.True(t, room.TiebreakerActive)
	assert.Equal(t, 1, room.StandardRoundsCompleted)
	require.Len(t, room.History, 1)
	assert.True(t, room.History[0].Draw)
	room.Mu.Unlock()

	// The scheduled tie-break round arrives and does not count as a
	// standard round.
	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return room.RoundIndex == 2 && room.CurrentRoundTiebreaker
	}, time.Second, 2*time.Millisecond)

	room.Mu.Lock()
	assert.Equal(t, 1, room.StandardRoundsCompleted)
	room.Mu.Unlock()

	// A lone winner in sudden death ends the match outright.
	require.NoError(t, reg.SubmitGuess(room, host.ID, "apple"))
	assert.Equal(t, StatusFinished, roomStatus(room))
	room.Mu.Lock()
	assert.Equal(t, 1, room.StandardRoundsCompleted)
	assert.Equal(t, 2, room.RoundsCompleted)
	room.Mu.Unlock()
}

func TestTiebreakerRepeatsWhileTied(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}, "apply"))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	room.Mu.Lock()
	room.MaxAttempts = 1
	room.Mu.Unlock()

	// Standard round drawn, then the tie-break round drawn as well.
	require.NoError(t, reg.SubmitGuess(room, host.ID, "apply"))
	require.NoError(t, reg.SubmitGuess(room, bob.ID, "apply"))
	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return room.RoundIndex == 2 && !room.RoundComplete
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, reg.SubmitGuess(room, host.ID, "apply"))
	require.NoError(t, reg.SubmitGuess(room, bob.ID, "apply"))

	assert.Equal(t, StatusPlaying, roomStatus(room))
	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return room.RoundIndex == 3 && room.CurrentRoundTiebreaker
	}, time.Second, 2*time.Millisecond)
}

func TestLeaveBelowMinimumCancelsMatch(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	reg.RemovePlayer(room, bob.ID)

	assert.Equal(t, StatusFinished, roomStatus(room))
}

func TestHostReelectionPrefersEarliestJoinedHuman(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	_, _, err = reg.JoinRoom(nil, room.Code, "Carol", "", false)
	require.NoError(t, err)

	reg.RemovePlayer(room, host.ID)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Equal(t, bob.ID, room.HostID)
}

func TestEmptiedRoomIdlesAndIsSwept(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	reg.IdleTimeout = 0
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")

	reg.RemovePlayer(room, host.ID)
	room.Mu.Lock()
	assert.False(t, room.EmptySince.IsZero())
	room.Mu.Unlock()

	reg.sweepIdleRooms()
	assert.Equal(t, 0, reg.RoomCount())
	assert.Error(t, room.Ctx.Err())
}

func TestAddBotGuards(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.AddBot(room, bob.ID), ErrNotHost)
	require.NoError(t, reg.AddBot(room, host.ID))

	room.Mu.Lock()
	bots := 0
	for _, p := range room.Players {
		if p.IsBot {
			bots++
			assert.NotNil(t, p.Bot)
		}
	}
	room.Mu.Unlock()
	assert.Equal(t, 1, bots)

	for reg.AddBot(room, host.ID) == nil {
	}
	assert.ErrorIs(t, reg.AddBot(room, host.ID), ErrRoomFull)
}

func TestBotSeatSubmitsGuessesLikeAnyPlayer(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}, "apply"))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	require.NoError(t, reg.AddBot(room, host.ID))

	var botID string
	room.Mu.Lock()
	for _, p := range room.Players {
		if p.IsBot {
			botID = p.ID
		}
	}
	room.Mu.Unlock()
	require.NotEmpty(t, botID)

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))
	room.Mu.Lock()
	reg.stopBotLoopsLocked(room)
	room.Mu.Unlock()

	require.NoError(t, reg.SubmitGuess(room, botID, "apple"))
	assert.Equal(t, StatusFinished, roomStatus(room))
}

// multiLangDict serves distinct fixed lists per language.
type multiLangDict struct {
	lists map[string][]string
	sets  map[string]map[string]bool
}

func newMultiLangDict(lists map[string][]string) *multiLangDict {
	d := &multiLangDict{lists: lists, sets: map[string]map[string]bool{}}
	for lang, words := range lists {
		set := map[string]bool{}
		for _, w := range words {
			set[w] = true
		}
		d.sets[lang] = set
	}
	return d
}

func (d *multiLangDict) RandomWord(lang string) string { return d.lists[lang][0] }
func (d *multiLangDict) Contains(lang, w string) bool  { return d.sets[lang][w] }
func (d *multiLangDict) Words(lang string) []string    { return d.lists[lang] }
func (d *multiLangDict) Supported(lang string) bool    { _, ok := d.lists[lang]; return ok }

func seatedBot(t *testing.T, room *Room) *Player {
	t.Helper()
	room.Mu.Lock()
	defer room.Mu.Unlock()
	for _, p := range room.Players {
		if p.IsBot {
			return p
		}
	}
	t.Fatal("no bot seated")
	return nil
}

func TestBotDictionaryFollowsLanguageAtMatchStart(t *testing.T) {
	dict := newMultiLangDict(map[string][]string{
		"en": {"apple", "apply"},
		"pt": {"termo", "tempo"},
	})
	reg := newTestRegistry(dict)
	reg.TransitionDelay = time.Hour

	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	require.NoError(t, reg.AddBot(room, host.ID))
	bot := seatedBot(t, room)

	// The bot was seated while the room spoke English; the match starts in
	// Portuguese and the bot must guess from the Portuguese list.
	require.NoError(t, reg.StartMatch(room, host.ID, 0, "pt"))
	room.Mu.Lock()
	reg.stopBotLoopsLocked(room)
	room.Mu.Unlock()

	room.Mu.Lock()
	guess, ok := bot.Bot.NextGuess()
	room.Mu.Unlock()
	require.True(t, ok)
	assert.Contains(t, dict.lists["pt"], guess)

	require.NoError(t, reg.SubmitGuess(room, bot.ID, guess))
	room.Mu.Lock()
	assert.Equal(t, 1, bot.Attempts)
	room.Mu.Unlock()
}

func TestUpdateSettingsLanguageRebindsBotDictionaries(t *testing.T) {
	dict := newMultiLangDict(map[string][]string{
		"en": {"apple", "apply"},
		"pt": {"termo", "tempo"},
	})
	reg := newTestRegistry(dict)
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	require.NoError(t, reg.AddBot(room, host.ID))
	bot := seatedBot(t, room)

	require.NoError(t, reg.UpdateSettings(room, host.ID, 0, "pt", ""))

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.ElementsMatch(t, dict.lists["pt"], bot.Bot.dictionary)
	assert.ElementsMatch(t, dict.lists["pt"], bot.Bot.candidates)
}

func TestBotLoopPlaysRoundToCompletion(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	require.NoError(t, reg.AddBot(room, host.ID))
	bot := seatedBot(t, room)

	room.Mu.Lock()
	bot.Bot.preset.thinkMin = time.Millisecond
	bot.Bot.preset.thinkMax = 2 * time.Millisecond
	room.Mu.Unlock()

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	// The only dictionary word is the secret, so the loop's first guess
	// wins the round and the single-round match.
	require.Eventually(t, func() bool {
		return roomStatus(room) == StatusFinished
	}, 5*time.Second, 5*time.Millisecond)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Equal(t, 1, bot.Score)
	require.Len(t, room.History, 1)
	assert.Equal(t, bot.ID, room.History[0].WinnerID)
}

func TestBotLoopCancelledWhenRoundResolves(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}, "apply"))
	reg.TransitionDelay = time.Hour
	reg.BotGrace = 100 * time.Millisecond

	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	require.NoError(t, reg.AddBot(room, host.ID))
	bot := seatedBot(t, room)

	room.Mu.Lock()
	bot.Bot.preset.thinkMin = time.Millisecond
	bot.Bot.preset.thinkMax = 2 * time.Millisecond
	room.Mu.Unlock()

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))

	// The human wins while the loop is still in its round-start grace; the
	// cancelled loop must never submit, and with the next round held back
	// it must not guess into it either.
	require.NoError(t, reg.SubmitGuess(room, host.ID, "apple"))
	time.Sleep(300 * time.Millisecond)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Zero(t, bot.Attempts)
	assert.Equal(t, 1, room.RoundIndex)
	assert.True(t, room.RoundComplete)
}

func TestExpelDuringMatchResetsToLobby(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)
	_, carol, err := reg.JoinRoom(nil, room.Code, "Carol", "", false)
	require.NoError(t, err)
	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))
	require.NoError(t, reg.SubmitGuess(room, carol.ID, "apple"))

	assert.ErrorIs(t, reg.ExpelPlayer(room, bob.ID, carol.ID), ErrNotHost)
	assert.ErrorIs(t, reg.ExpelPlayer(room, host.ID, host.ID), ErrUnknownPlayer)

	require.NoError(t, reg.ExpelPlayer(room, host.ID, bob.ID))

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Equal(t, StatusLobby, room.Status)
	assert.NotContains(t, room.Players, bob.ID)
	assert.Zero(t, room.Players[carol.ID].Score)
	assert.Empty(t, room.History)
}

func TestResetForReplay(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 1, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.ResetForReplay(room, host.ID, 0), ErrMatchNotOver)

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))
	require.NoError(t, reg.SubmitGuess(room, host.ID, "apple"))
	require.Equal(t, StatusFinished, roomStatus(room))

	assert.ErrorIs(t, reg.ResetForReplay(room, bob.ID, 0), ErrNotHost)
	require.NoError(t, reg.ResetForReplay(room, host.ID, 5))

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.Equal(t, StatusLobby, room.Status)
	assert.Equal(t, 5, room.RoundsTarget)
	assert.Zero(t, room.Players[host.ID].Score)
	assert.Empty(t, room.History)
}

func TestUpdateSettings(t *testing.T) {
	reg := newTestRegistry(newStubDict([]string{"apple"}))
	room, host := reg.CreateRoom(nil, "Alice", "", 3, "en")
	_, bob, err := reg.JoinRoom(nil, room.Code, "Bob", "", false)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.UpdateSettings(room, bob.ID, 5, "", ""), ErrNotHost)
	require.NoError(t, reg.UpdateSettings(room, host.ID, 5, "en", "hard"))

	room.Mu.Lock()
	assert.Equal(t, 5, room.RoundsTarget)
	assert.Equal(t, "en", room.Lang)
	assert.Equal(t, DifficultyHard, room.BotDifficulty)
	room.Mu.Unlock()

	// Zero values leave settings untouched, unsupported ones are ignored.
	require.NoError(t, reg.UpdateSettings(room, host.ID, 0, "klingon", "brutal"))
	room.Mu.Lock()
	assert.Equal(t, 5, room.RoundsTarget)
	assert.Equal(t, "en", room.Lang)
	assert.Equal(t, DifficultyHard, room.BotDifficulty)
	room.Mu.Unlock()

	require.NoError(t, reg.StartMatch(room, host.ID, 0, ""))
	assert.ErrorIs(t, reg.UpdateSettings(room, host.ID, 3, "", ""), ErrWrongPhase)
}

func TestScoreboardOrdering(t *testing.T) {
	room := &Room{Players: map[string]*Player{
		"a": {ID: "a", Name: "zoe", Score: 2},
		"b": {ID: "b", Name: "amy", Score: 2},
		"c": {ID: "c", Name: "bob", Score: 5},
	}}
	board := room.Scoreboard()
	require.Len(t, board, 3)
	assert.Equal(t, "bob", board[0].Name)
	assert.Equal(t, "amy", board[1].Name)
	assert.Equal(t, "zoe", board[2].Name)
}
