package game

// Message is the envelope every event travels in, both directions.
type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Event names sent to clients.
const (
	EventRoomCreated       = "room_created"
	EventRoomJoined        = "room_joined"
	EventRoomError         = "room_error"
	EventGuessError        = "guess_error"
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventHostChange        = "host_change"
	EventSettingsUpdated   = "settings_updated"
	EventMatchStarted      = "match_started"
	EventRoundStarted      = "round_started"
	EventGuessResult       = "guess_result"
	EventPeerGuess         = "peer_guess"
	EventRoundResult       = "round_result"
	EventTiebreakerStart   = "tiebreaker_start"
	EventTiebreakerPending = "tiebreaker_pending"
	EventMatchOver         = "match_over"
	EventMatchReset        = "match_reset"
	EventRoomUpdate        = "room_update"
	EventLeftRoom          = "left_room"
)

// ScoreEntry is one scoreboard row.
type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	IsHost   bool   `json:"isHost"`
	IsBot    bool   `json:"isBot"`
}

// RoomPayload is the full public room snapshot (room_update).
type RoomPayload struct {
	Code             string       `json:"code"`
	Status           RoomStatus   `json:"status"`
	RoundNumber      int          `json:"roundNumber"`
	RoundsTarget     int          `json:"roundsTarget"`
	RoundsCompleted  int          `json:"roundsCompleted"`
	TiebreakerActive bool         `json:"tiebreakerActive"`
	Players          []ScoreEntry `json:"players"`
	MaxAttempts      int          `json:"maxAttempts"`
	CanStart         bool         `json:"canStart"`
	CanPlayAgain     bool         `json:"canPlayAgain"`
	HostID           string       `json:"hostId"`
	Language         string       `json:"language"`
	BotDifficulty    Difficulty   `json:"botDifficulty,omitempty"`
}

type RoomCreatedData struct {
	Code         string `json:"code"`
	PlayerID     string `json:"playerId"`
	Host         bool   `json:"host"`
	RoundsTarget int    `json:"roundsTarget"`
	Language     string `json:"language"`
}

type RoomJoinedData struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	Host     bool   `json:"host"`
}

type ErrorData struct {
	Error string `json:"error"`
}

type PlayerJoinedData struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Bot      bool   `json:"bot"`
}

type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Bot      bool   `json:"bot"`
	Expelled bool   `json:"expelled,omitempty"`
}

type HostChangeData struct {
	PlayerID string `json:"playerId"`
}

type SettingsUpdatedData struct {
	RoundsTarget  int        `json:"roundsTarget"`
	Language      string     `json:"language"`
	BotDifficulty Difficulty `json:"botDifficulty"`
}

type MatchStartedData struct {
	RoundsTarget int    `json:"roundsTarget"`
	Language     string `json:"language"`
}

type RoundStartedData struct {
	RoundNumber             int          `json:"roundNumber"`
	IsTiebreaker            bool         `json:"isTiebreaker"`
	MaxAttempts             int          `json:"maxAttempts"`
	Scoreboard              []ScoreEntry `json:"scoreboard"`
	RoundsTarget            int          `json:"roundsTarget"`
	StandardRoundsCompleted int          `json:"standardRoundsCompleted"`
}

// GuessResultData goes only to the submitter and carries full letter
// feedback.
type GuessResultData struct {
	PlayerID    string           `json:"playerId"`
	Guess       string           `json:"guess"`
	Feedback    []LetterFeedback `json:"feedback"`
	Attempt     int              `json:"attempt"`
	MaxAttempts int              `json:"maxAttempts"`
	RoundNumber int              `json:"roundNumber"`
}

// PeerGuessData is the privacy-reduced view broadcast to everyone else:
// the status pattern without the letters.
type PeerGuessData struct {
	PlayerID    string `json:"playerId"`
	Attempt     int    `json:"attempt"`
	Feedback    []Mark `json:"feedback"`
	RoundNumber int    `json:"roundNumber"`
}

type WinnerRef struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type RoundResultData struct {
	RoundNumber  int          `json:"roundNumber"`
	Winner       *WinnerRef   `json:"winner"`
	Draw         bool         `json:"draw"`
	IsTiebreaker bool         `json:"isTiebreaker"`
	CorrectWord  string       `json:"correctWord"`
	Scoreboard   []ScoreEntry `json:"scoreboard"`
}

type TiebreakerData struct {
	Leaders []WinnerRef `json:"leaders"`
}

type MatchOverData struct {
	Scoreboard []ScoreEntry `json:"scoreboard"`
	Winners    []WinnerRef  `json:"winners"`
	Cancelled  bool         `json:"cancelled"`
}

type MatchResetData struct {
	RoundsTarget int    `json:"roundsTarget"`
	Language     string `json:"language"`
}

type LeftRoomData struct {
	Code string `json:"code"`
}

// broadcast fans a message out to every seat in the snapshot. Write errors
// are the reader loop's problem; dropping them here keeps broadcasts from
// blocking the serialized handlers.
func broadcast[T any](players []*Player, msg Message[T]) {
	for _, p := range players {
		_ = p.SendJSON(msg)
	}
}

// broadcastExcept fans out to everyone but the named player.
func broadcastExcept[T any](players []*Player, exceptID string, msg Message[T]) {
	for _, p := range players {
		if p.ID == exceptID {
			continue
		}
		_ = p.SendJSON(msg)
	}
}
