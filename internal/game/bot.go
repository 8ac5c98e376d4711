package game

import (
	"math/rand"
	"time"
)

// Difficulty selects a bot preset. Rooms apply one difficulty to every bot
// they seat.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes a client-provided difficulty label.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	}
	return "", false
}

// botPreset is the per-difficulty tuning a persona is sampled from.
type botPreset struct {
	thinkMin time.Duration
	thinkMax time.Duration

	// smartBase is the baseline probability of guessing from the narrowed
	// candidate pool instead of the whole dictionary.
	smartBase float64

	// confAttemptsMin/Max bound the sampled minimum-attempts-before-confident
	// threshold.
	confAttemptsMin int
	confAttemptsMax int

	// confRamp is how much the smart-pick probability grows per attempt once
	// the threshold is passed.
	confRamp float64

	mistakeProb  float64
	wildResidual float64
}

var botPresets = map[Difficulty]botPreset{
	DifficultyEasy: {
		thinkMin: 4 * time.Second, thinkMax: 9 * time.Second,
		smartBase:       0.35,
		confAttemptsMin: 3, confAttemptsMax: 5,
		confRamp:     0.10,
		mistakeProb:  0.35,
		wildResidual: 0.25,
	},
	DifficultyMedium: {
		thinkMin: 3 * time.Second, thinkMax: 7 * time.Second,
		smartBase:       0.55,
		confAttemptsMin: 2, confAttemptsMax: 4,
		confRamp:     0.15,
		mistakeProb:  0.20,
		wildResidual: 0.12,
	},
	DifficultyHard: {
		thinkMin: 2 * time.Second, thinkMax: 5 * time.Second,
		smartBase:       0.80,
		confAttemptsMin: 1, confAttemptsMax: 2,
		confRamp:     0.20,
		mistakeProb:  0.08,
		wildResidual: 0.05,
	},
}

// persona holds the parameters sampled once per round so a bot plays with a
// consistent temperament within a round but varies between rounds.
type persona struct {
	minConfidentAttempts int
	confidenceBias       float64
	mistakeProb          float64
}

// BotSession is one simulated opponent's brain for the current round:
// candidate pool, tried words, letter knowledge and sampled persona. It is
// re-armed at every round start and is not safe for concurrent use; the
// room's serialization covers it.
type BotSession struct {
	Difficulty Difficulty

	preset     botPreset
	dictionary []string
	rng        *rand.Rand

	candidates []string
	tried      map[string]struct{}
	knowledge  *Knowledge
	persona    persona
	attempts   int
}

// NewBotSession creates a session over the full dictionary for the room's
// language. The dictionary slice is treated as read-only.
func NewBotSession(d Difficulty, dictionary []string, rng *rand.Rand) *BotSession {
	b := &BotSession{
		Difficulty: d,
		preset:     botPresets[d],
		dictionary: dictionary,
		rng:        rng,
	}
	b.Rearm()
	return b
}

// SetDictionary swaps the word list the session draws from, for rooms that
// change language between matches. Takes effect through the next Rearm.
func (b *BotSession) SetDictionary(dictionary []string) {
	b.dictionary = dictionary
}

// Rearm resets the session for a new round: full candidate pool, empty tried
// set, fresh knowledge, newly sampled persona.
func (b *BotSession) Rearm() {
	b.candidates = append([]string(nil), b.dictionary...)
	b.tried = make(map[string]struct{})
	b.knowledge = NewKnowledge()
	b.attempts = 0
	b.persona = persona{
		minConfidentAttempts: b.preset.confAttemptsMin +
			b.rng.Intn(b.preset.confAttemptsMax-b.preset.confAttemptsMin+1),
		confidenceBias: (b.rng.Float64() - 0.5) * 0.2,
		mistakeProb:    b.preset.mistakeProb,
	}
}

// ThinkDelay draws the randomized pause taken before each guess.
func (b *BotSession) ThinkDelay() time.Duration {
	spread := b.preset.thinkMax - b.preset.thinkMin
	return b.preset.thinkMin + time.Duration(b.rng.Int63n(int64(spread)))
}

// NextGuess produces the bot's next word. Before the persona's confidence
// threshold the bot leans toward uninformed play: the smart-pick probability
// is scaled down and a mistake roll may send it to the raw dictionary. After
// the threshold the narrowed pool dominates, with a small residual wild
// chance so play never becomes deterministic. Returns false only when even
// the full dictionary is exhausted; callers treat that as a skipped turn.
// The attempt counter the ramp reads advances in Refine, so a produced word
// that is later rejected does not inflate confidence.
func (b *BotSession) NextGuess() (string, bool) {
	attempt := b.attempts + 1

	smart := b.preset.smartBase + b.persona.confidenceBias
	if attempt <= b.persona.minConfidentAttempts {
		smart *= float64(attempt) / float64(b.persona.minConfidentAttempts+1)
		if b.rng.Float64() < b.persona.mistakeProb {
			return b.pick(b.dictionary)
		}
	} else {
		smart += b.preset.confRamp * float64(attempt-b.persona.minConfidentAttempts)
		if b.rng.Float64() < b.preset.wildResidual {
			return b.pick(b.dictionary)
		}
	}
	if smart > 1 {
		smart = 1
	}

	if b.rng.Float64() < smart {
		if w, ok := b.pick(b.candidates); ok {
			return w, true
		}
	}
	return b.pick(b.dictionary)
}

// Refine folds the feedback for the bot's own accepted guess back into its
// state: advance the attempt counter, update letter knowledge, then rebuild
// the candidate pool from all untried dictionary words whose simulated
// feedback for the guessed word matches the observed pattern exactly. Strict
// filtering falling empty degrades to the knowledge-only filter, and that
// falling empty degrades to the full dictionary, so a bot with attempts
// remaining always has a legal pool.
func (b *BotSession) Refine(guess string, fb []LetterFeedback) {
	b.attempts++
	b.knowledge.Observe(guess, fb)
	observed := Pattern(fb)

	var strict, loose []string
	for _, cand := range b.dictionary {
		if _, tried := b.tried[cand]; tried {
			continue
		}
		if !b.knowledge.Allows(cand) {
			continue
		}
		loose = append(loose, cand)
		if samePattern(Pattern(Evaluate(cand, guess)), observed) {
			strict = append(strict, cand)
		}
	}

	switch {
	case len(strict) > 0:
		b.candidates = strict
	case len(loose) > 0:
		b.candidates = loose
	default:
		b.candidates = append([]string(nil), b.dictionary...)
	}
}

// CandidateCount exposes the current pool size for logging.
func (b *BotSession) CandidateCount() int { return len(b.candidates) }

// pick selects a random untried word from pool, marking it tried. An
// exhausted pool releases previously tried words back before picking.
func (b *BotSession) pick(pool []string) (string, bool) {
	if len(pool) == 0 {
		return "", false
	}
	untried := make([]string, 0, len(pool))
	for _, w := range pool {
		if _, ok := b.tried[w]; !ok {
			untried = append(untried, w)
		}
	}
	if len(untried) == 0 {
		b.tried = make(map[string]struct{})
		untried = pool
	}
	w := untried[b.rng.Intn(len(untried))]
	b.tried[w] = struct{}{}
	return w, true
}
