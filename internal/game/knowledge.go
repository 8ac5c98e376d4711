package game

import "strings"

// Knowledge accumulates letter-level facts one guesser has learned during a
// single round. It is rebuilt at every round start, never carried across
// rounds.
//
// A letter becomes present the moment any occurrence of it scores green or
// yellow. A letter becomes banned only when every occurrence of it in a
// guess scored gray, and present always wins: a letter that is gray in one
// slot but green or yellow in another (duplicate-letter ambiguity) must
// never be banned.
type Knowledge struct {
	banned  map[byte]struct{}
	present map[byte]struct{}
}

func NewKnowledge() *Knowledge {
	return &Knowledge{
		banned:  make(map[byte]struct{}),
		present: make(map[byte]struct{}),
	}
}

// Observe folds the feedback for one evaluated guess into the tracker.
func (k *Knowledge) Observe(guess string, fb []LetterFeedback) {
	guess = strings.ToLower(guess)

	seenColored := make(map[byte]bool)
	for i := range fb {
		if fb[i].Status == MarkGreen || fb[i].Status == MarkYellow {
			seenColored[guess[i]] = true
		}
	}

	for i := 0; i < len(guess); i++ {
		c := guess[i]
		if seenColored[c] {
			k.present[c] = struct{}{}
			delete(k.banned, c)
			continue
		}
		if _, ok := k.present[c]; ok {
			continue
		}
		k.banned[c] = struct{}{}
	}
}

// Banned reports whether c was gray in every occurrence seen so far.
func (k *Knowledge) Banned(c byte) bool {
	_, ok := k.banned[c]
	return ok
}

// Present reports whether c has scored green or yellow at least once.
func (k *Knowledge) Present(c byte) bool {
	_, ok := k.present[c]
	return ok
}

// Allows rejects any candidate containing a banned letter.
func (k *Knowledge) Allows(word string) bool {
	word = strings.ToLower(word)
	for i := 0; i < len(word); i++ {
		if k.Banned(word[i]) {
			return false
		}
	}
	return true
}
