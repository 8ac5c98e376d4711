package game

import "strings"

// Mark classifies a single guessed letter against the secret.
type Mark string

const (
	MarkGreen  Mark = "green"
	MarkYellow Mark = "yellow"
	MarkGray   Mark = "gray"
)

// LetterFeedback is one tile of a guess result. Letters are reported
// uppercase for display; the comparison itself is case-insensitive.
type LetterFeedback struct {
	Letter string `json:"letter"`
	Status Mark   `json:"status"`
}

// Evaluate scores guess against secret with the standard two-pass rules.
//
// Pass 1 marks exact positional matches green and consumes those secret
// letters. Pass 2 scans the remaining unconsumed secret letters left to
// right for each non-green position, marking yellow on a hit (consuming it)
// and gray otherwise. Consuming is what keeps a repeated guess letter from
// being marked yellow more times than it occurs in the secret.
//
// Both inputs must be WordLength lowercase letters; the caller validates.
func Evaluate(secret, guess string) []LetterFeedback {
	secret = strings.ToLower(secret)
	guess = strings.ToLower(guess)

	n := len(guess)
	feedback := make([]LetterFeedback, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		feedback[i].Letter = strings.ToUpper(string(guess[i]))
		if guess[i] == secret[i] {
			feedback[i].Status = MarkGreen
			used[i] = true
		}
	}

	for i := 0; i < n; i++ {
		if feedback[i].Status == MarkGreen {
			continue
		}
		feedback[i].Status = MarkGray
		for j := 0; j < n; j++ {
			if !used[j] && guess[i] == secret[j] {
				feedback[i].Status = MarkYellow
				used[j] = true
				break
			}
		}
	}
	return feedback
}

// AllGreen reports whether fb is a winning evaluation.
func AllGreen(fb []LetterFeedback) bool {
	for _, f := range fb {
		if f.Status != MarkGreen {
			return false
		}
	}
	return len(fb) > 0
}

// Pattern strips the letters out of fb, leaving only the status sequence.
// This is what peers are allowed to see of each other's guesses.
func Pattern(fb []LetterFeedback) []Mark {
	out := make([]Mark, len(fb))
	for i, f := range fb {
		out[i] = f.Status
	}
	return out
}

func samePattern(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
