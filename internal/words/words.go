// Package words holds the five-letter dictionaries the game draws secrets
// from and validates guesses against.
//
// Lists are embedded so the server runs with zero external files; a list can
// be swapped at startup by pointing WORDCLASH_WORDS_<LANG>_FILE at a plain
// text file with one word per line. Words are normalized to lowercase and
// anything that is not exactly five ASCII letters is dropped.
package words

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
)

//go:embed words_pt.txt
var embeddedPortuguese string

//go:embed words_en.txt
var embeddedEnglish string

const (
	LangPortuguese = "pt"
	LangEnglish    = "en"

	// DefaultLang is used whenever a room does not specify a language.
	DefaultLang = LangPortuguese

	WordLength = 5
)

// Service owns the loaded dictionaries. It is safe for concurrent use after
// construction; the lists are never mutated.
type Service struct {
	lists map[string][]string
	sets  map[string]map[string]struct{}

	mu  sync.Mutex
	rng *rand.Rand
}

// New loads the embedded dictionaries, honoring per-language file overrides
// from the environment.
func New(rng *rand.Rand) (*Service, error) {
	s := &Service{
		lists: make(map[string][]string),
		sets:  make(map[string]map[string]struct{}),
		rng:   rng,
	}

	embedded := map[string]string{
		LangPortuguese: embeddedPortuguese,
		LangEnglish:    embeddedEnglish,
	}
	for lang, raw := range embedded {
		list := normalizeLines(raw)
		if path := os.Getenv("WORDCLASH_WORDS_" + strings.ToUpper(lang) + "_FILE"); path != "" {
			loaded, err := readWordFile(path)
			if err != nil {
				return nil, fmt.Errorf("words: load %s list: %w", lang, err)
			}
			list = loaded
		}
		if len(list) == 0 {
			return nil, errors.New("words: " + lang + " list is empty")
		}
		s.lists[lang] = list
		s.sets[lang] = toSet(list)
	}
	return s, nil
}

// Supported reports whether lang has a loaded dictionary.
func (s *Service) Supported(lang string) bool {
	_, ok := s.lists[lang]
	return ok
}

// RandomWord draws a uniformly random secret for lang. Unknown languages fall
// back to the default list.
func (s *Service) RandomWord(lang string) string {
	list, ok := s.lists[lang]
	if !ok {
		list = s.lists[DefaultLang]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return list[s.rng.Intn(len(list))]
}

// Contains reports whether word is a legal guess in lang. Unknown languages
// accept a word found in any loaded list, mirroring the lenient fallback of
// the guess validator.
func (s *Service) Contains(lang, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if set, ok := s.sets[lang]; ok {
		_, hit := set[word]
		return hit
	}
	for _, set := range s.sets {
		if _, hit := set[word]; hit {
			return true
		}
	}
	return false
}

// Words returns the full list for lang. Callers must treat the slice as
// read-only; bots copy it into their candidate pools.
func (s *Service) Words(lang string) []string {
	list, ok := s.lists[lang]
	if !ok {
		list = s.lists[DefaultLang]
	}
	return list
}

func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w, ok := normalizeWord(sc.Text()); ok {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

func normalizeLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if w, ok := normalizeWord(line); ok {
			out = append(out, w)
		}
	}
	return out
}

func normalizeWord(line string) (string, bool) {
	w := strings.TrimSpace(strings.ToLower(line))
	if len(w) != WordLength || !isAlpha(w) {
		return "", false
	}
	return w, true
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
