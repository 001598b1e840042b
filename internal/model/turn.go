package model

import (
	"slices"
	"strings"
	"time"
)

// Phase is one of the four sub-states of a turn
type Phase string

const (
	PhaseChoosingDifficulty Phase = "choosing_difficulty"
	PhaseChoosingWord       Phase = "choosing_word"
	PhaseDrawing            Phase = "drawing"
	PhaseRevealing          Phase = "revealing"
)

// Difficulty selects the word tier offered to the drawer
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every tier in a stable order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is a known tier
func (d Difficulty) Valid() bool {
	return slices.Contains(Difficulties, d)
}

// Hint thresholds during drawing
const (
	FirstHintAt  = 30 * time.Second
	SecondHintAt = 15 * time.Second
)

// Turn is the active drawer's transient state
type Turn struct {
	DrawerID        string         `json:"drawerId"`
	Phase           Phase          `json:"phase"`
	Deadline        time.Time      `json:"deadline"`
	Difficulty      Difficulty     `json:"difficulty,omitempty"`
	CandidateWords  []string       `json:"candidateWords,omitempty"`
	SecretWord      string         `json:"secretWord,omitempty"`
	CorrectGuessers []string       `json:"correctGuessers"`
	Scores          map[string]int `json:"scores"`
	HintIndices     []int          `json:"hintIndices,omitempty"`
}

// NewTurn builds a fresh turn in choosing_difficulty
func NewTurn(drawerID string, deadline time.Time) *Turn {
	return &Turn{
		DrawerID:        drawerID,
		Phase:           PhaseChoosingDifficulty,
		Deadline:        deadline,
		CorrectGuessers: []string{},
		Scores:          map[string]int{},
	}
}

// HasGuessed reports whether playerID already scored this turn
func (t *Turn) HasGuessed(playerID string) bool {
	return slices.Contains(t.CorrectGuessers, playerID)
}

// TimeLeft is the remaining time before the deadline, never negative
func (t *Turn) TimeLeft(now time.Time) time.Duration {
	left := t.Deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// HintsRevealed is how many letters guessers may see at now
func (t *Turn) HintsRevealed(now time.Time) int {
	if t.Phase != PhaseDrawing {
		return 0
	}
	left := t.TimeLeft(now)
	switch {
	case left <= SecondHintAt:
		return 2
	case left <= FirstHintAt:
		return 1
	default:
		return 0
	}
}

// MaskedWord hides the secret word, revealing letters in HintIndices order.
// Spaces are always shown and at least one letter stays hidden.
func (t *Turn) MaskedWord(now time.Time) string {
	if t.SecretWord == "" {
		return ""
	}
	runes := []rune(t.SecretWord)
	letters := 0
	for _, r := range runes {
		if r != ' ' {
			letters++
		}
	}
	reveal := max(min(t.HintsRevealed(now), letters-1), 0)

	shown := make(map[int]bool, reveal)
	for _, idx := range t.HintIndices {
		if len(shown) >= reveal {
			break
		}
		if idx < 0 || idx >= len(runes) || runes[idx] == ' ' {
			continue
		}
		shown[idx] = true
	}

	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == ' ':
			b.WriteRune(' ')
		case shown[i]:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (t *Turn) clone() *Turn {
	if t == nil {
		return nil
	}
	c := *t
	c.CandidateWords = slices.Clone(t.CandidateWords)
	c.CorrectGuessers = slices.Clone(t.CorrectGuessers)
	c.HintIndices = slices.Clone(t.HintIndices)
	c.Scores = make(map[string]int, len(t.Scores))
	for k, v := range t.Scores {
		c.Scores[k] = v
	}
	return &c
}
