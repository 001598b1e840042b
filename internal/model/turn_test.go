package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func drawingTurn(word string, hints []int) *Turn {
	t := NewTurn("drawer", base.Add(60*time.Second))
	t.Phase = PhaseDrawing
	t.SecretWord = word
	t.HintIndices = hints
	return t
}

func TestMaskedWordRevealsHintsOverTime(t *testing.T) {
	turn := drawingTurn("apple", []int{2, 0, 4, 1, 3})

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"start", 0, "_____"},
		{"before first hint", 29 * time.Second, "_____"},
		{"first hint", 30 * time.Second, "__p__"},
		{"second hint", 45 * time.Second, "a_p__"},
		{"deadline", 60 * time.Second, "a_p__"},
		{"past deadline", 90 * time.Second, "a_p__"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, turn.MaskedWord(base.Add(tt.elapsed)))
		})
	}
}

func TestMaskedWordKeepsSpacesAndSkipsThemAsHints(t *testing.T) {
	turn := drawingTurn("black hole", []int{5, 0, 6})

	assert.Equal(t, "_____ ____", turn.MaskedWord(base))
	assert.Equal(t, "b____ h___", turn.MaskedWord(base.Add(50*time.Second)))
}

func TestMaskedWordNeverRevealsWholeWord(t *testing.T) {
	turn := drawingTurn("ox", []int{0, 1})
	assert.Equal(t, "o_", turn.MaskedWord(base.Add(59*time.Second)))

	single := drawingTurn("a", []int{0})
	assert.Equal(t, "_", single.MaskedWord(base.Add(59*time.Second)))
}

func TestHintsOnlyWhileDrawing(t *testing.T) {
	turn := drawingTurn("apple", []int{0, 1, 2, 3, 4})
	turn.Phase = PhaseRevealing
	assert.Equal(t, 0, turn.HintsRevealed(base.Add(59*time.Second)))
}

func TestTimeLeftNeverNegative(t *testing.T) {
	turn := NewTurn("drawer", base)
	assert.Equal(t, time.Duration(0), turn.TimeLeft(base.Add(time.Minute)))
	assert.Equal(t, 10*time.Second, turn.TimeLeft(base.Add(-10*time.Second)))
}

func TestNewTurnStartsChoosingDifficulty(t *testing.T) {
	turn := NewTurn("a", base)
	assert.Equal(t, PhaseChoosingDifficulty, turn.Phase)
	assert.Empty(t, turn.CandidateWords)
	assert.Empty(t, turn.CorrectGuessers)
	assert.NotNil(t, turn.Scores)
	assert.False(t, turn.HasGuessed("a"))
}

func TestDifficultyValid(t *testing.T) {
	assert.True(t, DifficultyEasy.Valid())
	assert.True(t, DifficultyHard.Valid())
	assert.False(t, Difficulty("extreme").Valid())
	assert.False(t, Difficulty("").Valid())
}
