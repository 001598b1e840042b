package service

import (
	"math"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

// guessWindow normalizes guess points regardless of the configured drawing time
const guessWindow = 60 * time.Second

// GuessPoints scores a correct guess: 50 at the deadline, 100 with the full window left
func GuessPoints(timeLeft time.Duration) int {
	frac := float64(timeLeft.Milliseconds()) / float64(guessWindow.Milliseconds())
	frac = math.Max(0, math.Min(1, frac))
	return int(math.Round(50 + 50*frac))
}

// DrawerShare is what the drawer earns each time any guesser scores
func DrawerShare(totalPlayers int) int {
	return int(math.Round(100 / float64(max(1, totalPlayers-1))))
}

// CloseThreshold is the largest edit distance still counted as close for a secret
func CloseThreshold(secret string) int {
	switch n := len([]rune(secret)); {
	case n < 5:
		return 1
	case n <= 7:
		return 2
	default:
		return 3
	}
}

func normalizeGuess(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsExactGuess compares case-insensitively after trimming
func IsExactGuess(guess, secret string) bool {
	return secret != "" && normalizeGuess(guess) == normalizeGuess(secret)
}

// IsCloseGuess reports a wrong guess within CloseThreshold of the secret
func IsCloseGuess(guess, secret string) bool {
	g, s := normalizeGuess(guess), normalizeGuess(secret)
	if s == "" {
		return false
	}
	d := levenshtein.ComputeDistance(g, s)
	return d > 0 && d <= CloseThreshold(s)
}
