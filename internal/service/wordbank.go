package service

import (
	"slices"
	"strings"

	"sketchrooms/internal/model"

	"github.com/samber/lo"
)

var defaultWords = map[model.Difficulty][]string{
	model.DifficultyEasy: {
		"cat", "dog", "sun", "tree", "house", "car", "fish", "apple", "ball", "star",
		"moon", "book", "cake", "bird", "hat", "shoe", "cup", "key", "boat", "flower",
	},
	model.DifficultyMedium: {
		"guitar", "rainbow", "castle", "pizza", "rocket", "penguin", "bicycle", "camera",
		"dragon", "island", "ladder", "pirate", "robot", "snowman", "tornado", "volcano",
		"lighthouse", "umbrella", "octopus", "backpack",
	},
	model.DifficultyHard: {
		"electricity", "democracy", "gravity", "nostalgia", "photosynthesis", "time travel",
		"black hole", "stock market", "jet lag", "traffic jam", "haunted house",
		"solar eclipse", "family tree", "social media", "daydream", "identity theft",
		"northern lights", "world record", "fire drill", "hide and seek",
	},
}

// DefaultWordEntries returns the built-in word list
func DefaultWordEntries() []model.WordEntry {
	var out []model.WordEntry
	for _, d := range model.Difficulties {
		for _, w := range defaultWords[d] {
			out = append(out, model.WordEntry{Word: w, Difficulty: d})
		}
	}
	return out
}

// WordBank holds the tiered word list. It is read-only after construction.
type WordBank struct {
	tiers map[model.Difficulty][]string
}

// NewWordBank builds a bank from entries, falling back to the built-in list
// for any tier left empty.
func NewWordBank(entries []model.WordEntry) *WordBank {
	tiers := make(map[model.Difficulty][]string, len(model.Difficulties))
	for _, e := range entries {
		w := strings.ToLower(strings.TrimSpace(e.Word))
		if w == "" || !e.Difficulty.Valid() {
			continue
		}
		if !slices.Contains(tiers[e.Difficulty], w) {
			tiers[e.Difficulty] = append(tiers[e.Difficulty], w)
		}
	}
	for _, d := range model.Difficulties {
		if len(tiers[d]) == 0 {
			tiers[d] = slices.Clone(defaultWords[d])
		}
	}
	return &WordBank{tiers: tiers}
}

// Size returns the number of words in a tier
func (b *WordBank) Size(d model.Difficulty) int {
	return len(b.tiers[d])
}

// Candidates picks up to n distinct words of difficulty d that are not in used.
// When the tier is exhausted the used words are offered again.
func (b *WordBank) Candidates(d model.Difficulty, used []string, n int, rnd Random) []string {
	tier := b.tiers[d]
	available := lo.Filter(tier, func(w string, _ int) bool {
		return !slices.Contains(used, w)
	})
	if len(available) == 0 {
		available = tier
	}
	if len(available) <= n {
		return slices.Clone(available)
	}

	out := make([]string, 0, n)
	for _, i := range rnd.Perm(len(available))[:n] {
		out = append(out, available[i])
	}
	return out
}
