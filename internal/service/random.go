package service

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Random is the single source of randomness for the game services
type Random interface {
	Intn(n int) int
	Perm(n int) []int
}

// Clock returns the current time
type Clock func() time.Time

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a goroutine-safe Random seeded with seed
func NewRandom(seed int64) Random {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}

// Runtime bundles what every game service needs besides its stores
type Runtime struct {
	Now    Clock
	Rand   Random
	Logger *zap.Logger
}

// DefaultRuntime uses wall-clock time and a time-seeded source
func DefaultRuntime(logger *zap.Logger) Runtime {
	return Runtime{
		Now:    time.Now,
		Rand:   NewRandom(time.Now().UnixNano()),
		Logger: logger,
	}
}

func (rt Runtime) withDefaults() Runtime {
	if rt.Now == nil {
		rt.Now = time.Now
	}
	if rt.Rand == nil {
		rt.Rand = NewRandom(time.Now().UnixNano())
	}
	if rt.Logger == nil {
		rt.Logger = zap.NewNop()
	}
	return rt
}
