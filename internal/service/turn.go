package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Phase durations
const (
	ChoosingDifficultyDuration = 15 * time.Second
	ChoosingWordDuration       = 15 * time.Second
	DrawingDuration            = 60 * time.Second
	RevealDuration             = 3 * time.Second

	// an advance is a no-op while more than the grace window is left
	PhaseGrace  = 2 * time.Second
	RevealGrace = 500 * time.Millisecond

	candidateCount = 3
)

// expiredDeadline ends a phase immediately
var expiredDeadline = time.UnixMilli(0).UTC()

// effects collects what a committed transition must emit afterwards
type effects struct {
	messages []*model.Message
	finished bool
}

func (e *effects) add(m *model.Message) {
	e.messages = append(e.messages, m)
}

// machine holds the pure transition functions of a turn. Every method
// mutates the room it is given and never touches a store.
type machine struct {
	words *WordBank
	rand  Random
}

func (m machine) startGame(room *model.Room, now time.Time, eff *effects) {
	room.Status = model.RoomPlaying
	room.PlayerOrder = room.PlayersByJoinOrder()
	room.CurrentRound = 1
	room.Turn = nil
	room.UsedWords = []string{}
	m.rotate(room, now, eff)
}

func (m machine) beginTurn(room *model.Room, drawerID string, now time.Time, eff *effects) {
	room.Turn = model.NewTurn(drawerID, now.Add(ChoosingDifficultyDuration))
	name := drawerID
	if p, ok := room.Players[drawerID]; ok {
		name = p.Name
	}
	eff.add(model.NewSystemMessage(
		fmt.Sprintf("round-%d-%s", room.CurrentRound, drawerID),
		fmt.Sprintf("Starting Round %d: %s is drawing!", room.CurrentRound, name),
		now,
	))
}

func (m machine) chooseDifficulty(room *model.Room, d model.Difficulty, now time.Time) {
	t := room.Turn
	t.Phase = model.PhaseChoosingWord
	t.Difficulty = d
	t.CandidateWords = m.words.Candidates(d, room.UsedWords, candidateCount, m.rand)
	t.Deadline = now.Add(ChoosingWordDuration)
}

func (m machine) chooseWord(room *model.Room, word string, now time.Time) {
	t := room.Turn
	t.Phase = model.PhaseDrawing
	t.SecretWord = word
	t.HintIndices = m.rand.Perm(len([]rune(word)))
	t.Deadline = now.Add(DrawingDuration)
	if !room.HasWord(word) {
		room.UsedWords = append(room.UsedWords, word)
	}
}

func (m machine) reveal(room *model.Room, now time.Time, eff *effects) {
	t := room.Turn
	t.Phase = model.PhaseRevealing
	t.Deadline = now.Add(RevealDuration)
	eff.add(model.NewSystemMessage(
		fmt.Sprintf("reveal-%d-%s", room.CurrentRound, t.DrawerID),
		fmt.Sprintf("The word was %s", t.SecretWord),
		now,
	))
}

// rotate hands the turn to the next online player in PlayerOrder. Wrapping
// past the end starts a new round; running out of rounds or of online
// players finishes the game.
func (m machine) rotate(room *model.Room, now time.Time, eff *effects) {
	order := room.PlayerOrder
	cur := -1
	if room.Turn != nil {
		cur = slices.Index(order, room.Turn.DrawerID)
	}

	round := room.CurrentRound
	next := ""
	for step := 1; step <= len(order); step++ {
		j := cur + step
		if j >= len(order) {
			if j == len(order) {
				round++
			}
			j -= len(order)
		}
		if p, ok := room.Players[order[j]]; ok && p.IsOnline {
			next = order[j]
			break
		}
	}

	if next == "" || round > room.Config.RoundCount {
		m.finish(room, now, eff)
		return
	}
	room.CurrentRound = round
	m.beginTurn(room, next, now, eff)
}

func (m machine) finish(room *model.Room, now time.Time, eff *effects) {
	room.Status = model.RoomFinished
	room.Turn = nil
	eff.finished = true

	text := "Game over!"
	switch l := leaders(room); {
	case len(l) == 1:
		text = fmt.Sprintf("Game over! %s wins with %d points", l[0].Name, l[0].Score)
	case len(l) > 1:
		names := lo.Map(l, func(p *model.Player, _ int) string { return p.Name })
		text = fmt.Sprintf("Game over! It's a tie between %s with %d points",
			strings.Join(names, " and "), l[0].Score)
	}
	eff.add(model.NewSystemMessage("game-over", text, now))
}

// expire advances a turn whose deadline is within its grace window.
// It reports false when the deadline is still too far away.
func (m machine) expire(room *model.Room, now time.Time, eff *effects) (bool, error) {
	t := room.Turn
	if room.Status != model.RoomPlaying || t == nil {
		return false, ErrNoActiveTurn
	}

	grace := PhaseGrace
	if t.Phase == model.PhaseRevealing {
		grace = RevealGrace
	}
	if t.Deadline.Sub(now) > grace {
		return false, nil
	}

	switch t.Phase {
	case model.PhaseChoosingDifficulty:
		d := model.Difficulties[m.rand.Intn(len(model.Difficulties))]
		m.chooseDifficulty(room, d, now)
	case model.PhaseChoosingWord:
		candidates := t.CandidateWords
		if len(candidates) == 0 {
			candidates = m.words.Candidates(t.Difficulty, room.UsedWords, candidateCount, m.rand)
		}
		m.chooseWord(room, candidates[m.rand.Intn(len(candidates))], now)
	case model.PhaseDrawing:
		m.reveal(room, now, eff)
	case model.PhaseRevealing:
		m.rotate(room, now, eff)
	default:
		return false, fmt.Errorf("unknown phase %q", t.Phase)
	}
	return true, nil
}

// depart fixes up a running game after playerID was removed from the room
func (m machine) depart(room *model.Room, playerID string, now time.Time, eff *effects) {
	if room.Status != model.RoomPlaying || room.Turn == nil {
		return
	}
	if len(room.Players) < model.MinPlayers {
		m.finish(room, now, eff)
		return
	}
	if room.Turn.DrawerID == playerID {
		m.rotate(room, now, eff)
		return
	}
	m.closeIfAllGuessed(room, now, eff)
}

// closeIfAllGuessed expires the drawing phase once nobody is left to guess
func (m machine) closeIfAllGuessed(room *model.Room, now time.Time, eff *effects) bool {
	t := room.Turn
	if t == nil || t.Phase != model.PhaseDrawing || len(t.CorrectGuessers) == 0 || !room.AllGuessed() {
		return false
	}
	if !t.Deadline.After(expiredDeadline) {
		return false
	}
	t.Deadline = expiredDeadline
	eff.add(model.NewSystemMessage(
		fmt.Sprintf("all-guessed-%d-%s", room.CurrentRound, t.DrawerID),
		"All players guessed! Round ending…",
		now.Add(time.Millisecond),
	))
	return true
}

// Archiver receives every game that reached finished
type Archiver interface {
	Archive(ctx context.Context, room *model.Room)
}

// engine is the store plumbing shared by the game services
type engine struct {
	rooms    cache.RoomStore
	feed     cache.MessageFeed
	machine  machine
	archiver Archiver
	rt       Runtime
}

func newEngine(rooms cache.RoomStore, feed cache.MessageFeed, words *WordBank, archiver Archiver, rt Runtime) engine {
	rt = rt.withDefaults()
	if words == nil {
		words = NewWordBank(nil)
	}
	return engine{
		rooms:    rooms,
		feed:     feed,
		machine:  machine{words: words, rand: rt.Rand},
		archiver: archiver,
		rt:       rt,
	}
}

// transact runs fn against a fresh copy of the room on every attempt and
// returns the effects of the attempt that committed.
func (e *engine) transact(ctx context.Context, code string, fn func(room *model.Room, eff *effects) error) (*model.Room, *effects, error) {
	eff := &effects{}
	room, err := e.rooms.Transact(ctx, code, func(room *model.Room) error {
		*eff = effects{}
		return fn(room, eff)
	})
	if err != nil {
		return nil, nil, err
	}
	return room, eff, nil
}

// emit writes the messages one by one so their display order holds, then
// archives a finished game. The transition is already committed, so a
// caller that went away must not drop its messages.
func (e *engine) emit(ctx context.Context, code string, room *model.Room, eff *effects) {
	if eff == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, m := range eff.messages {
		if err := e.feed.Append(ctx, code, m); err != nil {
			e.rt.Logger.Error("failed to append message",
				zap.String("room", code), zap.String("message", m.ID), zap.Error(err))
		}
	}
	if eff.finished && room != nil && e.archiver != nil {
		e.archiver.Archive(ctx, room)
	}
}

// TurnService drives drawer selections and deadline expiry
type TurnService struct {
	engine
}

// NewTurnService creates a new turn service
func NewTurnService(rooms cache.RoomStore, feed cache.MessageFeed, words *WordBank, archiver Archiver, rt Runtime) *TurnService {
	return &TurnService{engine: newEngine(rooms, feed, words, archiver, rt)}
}

// SelectDifficulty is the drawer's pick in choosing_difficulty
func (s *TurnService) SelectDifficulty(ctx context.Context, code, playerID string, d model.Difficulty) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}
	if !d.Valid() {
		return ErrInvalidDifficulty
	}

	_, _, err = s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		t := room.Turn
		if room.Status != model.RoomPlaying || t == nil {
			return ErrNoActiveTurn
		}
		if t.DrawerID != playerID {
			return ErrNotDrawer
		}
		if t.Phase != model.PhaseChoosingDifficulty {
			return ErrWrongPhase
		}
		now := s.rt.Now()
		s.machine.chooseDifficulty(room, d, now)
		room.Touch(now)
		return nil
	})
	return translateStoreError("select difficulty", err)
}

// SelectWord is the drawer's pick among the offered candidates
func (s *TurnService) SelectWord(ctx context.Context, code, playerID, word string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}
	word = normalizeGuess(word)
	if word == "" {
		return ErrInvalidWord
	}

	_, _, err = s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		t := room.Turn
		if room.Status != model.RoomPlaying || t == nil {
			return ErrNoActiveTurn
		}
		if t.DrawerID != playerID {
			return ErrNotDrawer
		}
		if t.Phase != model.PhaseChoosingWord {
			return ErrWrongPhase
		}
		idx := slices.IndexFunc(t.CandidateWords, func(c string) bool {
			return strings.EqualFold(c, word)
		})
		if idx < 0 {
			return ErrInvalidWord
		}
		now := s.rt.Now()
		s.machine.chooseWord(room, t.CandidateWords[idx], now)
		room.Touch(now)
		return nil
	})
	return translateStoreError("select word", err)
}

// AdvanceTurnIfExpired moves the turn on when its deadline has passed. Any
// client may call it at any time; early and duplicate calls are no-ops and
// losing a race to another advance is not an error. It reports whether this
// call changed the room.
func (s *TurnService) AdvanceTurnIfExpired(ctx context.Context, code string) (bool, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return false, err
	}

	advanced := false
	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		now := s.rt.Now()
		ok, err := s.machine.expire(room, now, eff)
		advanced = ok
		if err != nil {
			return err
		}
		if !ok {
			return cache.SkipWrite
		}
		room.Touch(now)
		return nil
	})
	if errors.Is(err, cache.ErrConflict) {
		s.rt.Logger.Debug("advance lost to concurrent writers", zap.String("room", code))
		return false, nil
	}
	if err != nil {
		return false, translateStoreError("advance turn", err)
	}
	if advanced {
		s.emit(ctx, code, room, eff)
	}
	return advanced, nil
}
