package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"github.com/google/uuid"
)

const maxGuessLen = 100

// GuessOutcome tells the caller how a submission was handled
type GuessOutcome string

const (
	GuessChat    GuessOutcome = "chat"
	GuessCorrect GuessOutcome = "correct"
	GuessClose   GuessOutcome = "close"
	// GuessIgnored is a repeat from a player who already scored this turn
	GuessIgnored GuessOutcome = "ignored"
)

// GuessService evaluates chat submissions against the secret word
type GuessService struct {
	engine
}

// NewGuessService creates a new guess service
func NewGuessService(rooms cache.RoomStore, feed cache.MessageFeed, words *WordBank, archiver Archiver, rt Runtime) *GuessService {
	return &GuessService{engine: newEngine(rooms, feed, words, archiver, rt)}
}

// SubmitGuess handles a chat line. Outside the drawing phase it is plain
// chat; during drawing it is scored, hinted privately when close, or posted
// publicly otherwise.
func (s *GuessService) SubmitGuess(ctx context.Context, code, playerID, name, text string) (GuessOutcome, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxGuessLen {
		return "", ErrMessageTooLong
	}

	var outcome GuessOutcome
	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		now := s.rt.Now()
		p, ok := room.Players[playerID]
		if !ok {
			return ErrPlayerNotFound
		}
		author := p.Name
		if author == "" {
			author = name
		}

		t := room.Turn
		if room.Status != model.RoomPlaying || t == nil || t.Phase != model.PhaseDrawing {
			outcome = GuessChat
			eff.add(chatMessage(playerID, author, text, now))
			return cache.SkipWrite
		}

		exact := IsExactGuess(text, t.SecretWord)
		near := !exact && IsCloseGuess(text, t.SecretWord)
		if (exact || near) && t.DrawerID == playerID {
			return ErrDrawerCannotGuess
		}
		if (exact || near) && t.HasGuessed(playerID) {
			outcome = GuessIgnored
			return cache.SkipWrite
		}

		switch {
		case exact:
			outcome = GuessCorrect
			points := GuessPoints(t.TimeLeft(now))
			t.CorrectGuessers = append(t.CorrectGuessers, playerID)
			t.Scores[playerID] += points
			room.Players[playerID].Score += points
			if drawer, ok := room.Players[t.DrawerID]; ok {
				share := DrawerShare(len(room.Players))
				drawer.Score += share
				t.Scores[t.DrawerID] += share
			}
			eff.add(model.NewSystemMessage(
				fmt.Sprintf("guessed-%d-%s-%s", room.CurrentRound, t.DrawerID, playerID),
				fmt.Sprintf("%s guessed the word!", author),
				now,
			))
			s.machine.closeIfAllGuessed(room, now, eff)
			room.Touch(now)
			return nil
		case near:
			outcome = GuessClose
			echo := chatMessage(playerID, author, text, now)
			echo.VisibleTo = []string{playerID}
			hint := model.NewSystemMessage(uuid.NewString(), fmt.Sprintf("'%s' is very close!", text), now.Add(time.Millisecond))
			hint.VisibleTo = []string{playerID}
			eff.add(echo)
			eff.add(hint)
			return cache.SkipWrite
		default:
			outcome = GuessChat
			eff.add(chatMessage(playerID, author, text, now))
			return cache.SkipWrite
		}
	})
	if err != nil {
		return "", translateStoreError("submit guess", err)
	}
	s.emit(ctx, code, room, eff)
	return outcome, nil
}

func chatMessage(playerID, name, text string, now time.Time) *model.Message {
	return &model.Message{
		ID:         uuid.NewString(),
		AuthorID:   playerID,
		AuthorName: name,
		Text:       text,
		Timestamp:  now,
	}
}
