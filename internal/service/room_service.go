package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	roomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLen   = 6
	maxNameLen    = 24
)

var avatars = []string{"fox", "owl", "cat", "frog", "bear", "panda", "koala", "tiger", "otter", "whale", "duck", "lion"}

// NormalizeRoomCode upper-cases a room code and checks its length
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLen {
		return "", ErrInvalidRoomCode
	}
	return code, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// RoomService handles room lifecycle operations
type RoomService struct {
	engine
	authSvc     *AuthService
	broadcaster Broadcaster
}

// NewRoomService creates a new room service
func NewRoomService(
	rooms cache.RoomStore,
	feed cache.MessageFeed,
	words *WordBank,
	authSvc *AuthService,
	archiver Archiver,
	rt Runtime,
) *RoomService {
	return &RoomService{
		engine:  newEngine(rooms, feed, words, archiver, rt),
		authSvc: authSvc,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket disconnects
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateRoom opens a waiting room with the host as its only player
func (s *RoomService) CreateRoom(ctx context.Context, hostID, name string, cfg *model.RoomConfig) (*model.JoinResult, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if hostID == "" {
		hostID = uuid.NewString()
	}
	config := model.DefaultRoomConfig()
	if cfg != nil {
		config = cfg.Clamped()
	}

	now := s.rt.Now()
	room := &model.Room{
		HostID:         hostID,
		Status:         model.RoomWaiting,
		Config:         config,
		Players:        map[string]*model.Player{hostID: s.newPlayer(hostID, name, now)},
		PlayerOrder:    []string{},
		UsedWords:      []string{},
		CreatedAt:      now,
		LastActivityAt: now,
	}

	for attempts := 0; attempts < 10; attempts++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}
		room.ID = code
		err = s.rooms.Create(ctx, room)
		if errors.Is(err, cache.ErrExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		token, err := s.token(code, hostID)
		if err != nil {
			return nil, err
		}
		s.rt.Logger.Info("room created", zap.String("room", code), zap.String("host", hostID))
		return &model.JoinResult{Success: true, Token: token, Room: room.ViewFor(hostID, now)}, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code")
}

// JoinRoom adds a player to a waiting room. Rejections a player can act on
// come back as an unsuccessful result, not an error.
func (s *RoomService) JoinRoom(ctx context.Context, code, playerID, name string) (*model.JoinResult, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	name, err = normalizeName(name)
	if err != nil {
		return nil, err
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	// cheap pre-check, repeated authoritatively inside the transaction
	current, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if current == nil {
		return rejected(ErrRoomNotFound), nil
	}
	if _, ok := current.Players[playerID]; !ok {
		if err := admissible(current); err != nil {
			return rejected(err), nil
		}
	}

	joined := false
	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		joined = false
		if _, ok := room.Players[playerID]; ok {
			return cache.SkipWrite
		}
		if err := admissible(room); err != nil {
			return err
		}
		now := s.rt.Now()
		room.Players[playerID] = s.newPlayer(playerID, name, now)
		room.Touch(now)
		eff.add(&model.Message{
			ID:        uuid.NewString(),
			AuthorID:  model.SystemAuthorID,
			Text:      fmt.Sprintf("%s joined the room", name),
			IsSystem:  true,
			Timestamp: now,
		})
		joined = true
		return nil
	})
	var gerr *GameError
	if errors.As(err, &gerr) || errors.Is(err, cache.ErrNotFound) {
		return rejected(translateStoreError("join", err)), nil
	}
	if err != nil {
		return nil, translateStoreError("join room", err)
	}
	if joined {
		s.emit(ctx, code, room, eff)
	}

	token, err := s.token(code, playerID)
	if err != nil {
		return nil, err
	}
	return &model.JoinResult{Success: true, Token: token, Room: room.ViewFor(playerID, s.rt.Now())}, nil
}

func admissible(room *model.Room) error {
	if room.Status != model.RoomWaiting {
		return ErrGameInProgress
	}
	if room.IsFull() {
		return ErrRoomFull
	}
	return nil
}

func rejected(err error) *model.JoinResult {
	return &model.JoinResult{Success: false, Message: err.Error()}
}

// ToggleReady flips the player's ready flag in the lobby and returns the new value
func (s *RoomService) ToggleReady(ctx context.Context, code, playerID string) (bool, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return false, err
	}

	ready := false
	_, _, err = s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		p, ok := room.Players[playerID]
		if !ok {
			return ErrPlayerNotFound
		}
		if room.Status != model.RoomWaiting {
			return ErrGameInProgress
		}
		p.IsReady = !p.IsReady
		ready = p.IsReady
		room.Touch(s.rt.Now())
		return nil
	})
	if err != nil {
		return false, translateStoreError("toggle ready", err)
	}
	return ready, nil
}

// StartGame begins the first turn once every player is ready. The caller
// checks host privileges.
func (s *RoomService) StartGame(ctx context.Context, code string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}

	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		if room.Status != model.RoomWaiting {
			return ErrGameInProgress
		}
		if len(room.Players) < model.MinPlayers {
			return ErrNotEnoughPlayers
		}
		if !lo.EveryBy(lo.Values(room.Players), func(p *model.Player) bool { return p.IsReady }) {
			return ErrNotAllReady
		}
		now := s.rt.Now()
		s.machine.startGame(room, now, eff)
		room.Touch(now)
		return nil
	})
	if err != nil {
		return translateStoreError("start game", err)
	}
	s.emit(ctx, code, room, eff)
	s.rt.Logger.Info("game started", zap.String("room", code), zap.Int("players", len(room.Players)))
	return nil
}

// RequireHost fails with ErrNotHost unless playerID hosts the room
func (s *RoomService) RequireHost(ctx context.Context, code, playerID string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if !room.IsHost(playerID) {
		return ErrNotHost
	}
	return nil
}

// RequireMember fails with ErrNotMember unless playerID is in the room.
// A token outlives a kick or a leave, so readers check this first.
func (s *RoomService) RequireMember(ctx context.Context, code, playerID string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if _, ok := room.Players[playerID]; !ok {
		return ErrNotMember
	}
	return nil
}

// KickPlayer removes targetID on the host's behalf. Kicking an absent player is a no-op.
func (s *RoomService) KickPlayer(ctx context.Context, code, callerID, targetID string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}

	kicked := false
	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		kicked = false
		if !room.IsHost(callerID) {
			return ErrNotHost
		}
		if targetID == callerID {
			return ErrSelfKick
		}
		p, ok := room.Players[targetID]
		if !ok {
			return cache.SkipWrite
		}
		now := s.rt.Now()
		delete(room.Players, targetID)
		eff.add(model.NewSystemMessage(uuid.NewString(), fmt.Sprintf("%s was kicked", p.Name), now))
		s.machine.depart(room, targetID, now, eff)
		room.Touch(now)
		kicked = true
		return nil
	})
	if err != nil {
		return translateStoreError("kick player", err)
	}
	if !kicked {
		return nil
	}
	s.emit(ctx, code, room, eff)
	if s.broadcaster != nil {
		s.broadcaster.DisconnectPlayer(code, targetID)
	}
	return nil
}

// UpdateConfig applies host settings, clamped to their valid ranges
func (s *RoomService) UpdateConfig(ctx context.Context, code, callerID string, cfg model.RoomConfig) (*model.RoomConfig, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}

	room, _, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		if !room.IsHost(callerID) {
			return ErrNotHost
		}
		next := cfg.Clamped()
		next.MaxPlayers = max(next.MaxPlayers, min(len(room.Players), model.MaxPlayersLimit))
		if next == room.Config {
			return cache.SkipWrite
		}
		room.Config = next
		room.Touch(s.rt.Now())
		return nil
	})
	if err != nil {
		return nil, translateStoreError("update config", err)
	}
	out := room.Config
	return &out, nil
}

// LeaveRoom removes the player, hands over hosting and deletes an empty room
func (s *RoomService) LeaveRoom(ctx context.Context, code, playerID string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}

	left := false
	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		left = false
		p, ok := room.Players[playerID]
		if !ok {
			return cache.SkipWrite
		}
		left = true
		delete(room.Players, playerID)
		if len(room.Players) == 0 {
			return cache.DeleteRoom
		}

		now := s.rt.Now()
		if room.HostID == playerID {
			room.HostID = room.PlayersByJoinOrder()[0]
		}
		eff.add(model.NewSystemMessage(uuid.NewString(), fmt.Sprintf("%s left the room", p.Name), now))
		s.machine.depart(room, playerID, now, eff)
		room.Touch(now)
		return nil
	})
	if err != nil {
		return translateStoreError("leave room", err)
	}
	if !left {
		return nil
	}

	if room == nil {
		if err := s.feed.Delete(context.WithoutCancel(ctx), code); err != nil {
			s.rt.Logger.Error("failed to delete messages", zap.String("room", code), zap.Error(err))
		}
		if s.broadcaster != nil {
			s.broadcaster.DisconnectRoom(code)
		}
		s.rt.Logger.Info("room closed", zap.String("room", code))
		return nil
	}
	s.emit(ctx, code, room, eff)
	return nil
}

// ResetGame returns the room to the lobby and purges its messages. The
// caller checks host privileges.
func (s *RoomService) ResetGame(ctx context.Context, code string) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}

	_, _, err = s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		room.Status = model.RoomWaiting
		room.Turn = nil
		room.CurrentRound = 0
		room.PlayerOrder = []string{}
		room.UsedWords = []string{}
		for _, p := range room.Players {
			p.Score = 0
			p.IsReady = false
		}
		room.Touch(s.rt.Now())
		return nil
	})
	if err != nil {
		return translateStoreError("reset game", err)
	}
	if err := s.feed.Delete(context.WithoutCancel(ctx), code); err != nil {
		return fmt.Errorf("failed to purge messages: %w", err)
	}
	return nil
}

// SetPresence records a player's connection state. Unknown players are ignored.
func (s *RoomService) SetPresence(ctx context.Context, code, playerID string, online bool) error {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return err
	}

	room, eff, err := s.transact(ctx, code, func(room *model.Room, eff *effects) error {
		p, ok := room.Players[playerID]
		if !ok || p.IsOnline == online {
			return cache.SkipWrite
		}
		now := s.rt.Now()
		p.IsOnline = online
		if !online {
			s.machine.closeIfAllGuessed(room, now, eff)
		}
		room.Touch(now)
		return nil
	})
	if err != nil {
		return translateStoreError("set presence", err)
	}
	s.emit(ctx, code, room, eff)
	return nil
}

// GetRoom returns the room as viewerID may see it
func (s *RoomService) GetRoom(ctx context.Context, code, viewerID string) (*model.Room, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room.ViewFor(viewerID, s.rt.Now()), nil
}

// ListMessages returns the feed in timestamp order, without other players' private entries
func (s *RoomService) ListMessages(ctx context.Context, code, viewerID string) ([]*model.Message, error) {
	code, err := NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}
	msgs, err := s.feed.List(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return lo.Filter(msgs, func(m *model.Message, _ int) bool {
		return m.VisibleToPlayer(viewerID)
	}), nil
}

func (s *RoomService) newPlayer(id, name string, now time.Time) *model.Player {
	return &model.Player{
		ID:       id,
		Name:     name,
		Avatar:   avatars[s.rt.Rand.Intn(len(avatars))],
		IsOnline: true,
		LastSeen: now,
	}
}

func (s *RoomService) token(code, playerID string) (string, error) {
	if s.authSvc == nil {
		return "", nil
	}
	token, err := s.authSvc.GeneratePlayerToken(code, playerID)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// generateRoomCode creates a 6-char alphanumeric code
func generateRoomCode() (string, error) {
	b := make([]byte, roomCodeLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, roomCodeLen)
	for i := range code {
		code[i] = roomCodeChars[int(b[i])%len(roomCodeChars)]
	}
	return string(code), nil
}
