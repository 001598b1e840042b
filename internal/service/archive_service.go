package service

import (
	"context"
	"slices"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"
	"sketchrooms/internal/repository"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ArchiveService records finished games and feeds the global leaderboard.
// Either store may be nil; failures are logged and never reach the player.
type ArchiveService struct {
	gameRepo    repository.GameRepo
	leaderboard cache.LeaderboardCache
	logger      *zap.Logger
	now         Clock
}

// NewArchiveService creates a new archive service
func NewArchiveService(gameRepo repository.GameRepo, leaderboard cache.LeaderboardCache, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{
		gameRepo:    gameRepo,
		leaderboard: leaderboard,
		logger:      logger,
		now:         time.Now,
	}
}

// Archive stores the final scoreboard of room
func (s *ArchiveService) Archive(ctx context.Context, room *model.Room) {
	record := GameRecordFor(room, s.now())

	if s.gameRepo != nil {
		if err := s.gameRepo.Create(ctx, record); err != nil {
			s.logger.Error("failed to archive game", zap.String("room", room.ID), zap.Error(err))
		}
	}
	if s.leaderboard != nil {
		for _, r := range record.Results {
			if r.Score <= 0 {
				continue
			}
			if err := s.leaderboard.AddScore(ctx, r.Name, r.Score); err != nil {
				s.logger.Error("failed to update leaderboard", zap.String("player", r.Name), zap.Error(err))
			}
		}
	}
	s.logger.Info("game archived", zap.String("room", room.ID), zap.String("winner", record.WinnerID))
}

// Leaderboard returns the all-time top scores, empty without a leaderboard store
func (s *ArchiveService) Leaderboard(ctx context.Context, limit int) ([]cache.LeaderboardEntry, error) {
	if s.leaderboard == nil {
		return []cache.LeaderboardEntry{}, nil
	}
	return s.leaderboard.GetTop(ctx, limit)
}

// RecentGames returns the latest archived games, empty without an archive
func (s *ArchiveService) RecentGames(ctx context.Context, limit int) ([]*model.GameRecord, error) {
	if s.gameRepo == nil {
		return []*model.GameRecord{}, nil
	}
	return s.gameRepo.ListRecent(ctx, limit)
}

// Rank returns the 1-based all-time rank of name, or -1 when unranked
func (s *ArchiveService) Rank(ctx context.Context, name string) (int64, error) {
	if s.leaderboard == nil {
		return -1, nil
	}
	return s.leaderboard.GetRank(ctx, name)
}

// GamesForRoom returns every archived game played in roomCode
func (s *ArchiveService) GamesForRoom(ctx context.Context, roomCode string) ([]*model.GameRecord, error) {
	if s.gameRepo == nil {
		return []*model.GameRecord{}, nil
	}
	return s.gameRepo.GetByRoomCode(ctx, roomCode)
}

// GameRecordFor builds the archive entry of a room, results sorted by score
func GameRecordFor(room *model.Room, finishedAt time.Time) *model.GameRecord {
	results := lo.Map(standings(room), func(p *model.Player, _ int) model.PlayerResult {
		return model.PlayerResult{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	})
	record := &model.GameRecord{
		RoomCode:   room.ID,
		RoundCount: room.Config.RoundCount,
		Results:    results,
		CreatedAt:  room.CreatedAt,
		FinishedAt: finishedAt,
	}
	if w := winner(room); w != nil {
		record.WinnerID = w.ID
	}
	return record
}

// standings orders players by score, join order breaking ties
func standings(room *model.Room) []*model.Player {
	players := lo.Map(room.PlayersByJoinOrder(), func(id string, _ int) *model.Player {
		return room.Players[id]
	})
	slices.SortStableFunc(players, func(a, b *model.Player) int {
		return b.Score - a.Score
	})
	return players
}

// leaders are the players sharing the top score, none when nobody scored
func leaders(room *model.Room) []*model.Player {
	s := standings(room)
	if len(s) == 0 || s[0].Score == 0 {
		return nil
	}
	return lo.Filter(s, func(p *model.Player, _ int) bool { return p.Score == s[0].Score })
}

// winner is the sole leader; a tie has no winner
func winner(room *model.Room) *model.Player {
	if l := leaders(room); len(l) == 1 {
		return l[0]
	}
	return nil
}
