package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/config"
	"sketchrooms/internal/repository"
	"sketchrooms/internal/service"
	"sketchrooms/internal/transport/rest"
	"sketchrooms/internal/transport/rest/middleware"
	"sketchrooms/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// App holds every wired dependency of the server
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Rooms       cache.RoomStore
	Feed        cache.MessageFeed
	Leaderboard cache.LeaderboardCache
	WordRepo    repository.WordRepo
	GameRepo    repository.GameRepo

	AuthService    *service.AuthService
	RoomService    *service.RoomService
	TurnService    *service.TurnService
	GuessService   *service.GuessService
	ArchiveService *service.ArchiveService
	Reaper         *service.Reaper

	Hub          *ws.Hub
	GuessLimiter *middleware.RateLimiter

	closers []func(context.Context) error
}

// New connects the configured backends and builds the services
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.initStores(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	if err := a.initMongo(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}

	words := service.NewWordBank(nil)
	if a.WordRepo != nil {
		entries, err := a.WordRepo.ListAll(ctx)
		if err != nil {
			logger.Warn("failed to load word bank, using built-in words", zap.Error(err))
		} else {
			words = service.NewWordBank(entries)
			logger.Info("word bank loaded", zap.Int("words", len(entries)))
		}
	}

	rt := service.DefaultRuntime(logger)
	a.AuthService = service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	a.ArchiveService = service.NewArchiveService(a.GameRepo, a.Leaderboard, logger)
	a.RoomService = service.NewRoomService(a.Rooms, a.Feed, words, a.AuthService, a.ArchiveService, rt)
	a.TurnService = service.NewTurnService(a.Rooms, a.Feed, words, a.ArchiveService, rt)
	a.GuessService = service.NewGuessService(a.Rooms, a.Feed, words, a.ArchiveService, rt)
	a.Reaper = service.NewReaper(a.Rooms, a.Feed, rt)

	// Inject broadcaster (hub implements service.Broadcaster)
	a.Hub = ws.NewHub(a.Rooms, a.Feed, logger)
	a.RoomService.SetBroadcaster(a.Hub)
	a.Reaper.SetBroadcaster(a.Hub)

	a.GuessLimiter = middleware.NewRateLimiter(cfg.GuessRateLimit, cfg.GuessRateBurst)
	return a, nil
}

func (a *App) initStores(ctx context.Context) error {
	if a.Config.StoreBackend == config.StoreMemory {
		a.Rooms = cache.NewMemoryRoomStore()
		a.Feed = cache.NewMemoryMessageFeed()
		a.Logger.Warn("using in-memory room store; state is lost on restart and not shared between instances")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	a.Logger.Info("connected to redis", zap.String("addr", a.Config.RedisAddr))

	a.Rooms = cache.NewRoomCache(rdb)
	a.Feed = cache.NewMessageCache(rdb)
	a.Leaderboard = cache.NewLeaderboardCache(rdb)
	return nil
}

func (a *App) initMongo(ctx context.Context) error {
	if a.Config.MongoURI == "" {
		a.Logger.Info("MONGO_URI not set; game archive disabled, using built-in words")
		return nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.Config.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	a.Logger.Info("connected to mongodb", zap.String("db", a.Config.MongoDB))

	db := client.Database(a.Config.MongoDB)
	a.WordRepo = repository.NewWordRepo(db)
	a.GameRepo = repository.NewGameRepo(db)
	return nil
}

// Router builds the HTTP handler
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:    a.AuthService,
		RoomService:    a.RoomService,
		TurnService:    a.TurnService,
		GuessService:   a.GuessService,
		ArchiveService: a.ArchiveService,
		GuessLimiter:   a.GuessLimiter,
		WSHub:          a.Hub,
		AllowedOrigins: a.Config.CORSAllowedOrigins,
		Logger:         a.Logger,
	})
}

// StartMaintenance schedules the stale room sweep and limiter pruning
func (a *App) StartMaintenance() (*cron.Cron, error) {
	c := cron.New()
	if _, err := a.Reaper.Schedule(c, a.Config.ReapSchedule); err != nil {
		return nil, fmt.Errorf("invalid REAP_SCHEDULE %q: %w", a.Config.ReapSchedule, err)
	}
	if _, err := c.AddFunc("@every 10m", func() {
		if n := a.GuessLimiter.Prune(30 * time.Minute); n > 0 {
			a.Logger.Debug("pruned idle rate limiters", zap.Int("count", n))
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// Close releases the backend connections
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
