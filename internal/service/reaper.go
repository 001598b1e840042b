package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sketchrooms/internal/cache"
	"sketchrooms/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Idle limits after which the reaper deletes a room
const (
	IdleRoomTTL     = 2 * time.Hour
	FinishedRoomTTL = 30 * time.Minute
)

// Reaper deletes abandoned rooms together with their message feeds
type Reaper struct {
	rooms       cache.RoomStore
	feed        cache.MessageFeed
	broadcaster Broadcaster
	rt          Runtime
}

// NewReaper creates a new reaper
func NewReaper(rooms cache.RoomStore, feed cache.MessageFeed, rt Runtime) *Reaper {
	return &Reaper{rooms: rooms, feed: feed, rt: rt.withDefaults()}
}

// SetBroadcaster sets the broadcaster used to drop connections of reaped rooms
func (r *Reaper) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// IsStale reports whether room has been idle long enough to delete
func IsStale(room *model.Room, now time.Time) bool {
	idle := now.Sub(room.LastActivityAt)
	if room.Status == model.RoomFinished {
		return idle > FinishedRoomTTL
	}
	return idle > IdleRoomTTL
}

// ReapStaleSessions sweeps every room once and returns how many were deleted
func (r *Reaper) ReapStaleSessions(ctx context.Context) (int, error) {
	codes, err := r.rooms.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list rooms: %w", err)
	}

	reaped := 0
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return reaped, err
		}

		room, err := r.rooms.Get(ctx, code)
		if err != nil {
			r.rt.Logger.Error("failed to read room", zap.String("room", code), zap.Error(err))
			continue
		}
		if room != nil && !IsStale(room, r.rt.Now()) {
			continue
		}

		if err := r.feed.Delete(ctx, code); err != nil {
			r.rt.Logger.Error("failed to delete messages", zap.String("room", code), zap.Error(err))
			continue
		}

		if room == nil {
			// document already expired; drop the index entry
			if err := r.rooms.Delete(ctx, code); err != nil {
				r.rt.Logger.Error("failed to delete room", zap.String("room", code), zap.Error(err))
			}
			continue
		}

		deleted := false
		_, err = r.rooms.Transact(ctx, code, func(room *model.Room) error {
			deleted = false
			if !IsStale(room, r.rt.Now()) {
				return cache.SkipWrite
			}
			deleted = true
			return cache.DeleteRoom
		})
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			r.rt.Logger.Error("failed to delete room", zap.String("room", code), zap.Error(err))
			continue
		}
		if !deleted {
			continue
		}

		reaped++
		r.rt.Logger.Info("reaped stale room",
			zap.String("room", code),
			zap.String("status", string(room.Status)),
			zap.Time("lastActivity", room.LastActivityAt))
		if r.broadcaster != nil {
			r.broadcaster.DisconnectRoom(code)
		}
	}
	return reaped, nil
}

// Schedule registers the sweep on c using a cron spec such as "@every 5m"
func (r *Reaper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := r.ReapStaleSessions(ctx)
		if err != nil {
			r.rt.Logger.Error("stale room sweep failed", zap.Error(err))
			return
		}
		r.rt.Logger.Info("stale room sweep finished", zap.Int("rooms_deleted", n))
	})
}
