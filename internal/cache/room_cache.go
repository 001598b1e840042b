package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sketchrooms/internal/model"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("room not found")
	ErrExists   = errors.New("room already exists")
	// ErrConflict is returned once a transaction lost every optimistic retry
	ErrConflict = errors.New("transaction conflict")

	// SkipWrite returned from a TxFunc commits nothing; Transact returns the room as read
	SkipWrite = errors.New("skip write")
	// DeleteRoom returned from a TxFunc deletes the room document
	DeleteRoom = errors.New("delete room")
)

// TxFunc mutates a room inside a transaction. It may run several times.
type TxFunc func(room *model.Room) error

// RoomStore is the shared session document store
type RoomStore interface {
	Create(ctx context.Context, room *model.Room) error
	Get(ctx context.Context, code string) (*model.Room, error)
	Transact(ctx context.Context, code string, fn TxFunc) (*model.Room, error)
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Subscribe(ctx context.Context, code string, onChange func(*model.Room)) (func(), error)
}

type roomCache struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
}

// NewRoomCache creates a Redis-backed room store
func NewRoomCache(client *redis.Client) RoomStore {
	return &roomCache{
		client:     client,
		ttl:        24 * time.Hour, // Rooms expire after 24h
		maxRetries: 16,
	}
}

const roomIndexKey = "rooms"

func (c *roomCache) key(code string) string {
	return fmt.Sprintf("room:%s", code)
}

func (c *roomCache) channel(code string) string {
	return fmt.Sprintf("room:%s:changed", code)
}

func (c *roomCache) Create(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	ok, err := c.client.SetNX(ctx, c.key(room.ID), data, c.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	if err := c.client.SAdd(ctx, roomIndexKey, room.ID).Err(); err != nil {
		return err
	}
	c.publish(ctx, room.ID)
	return nil
}

func (c *roomCache) Get(ctx context.Context, code string) (*model.Room, error) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Transact runs fn under WATCH and commits with MULTI/EXEC, retrying when
// another writer touched the key between read and commit.
func (c *roomCache) Transact(ctx context.Context, code string, fn TxFunc) (*model.Room, error) {
	key := c.key(code)
	var (
		out   *model.Room
		wrote bool
	)

	txf := func(tx *redis.Tx) error {
		out, wrote = nil, false

		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var room model.Room
		if err := json.Unmarshal(data, &room); err != nil {
			return err
		}

		switch ferr := fn(&room); {
		case errors.Is(ferr, SkipWrite):
			out = &room
			return nil
		case errors.Is(ferr, DeleteRoom):
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, roomIndexKey, code)
				return nil
			})
			wrote = err == nil
			return err
		case ferr != nil:
			return ferr
		}

		payload, err := json.Marshal(&room)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		if err == nil {
			out, wrote = &room, true
		}
		return err
	}

	for i := 0; i < c.maxRetries; i++ {
		err := c.client.Watch(ctx, txf, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		if wrote {
			c.publish(ctx, code)
		}
		return out, nil
	}
	return nil, ErrConflict
}

func (c *roomCache) Delete(ctx context.Context, code string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key(code))
		pipe.SRem(ctx, roomIndexKey, code)
		return nil
	})
	if err != nil {
		return err
	}
	c.publish(ctx, code)
	return nil
}

func (c *roomCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}

func (c *roomCache) List(ctx context.Context) ([]string, error) {
	return c.client.SMembers(ctx, roomIndexKey).Result()
}

// Subscribe calls onChange with the fresh document after every committed
// write, or with nil once the room is gone.
func (c *roomCache) Subscribe(ctx context.Context, code string, onChange func(*model.Room)) (func(), error) {
	sub := c.client.Subscribe(ctx, c.channel(code))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				room, err := c.Get(ctx, code)
				if err != nil {
					continue
				}
				onChange(room)
			}
		}
	}()

	return func() {
		cancel()
		sub.Close()
	}, nil
}

func (c *roomCache) publish(ctx context.Context, code string) {
	// notification only; subscribers re-read the document
	c.client.Publish(ctx, c.channel(code), "changed")
}
