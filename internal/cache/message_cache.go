package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sketchrooms/internal/model"

	"github.com/redis/go-redis/v9"
)

// MessageFeed is the append-only chat/system log of a room
type MessageFeed interface {
	// Append is idempotent on Message.ID; a repeated id keeps the first entry
	Append(ctx context.Context, roomCode string, msg *model.Message) error
	List(ctx context.Context, roomCode string) ([]*model.Message, error)
	Delete(ctx context.Context, roomCode string) error
	Subscribe(ctx context.Context, roomCode string, onMessage func(*model.Message)) (func(), error)
}

type messageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMessageCache creates a Redis-backed message feed
func NewMessageCache(client *redis.Client) MessageFeed {
	return &messageCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *messageCache) dataKey(roomCode string) string {
	return fmt.Sprintf("room:%s:msgs", roomCode)
}

func (c *messageCache) indexKey(roomCode string) string {
	return fmt.Sprintf("room:%s:msgs:idx", roomCode)
}

func (c *messageCache) seqKey(roomCode string) string {
	return fmt.Sprintf("room:%s:msgs:seq", roomCode)
}

const seqSlots = 1000

// score orders by timestamp and breaks same-millisecond ties by append order
func score(ts time.Time, seq int64) float64 {
	return float64(ts.UnixMilli()*seqSlots + seq%seqSlots)
}

func (c *messageCache) channel(roomCode string) string {
	return fmt.Sprintf("room:%s:feed", roomCode)
}

func (c *messageCache) Append(ctx context.Context, roomCode string, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	seq, err := c.client.Incr(ctx, c.seqKey(roomCode)).Result()
	if err != nil {
		return err
	}

	var added *redis.BoolCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.HSetNX(ctx, c.dataKey(roomCode), msg.ID, data)
		pipe.ZAddNX(ctx, c.indexKey(roomCode), redis.Z{
			Score:  score(msg.Timestamp, seq),
			Member: msg.ID,
		})
		pipe.Expire(ctx, c.dataKey(roomCode), c.ttl)
		pipe.Expire(ctx, c.indexKey(roomCode), c.ttl)
		pipe.Expire(ctx, c.seqKey(roomCode), c.ttl)
		return nil
	})
	if err != nil {
		return err
	}
	if added.Val() {
		c.client.Publish(ctx, c.channel(roomCode), data)
	}
	return nil
}

func (c *messageCache) List(ctx context.Context, roomCode string) ([]*model.Message, error) {
	ids, err := c.client.ZRange(ctx, c.indexKey(roomCode), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Message{}, nil
	}
	raw, err := c.client.HMGet(ctx, c.dataKey(roomCode), ids...).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]*model.Message, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var m model.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (c *messageCache) Delete(ctx context.Context, roomCode string) error {
	return c.client.Del(ctx, c.dataKey(roomCode), c.indexKey(roomCode), c.seqKey(roomCode)).Err()
}

func (c *messageCache) Subscribe(ctx context.Context, roomCode string, onMessage func(*model.Message)) (func(), error) {
	sub := c.client.Subscribe(ctx, c.channel(roomCode))
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
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg model.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				onMessage(&msg)
			}
		}
	}()

	return func() {
		cancel()
		sub.Close()
	}, nil
}
