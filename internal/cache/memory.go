package cache

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"sync"

	"sketchrooms/internal/model"
)

// memoryRoomStore keeps rooms in process with the same optimistic contract
// as Redis: every document carries a version and a commit succeeds only if
// the version it read is still current.
type memoryRoomStore struct {
	mu         sync.Mutex
	docs       map[string]memoryDoc
	listeners  map[string]map[int]func(*model.Room)
	nextID     int
	maxRetries int
}

type memoryDoc struct {
	data    []byte
	version uint64
}

// NewMemoryRoomStore creates an in-process room store
func NewMemoryRoomStore() RoomStore {
	return &memoryRoomStore{
		docs:       make(map[string]memoryDoc),
		listeners:  make(map[string]map[int]func(*model.Room)),
		maxRetries: 16,
	}
}

func (s *memoryRoomStore) Create(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.docs[room.ID]; ok {
		s.mu.Unlock()
		return ErrExists
	}
	s.docs[room.ID] = memoryDoc{data: data, version: 1}
	s.mu.Unlock()
	s.notify(room.ID)
	return nil
}

func (s *memoryRoomStore) Get(ctx context.Context, code string) (*model.Room, error) {
	s.mu.Lock()
	doc, ok := s.docs[code]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeRoom(doc.data)
}

func (s *memoryRoomStore) Transact(ctx context.Context, code string, fn TxFunc) (*model.Room, error) {
	for i := 0; i < s.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.Lock()
		doc, ok := s.docs[code]
		s.mu.Unlock()
		if !ok {
			return nil, ErrNotFound
		}
		room, err := decodeRoom(doc.data)
		if err != nil {
			return nil, err
		}

		ferr := fn(room)
		if errors.Is(ferr, SkipWrite) {
			return room, nil
		}
		if ferr != nil && !errors.Is(ferr, DeleteRoom) {
			return nil, ferr
		}

		var payload []byte
		if ferr == nil {
			if payload, err = json.Marshal(room); err != nil {
				return nil, err
			}
		}

		s.mu.Lock()
		current, ok := s.docs[code]
		if !ok || current.version != doc.version {
			s.mu.Unlock()
			continue
		}
		if payload == nil {
			delete(s.docs, code)
			room = nil
		} else {
			s.docs[code] = memoryDoc{data: payload, version: doc.version + 1}
		}
		s.mu.Unlock()

		s.notify(code)
		return room, nil
	}
	return nil, ErrConflict
}

func (s *memoryRoomStore) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	delete(s.docs, code)
	s.mu.Unlock()
	s.notify(code)
	return nil
}

func (s *memoryRoomStore) Exists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[code]
	return ok, nil
}

func (s *memoryRoomStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryRoomStore) Subscribe(ctx context.Context, code string, onChange func(*model.Room)) (func(), error) {
	s.mu.Lock()
	if s.listeners[code] == nil {
		s.listeners[code] = make(map[int]func(*model.Room))
	}
	id := s.nextID
	s.nextID++
	s.listeners[code][id] = onChange
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners[code], id)
		if len(s.listeners[code]) == 0 {
			delete(s.listeners, code)
		}
		s.mu.Unlock()
	}, nil
}

func (s *memoryRoomStore) notify(code string) {
	s.mu.Lock()
	doc, ok := s.docs[code]
	fns := make([]func(*model.Room), 0, len(s.listeners[code]))
	for _, fn := range s.listeners[code] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		if !ok {
			fn(nil)
			continue
		}
		room, err := decodeRoom(doc.data)
		if err != nil {
			continue
		}
		fn(room)
	}
}

func decodeRoom(data []byte) (*model.Room, error) {
	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

type memoryMessageFeed struct {
	mu        sync.Mutex
	feeds     map[string][]*model.Message
	listeners map[string]map[int]func(*model.Message)
	nextID    int
}

// NewMemoryMessageFeed creates an in-process message feed
func NewMemoryMessageFeed() MessageFeed {
	return &memoryMessageFeed{
		feeds:     make(map[string][]*model.Message),
		listeners: make(map[string]map[int]func(*model.Message)),
	}
}

func (f *memoryMessageFeed) Append(ctx context.Context, roomCode string, msg *model.Message) error {
	f.mu.Lock()
	feed := f.feeds[roomCode]
	if slices.ContainsFunc(feed, func(m *model.Message) bool { return m.ID == msg.ID }) {
		f.mu.Unlock()
		return nil
	}
	cp := *msg
	cp.VisibleTo = slices.Clone(msg.VisibleTo)
	feed = append(feed, &cp)
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp.Before(feed[j].Timestamp)
	})
	f.feeds[roomCode] = feed
	fns := make([]func(*model.Message), 0, len(f.listeners[roomCode]))
	for _, fn := range f.listeners[roomCode] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		out := cp
		fn(&out)
	}
	return nil
}

func (f *memoryMessageFeed) List(ctx context.Context, roomCode string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Message, 0, len(f.feeds[roomCode]))
	for _, m := range f.feeds[roomCode] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (f *memoryMessageFeed) Delete(ctx context.Context, roomCode string) error {
	f.mu.Lock()
	delete(f.feeds, roomCode)
	f.mu.Unlock()
	return nil
}

func (f *memoryMessageFeed) Subscribe(ctx context.Context, roomCode string, onMessage func(*model.Message)) (func(), error) {
	f.mu.Lock()
	if f.listeners[roomCode] == nil {
		f.listeners[roomCode] = make(map[int]func(*model.Message))
	}
	id := f.nextID
	f.nextID++
	f.listeners[roomCode][id] = onMessage
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners[roomCode], id)
		if len(f.listeners[roomCode]) == 0 {
			delete(f.listeners, roomCode)
		}
		f.mu.Unlock()
	}, nil
}
