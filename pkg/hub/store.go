package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
	"github.com/hirotachi/ws-cli-chat/pkg/utils"
)

// Store keeps the message history and the online roster in redis. The
// history list holds ids in receipt order; message bodies live in a hash so
// edits and deletes rewrite one field instead of the whole list.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Append(ctx context.Context, msg chat.Message) error {
	if err := s.save(ctx, msg); err != nil {
		return err
	}
	return s.rdb.RPush(ctx, utils.RedisHistoryKey, msg.ID).Err()
}

// Save rewrites an existing message in place.
func (s *Store) Save(ctx context.Context, msg chat.Message) error {
	return s.save(ctx, msg)
}

func (s *Store) save(ctx context.Context, msg chat.Message) error {
	bytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not marshal message %s: %s", msg.ID, err)
	}
	return s.rdb.HSet(ctx, utils.RedisMessagesKey, msg.ID, bytes).Err()
}

func (s *Store) Get(ctx context.Context, id string) (chat.Message, bool, error) {
	raw, err := s.rdb.HGet(ctx, utils.RedisMessagesKey, id).Result()
	if err == redis.Nil {
		return chat.Message{}, false, nil
	}
	if err != nil {
		return chat.Message{}, false, err
	}
	var msg chat.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return chat.Message{}, false, fmt.Errorf("could not unmarshal message %s: %s", id, err)
	}
	return msg, true, nil
}

// History returns all messages in receipt order.
func (s *Store) History(ctx context.Context) ([]chat.Message, error) {
	ids, err := s.rdb.LRange(ctx, utils.RedisHistoryKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	history := make([]chat.Message, 0, len(ids))
	for _, id := range ids {
		msg, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			history = append(history, msg)
		}
	}
	return history, nil
}

func (s *Store) AddUser(ctx context.Context, username string) error {
	return s.rdb.SAdd(ctx, utils.RedisRosterKey, username).Err()
}

func (s *Store) RemoveUser(ctx context.Context, username string) error {
	return s.rdb.SRem(ctx, utils.RedisRosterKey, username).Err()
}

func (s *Store) OnlineUsers(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, utils.RedisRosterKey).Result()
}

func (s *Store) IsOnline(ctx context.Context, username string) (bool, error) {
	return s.rdb.SIsMember(ctx, utils.RedisRosterKey, username).Result()
}
