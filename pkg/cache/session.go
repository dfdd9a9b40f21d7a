package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
)

// SessionEntry 会话数据，登录时创建，登出或过期时删除。
// 与计数、feed缓存共用一个redis，靠key命名空间隔离。
type SessionEntry struct {
	UserID    int64  `json:"user_id"`
	Token     string `json:"token"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Store) SaveSession(ctx context.Context, entry *SessionEntry) error {
	if entry == nil || entry.UserID <= 0 {
		return fmt.Errorf("invalid session entry")
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.kv.Set(ctx, SessionKey(entry.UserID), data, constants.SessionExpire)
}

// LoadSession 未命中返回nil, nil
func (s *Store) LoadSession(ctx context.Context, userID int64) (*SessionEntry, error) {
	data, err := s.kv.Get(ctx, SessionKey(userID))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, nil
		}
		return nil, err
	}
	var entry SessionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &entry, nil
}

func (s *Store) DeleteSession(ctx context.Context, userID int64) error {
	return s.kv.Del(ctx, SessionKey(userID))
}
