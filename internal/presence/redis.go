package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceData Redis에 저장될 보드 접속 상태
type PresenceData struct {
	UserID        string `json:"user_id"`
	BoardID       string `json:"board_id"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	ServerID      string `json:"server_id"` // 멀티 서버 확장 대비
}

// Manager tracks who is online per board with TTL'd keys.
type Manager struct {
	client *redis.Client
	ctx    context.Context
}

// NewManager 생성자
func NewManager(addr string, password string, db int) *Manager {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Manager{
		client: rdb,
		ctx:    context.Background(),
	}
}

func (m *Manager) userKey(boardID, userID string) string {
	return fmt.Sprintf("presence:board:%s:user:%s", boardID, userID)
}

func (m *Manager) boardPattern(boardID string) string {
	return fmt.Sprintf("presence:board:%s:user:*", boardID)
}

// SetPresence 보드 입장 기록 (60초 TTL, Heartbeat는 30초마다)
func (m *Manager) SetPresence(boardID, userID, serverID string) error {
	data := PresenceData{
		UserID:        userID,
		BoardID:       boardID,
		LastHeartbeat: time.Now().Unix(),
		ServerID:      serverID,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return m.client.Set(m.ctx, m.userKey(boardID, userID), jsonData, 60*time.Second).Err()
}

// UpdateHeartbeat 생존 신고 (TTL 연장)
func (m *Manager) UpdateHeartbeat(boardID, userID string) error {
	result, err := m.client.Expire(m.ctx, m.userKey(boardID, userID), 60*time.Second).Result()
	if err != nil {
		return err
	}
	if !result {
		return fmt.Errorf("user %s not present on board %s", userID, boardID)
	}
	return nil
}

// RemovePresence 보드 퇴장
func (m *Manager) RemovePresence(boardID, userID string) error {
	return m.client.Del(m.ctx, m.userKey(boardID, userID)).Err()
}

// ListBoardUsers returns the ids of users currently present on a board.
func (m *Manager) ListBoardUsers(boardID string) ([]string, error) {
	var users []string
	iter := m.client.Scan(m.ctx, 0, m.boardPattern(boardID), 100).Iterator()
	for iter.Next(m.ctx) {
		val, err := m.client.Get(m.ctx, iter.Val()).Result()
		if err != nil {
			continue // expired between scan and get
		}
		var data PresenceData
		if err := json.Unmarshal([]byte(val), &data); err == nil {
			users = append(users, data.UserID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
