package main

import (
	"log"

	"github.com/google/uuid"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/persist"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/server"
)

func main() {
	// 설정 로드
	cfg := config.Load()

	// 데이터베이스 연결
	db, err := persist.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Printf("✅ Database connected successfully")

	repo := persist.NewRepository(db)

	// Presence (Redis) - 없어도 게이트웨이는 동작
	var presenceManager *presence.Manager
	if cfg.Redis.Addr != "" {
		presenceManager = presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	serverID := uuid.NewString()

	// 서버 생성 및 설정
	srv := server.New(cfg, repo, presenceManager, serverID)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
