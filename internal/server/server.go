package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/handler"
	"realtime-canvas/internal/persist"
	"realtime-canvas/internal/presence"
)

// Server Fiber 서버 래퍼
type Server struct {
	app          *fiber.App
	cfg          *config.Config
	boardHandler *handler.BoardHandler
	boardHub     *handler.BoardHub
	jwtManager   *auth.JWTManager
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, repo *persist.Repository, presenceManager *presence.Manager, serverID string) *Server {
	app := fiber.New(fiber.Config{
		AppName:       "Realtime Canvas Gateway",
		ServerHeader:  "Fiber",
		StrictRouting: true,
		CaseSensitive: true,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Prefork:       false, // WebSocket과 호환성 문제로 비활성화
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	return &Server{
		app:          app,
		cfg:          cfg,
		boardHandler: handler.NewBoardHandler(repo, jwtManager, presenceManager),
		boardHub:     handler.NewBoardHub(presenceManager, serverID),
		jwtManager:   jwtManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Rate Limiter (토큰 발급 남용 방지)
	tokenLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Board 라우트
	boardGroup := s.app.Group("/api/boards")
	boardGroup.Post("/:boardId/token", tokenLimiter, s.boardHandler.IssueToken)
	boardGroup.Get("/:boardId/objects", s.boardHandler.GetBoardObjects)
	boardGroup.Get("/:boardId/presence", s.boardHandler.GetBoardPresence)

	// WebSocket 업그레이드 체크 미들웨어
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// 보드 live 채널 엔드포인트
	s.app.Get("/ws/board/:boardId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		boardID := c.Params("boardId")
		token := c.Query("token")
		if token == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateBoardToken(token)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		if claims.BoardID != boardID {
			return c.SendStatus(fiber.StatusForbidden)
		}

		c.Locals("boardId", boardID)
		c.Locals("userId", claims.UserID)
		return c.Next()
	}, websocket.New(s.boardHub.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Realtime Canvas Gateway starting on %s", s.cfg.Server.Port)
	log.Printf("📡 Live channel endpoint: ws://localhost%s/ws/board/:boardId", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
