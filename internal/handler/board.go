package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/persist"
	"realtime-canvas/internal/presence"
)

// BoardHandler serves board object reads (the resync source) and board
// access tokens.
type BoardHandler struct {
	repo       *persist.Repository
	jwtManager *auth.JWTManager
	presence   *presence.Manager
}

func NewBoardHandler(repo *persist.Repository, jwtManager *auth.JWTManager, presenceManager *presence.Manager) *BoardHandler {
	return &BoardHandler{repo: repo, jwtManager: jwtManager, presence: presenceManager}
}

// GetBoardObjects returns every object of a board. Clients call this on
// initial load and on full resynchronization after a degraded connection.
func (h *BoardHandler) GetBoardObjects(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	if boardID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Board id is required"})
	}

	objects, err := h.repo.SelectAll(c.Context(), boardID)
	if err != nil {
		log.Printf("[Board] Failed to fetch objects for %s: %v", boardID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch board objects"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"objects": objects,
	})
}

// TokenRequest 보드 토큰 발급 요청
type TokenRequest struct {
	UserID string `json:"userId"`
}

// IssueToken issues a board access token used by the ws upgrade guard.
func (h *BoardHandler) IssueToken(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	if boardID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Board id is required"})
	}

	var req TokenRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, err := h.jwtManager.GenerateBoardToken(req.UserID, boardID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to issue token"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

// GetBoardPresence returns who is currently online on a board.
func (h *BoardHandler) GetBoardPresence(c *fiber.Ctx) error {
	boardID := c.Params("boardId")
	if boardID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Board id is required"})
	}
	if h.presence == nil {
		return c.JSON(fiber.Map{"success": true, "users": []string{}})
	}

	users, err := h.presence.ListBoardUsers(boardID)
	if err != nil {
		log.Printf("[Board] Presence lookup for %s failed: %v", boardID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch presence"})
	}
	if users == nil {
		users = []string{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}
