package server

import (
	"socialrank/internal/models"

	"github.com/gofiber/fiber/v2"
)

type deviceTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterDeviceToken handles POST /api/device-token
func (s *Server) RegisterDeviceToken(c *fiber.Ctx) error {
	var req deviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	dt, created, err := s.tokenService.Register(c.UserContext(), viewerID(c), req.Token, req.Platform)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dt)
}

// RemoveDeviceToken handles DELETE /api/device-token
func (s *Server) RemoveDeviceToken(c *fiber.Ctx) error {
	var req deviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := s.tokenService.Remove(c.UserContext(), viewerID(c), req.Token); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Device token removed"})
}
