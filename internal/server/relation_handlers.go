package server

import (
	"socialrank/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateLike handles POST /api/likes
func (s *Server) CreateLike(c *fiber.Ctx) error {
	var req struct {
		PostID uint `json:"post_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.PostID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("post_id is required"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}

	like, err := s.relationships.LikePost(c.UserContext(), actor, req.PostID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// DeleteLike handles DELETE /api/likes/:id
func (s *Server) DeleteLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.relationships.DeleteLike(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Like removed"})
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.relationships.UnlikePost(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Like removed"})
}

// CreateFollow handles POST /api/follows
func (s *Server) CreateFollow(c *fiber.Ctx) error {
	var req struct {
		FolloweeID uint `json:"followee_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.FolloweeID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("followee_id is required"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}

	follow, err := s.relationships.Follow(c.UserContext(), actor, req.FolloweeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// DeleteFollow handles DELETE /api/follows/:id
func (s *Server) DeleteFollow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.relationships.DeleteFollow(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Follow removed"})
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.relationships.Unfollow(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Follow removed"})
}
