package server

import (
	"strconv"

	"socialrank/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}

	post, err := s.postService.Create(c.UserContext(), actor, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.actor(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.postService.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	posts, err := s.postService.ListByUser(c.UserContext(), id, viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetLikedPosts handles GET /api/users/:id/liked-posts
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	posts, err := s.postService.LikedPosts(c.UserContext(), id, viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetTimeline handles GET /api/timeline?tab=latest|popular|following
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.Timeline(c.UserContext(), c.Query("tab"), viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetLikedStatus handles GET /api/posts/liked-status?ids=1,2,3
func (s *Server) GetLikedStatus(c *fiber.Ctx) error {
	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		return respondError(c, err)
	}
	status, err := s.postService.LikedStatus(c.UserContext(), viewerID(c), ids)
	if err != nil {
		return respondError(c, err)
	}

	out := make(map[string]bool, len(status))
	for id, liked := range status {
		out[strconv.FormatUint(uint64(id), 10)] = liked
	}
	return c.JSON(out)
}

// SearchPosts handles GET /api/search/posts?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Search query is required"))
	}
	page := parsePagination(c, 20)

	posts, err := s.postService.Search(c.UserContext(), q, viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}
