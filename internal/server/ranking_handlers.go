package server

import (
	"socialrank/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPostLikesRanking handles GET /api/rankings/posts/likes?range=24h|all
func (s *Server) GetPostLikesRanking(c *fiber.Ctx) error {
	metric := models.MetricPostLikesAllTime
	switch c.Query("range") {
	case "24h", "trend":
		metric = models.MetricPostLikes24h
	case "", "all", "all_time":
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("range must be 24h or all"))
	}

	page := parsePagination(c, 10)
	rows, err := s.leaderboard.TopPosts(c.UserContext(), metric, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"metric": metric, "results": rows})
}

func (s *Server) userRanking(metric models.Metric) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := parsePagination(c, 10)
		rows, err := s.leaderboard.TopUsers(c.UserContext(), metric, page.Limit, page.Offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"metric": metric, "results": rows})
	}
}

// GetRank handles GET /api/rankings/:metric/:id?top=N
func (s *Server) GetRank(c *fiber.Ctx) error {
	metric, err := models.ParseMetric(c.Params("metric"))
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	top := c.QueryInt("top", s.leaderboard.TopN())
	rank, err := s.leaderboard.RankOf(c.UserContext(), id, metric, top)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"metric": metric, "id": id, "top": top, "rank": rank})
}
