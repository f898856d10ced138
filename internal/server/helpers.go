package server

import (
	"errors"
	"strconv"
	"strings"

	"socialrank/internal/models"
	"socialrank/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseIDList parses a comma separated list of positive IDs.
func parseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil || id == 0 {
			return nil, models.NewValidationError("Invalid id " + part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// respondError maps err onto its HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// viewerID returns the authenticated caller, or 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// actor resolves the caller with their staff flag.
func (s *Server) actor(c *fiber.Ctx) (service.Actor, error) {
	userID := viewerID(c)
	user, err := s.userService.Get(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return service.Actor{}, models.NewUnauthorizedError("Unknown user")
		}
		return service.Actor{}, err
	}
	return service.Actor{UserID: user.ID, IsStaff: user.IsStaff}, nil
}
