package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/callvote/internal/middleware"
	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/service"
)

type BallotHandler struct {
	worker *service.BallotWorker
}

func NewBallotHandler(worker *service.BallotWorker) *BallotHandler {
	return &BallotHandler{worker: worker}
}

// Recent handles GET /api/ballots/recent?limit=N
func (h *BallotHandler) Recent(c fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", "limit must be an integer")
		}
		limit = n
	}

	ballots, err := h.worker.Recent(c.Context(), limit)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch ballots")
	}
	if ballots == nil {
		ballots = []model.BallotRecord{}
	}
	return c.JSON(model.BallotListResponse{Ballots: ballots})
}
