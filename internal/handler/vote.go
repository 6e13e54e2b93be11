package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/callvote/internal/middleware"
	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/service"
)

type VoteHandler struct {
	console *service.Console
	loop    *service.GameLoop
}

func NewVoteHandler(console *service.Console, loop *service.GameLoop) *VoteHandler {
	return &VoteHandler{console: console, loop: loop}
}

// Call handles POST /api/votes
func (h *VoteHandler) Call(c fiber.Ctx) error {
	var req model.CallVoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if errMsg := middleware.ValidatePlayerSlot(req.Slot); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	issue, errMsg := middleware.ValidateIssue(req.Issue)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	details, errMsg := middleware.ValidateDetails(req.Details)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	resp, err := h.console.CallVote(ctx, req.Slot, issue, details)
	if err != nil {
		return loopUnavailable(c)
	}
	return consoleResult(c, resp, fiber.StatusCreated)
}

// Cast handles POST /api/votes/cast
func (h *VoteHandler) Cast(c fiber.Ctx) error {
	var req model.CastVoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if errMsg := middleware.ValidatePlayerSlot(req.Slot); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	option, errMsg := middleware.ValidateOption(req.Option)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	resp, err := h.console.CastVote(ctx, req.Slot, option)
	if err != nil {
		return loopUnavailable(c)
	}
	return consoleResult(c, resp, fiber.StatusOK)
}

// Active handles GET /api/votes/active
func (h *VoteHandler) Active(c fiber.Ctx) error {
	ctx, cancel := loopContext(c)
	defer cancel()

	status, err := service.Query(ctx, h.loop, func(w *service.World) model.MatchStatus {
		return w.Match.Status()
	})
	if err != nil {
		return loopUnavailable(c)
	}
	return c.JSON(status)
}

// Issues handles GET /api/issues?slot=N
func (h *VoteHandler) Issues(c fiber.Ctx) error {
	raw := c.Query("slot")
	if raw == "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FIELDS", "slot is required")
	}
	slot, errMsg := parseSlot(raw)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	resp, err := h.console.Execute(ctx, slot, "listissues")
	if err != nil {
		return loopUnavailable(c)
	}
	return c.JSON(resp)
}
