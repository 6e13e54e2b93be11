package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/callvote/internal/middleware"
	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/service"
)

const loopTimeout = 2 * time.Second

type ConsoleHandler struct {
	console *service.Console
}

func NewConsoleHandler(console *service.Console) *ConsoleHandler {
	return &ConsoleHandler{console: console}
}

// Execute handles POST /api/console
func (h *ConsoleHandler) Execute(c fiber.Ctx) error {
	var req model.ConsoleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	if errMsg := middleware.ValidateSlot(req.Slot); errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	cmd, errMsg := middleware.ValidateCommand(req.Command)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	resp, err := h.console.Execute(ctx, req.Slot, cmd)
	if err != nil {
		if errors.Is(err, service.ErrUnknownCommand) {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "UNKNOWN_COMMAND", err.Error())
		}
		if isLoopError(err) {
			return loopUnavailable(c)
		}
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_COMMAND", err.Error())
	}
	return consoleResult(c, resp, fiber.StatusOK)
}

// consoleResult writes resp with okStatus on success and 409 on a rejected
// call or cast. Rate-limited calls carry Retry-After.
func consoleResult(c fiber.Ctx, resp model.ConsoleResponse, okStatus int) error {
	if resp.Success {
		return c.Status(okStatus).JSON(resp)
	}
	if resp.RetrySeconds > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resp.RetrySeconds))
	}
	return c.Status(fiber.StatusConflict).JSON(resp)
}

func isLoopError(err error) bool {
	return errors.Is(err, service.ErrLoopStopped) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func loopUnavailable(c fiber.Ctx) error {
	return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "SERVER_UNAVAILABLE", "Game server is not running")
}

// loopContext bounds how long a request waits for the game loop.
func loopContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), loopTimeout)
}

func parseSlot(raw string) (int, string) {
	slot, err := strconv.Atoi(raw)
	if err != nil {
		return 0, "slot must be an integer"
	}
	return slot, middleware.ValidateSlot(slot)
}
