package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/callvote/internal/events"
	"github.com/mathieu-neron/callvote/internal/middleware"
	"github.com/mathieu-neron/callvote/internal/model"
)

type ClientHandler struct {
	mailboxes *events.Mailboxes
}

func NewClientHandler(mailboxes *events.Mailboxes) *ClientHandler {
	return &ClientHandler{mailboxes: mailboxes}
}

// Messages handles GET /api/clients/:slot/messages
// Each message is delivered once; reading drains the mailbox.
func (h *ClientHandler) Messages(c fiber.Ctx) error {
	slot, errMsg := parseSlot(c.Params("slot"))
	if errMsg == "" {
		errMsg = middleware.ValidatePlayerSlot(slot)
	}
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	msgs := h.mailboxes.Drain(slot)
	if msgs == nil {
		msgs = []model.ClientMessage{}
	}
	return c.JSON(model.MessagesResponse{Slot: slot, Messages: msgs})
}
