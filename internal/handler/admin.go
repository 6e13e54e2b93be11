package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/callvote/internal/gamerules"
	"github.com/mathieu-neron/callvote/internal/middleware"
	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/player"
	"github.com/mathieu-neron/callvote/internal/service"
)

// AdminHandler drives the simulated server: players, rules, convars and
// server-initiated votes. All mutations run on the game loop.
type AdminHandler struct {
	loop    *service.GameLoop
	console *service.Console
	log     zerolog.Logger
}

func NewAdminHandler(loop *service.GameLoop, console *service.Console, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{loop: loop, console: console, log: logger}
}

type playerResult struct {
	player model.Player
	err    error
}

// Connect handles POST /api/admin/players
func (h *AdminHandler) Connect(c fiber.Ctx) error {
	var req model.ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	name, errMsg := middleware.ValidatePlayerName(req.Name)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.Name = name
	networkID, errMsg := middleware.ValidateNetworkID(req.NetworkID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	req.NetworkID = networkID
	if req.NetworkID == "" && !req.Bot && !req.HLTV {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_FIELDS", "networkId is required for human players")
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	res, err := service.Query(ctx, h.loop, func(w *service.World) playerResult {
		p, err := w.Players.Connect(req)
		return playerResult{player: p, err: err}
	})
	if err != nil {
		return loopUnavailable(c)
	}
	if res.err != nil {
		return playerError(c, res.err)
	}

	return c.Status(fiber.StatusCreated).JSON(res.player)
}

// Disconnect handles DELETE /api/admin/players/:slot
func (h *AdminHandler) Disconnect(c fiber.Ctx) error {
	slot, errMsg := parseSlot(c.Params("slot"))
	if errMsg == "" {
		errMsg = middleware.ValidatePlayerSlot(slot)
	}
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	reason := c.Query("reason", "Disconnect")

	ctx, cancel := loopContext(c)
	defer cancel()

	opErr, err := service.Query(ctx, h.loop, func(w *service.World) error {
		if err := w.Players.Disconnect(slot, reason); err != nil {
			return err
		}
		w.Mailboxes.Clear(slot)
		return nil
	})
	if err != nil {
		return loopUnavailable(c)
	}
	if opErr != nil {
		return playerError(c, opErr)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeTeam handles PUT /api/admin/players/:slot/team
func (h *AdminHandler) ChangeTeam(c fiber.Ctx) error {
	slot, errMsg := parseSlot(c.Params("slot"))
	if errMsg == "" {
		errMsg = middleware.ValidatePlayerSlot(slot)
	}
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	var req model.TeamChangeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	team, ok := model.ParseTeam(req.Team)
	if !ok {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_TEAM",
			"Invalid team. Must be one of: unassigned, spectator, t, ct")
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	res, err := service.Query(ctx, h.loop, func(w *service.World) playerResult {
		if err := w.Players.ChangeTeam(slot, team); err != nil {
			return playerResult{err: err}
		}
		p, _ := w.Players.BySlot(slot)
		return playerResult{player: p}
	})
	if err != nil {
		return loopUnavailable(c)
	}
	if res.err != nil {
		return playerError(c, res.err)
	}
	return c.JSON(res.player)
}

// Players handles GET /api/players
func (h *AdminHandler) Players(c fiber.Ctx) error {
	ctx, cancel := loopContext(c)
	defer cancel()

	resp, err := service.Query(ctx, h.loop, func(w *service.World) model.PlayerListResponse {
		players := w.Players.Players()
		if players == nil {
			players = []model.Player{}
		}
		return model.PlayerListResponse{Players: players, Count: len(players), Max: w.Players.MaxClients()}
	})
	if err != nil {
		return loopUnavailable(c)
	}
	return c.JSON(resp)
}

// Rules handles GET /api/rules
func (h *AdminHandler) Rules(c fiber.Ctx) error {
	ctx, cancel := loopContext(c)
	defer cancel()

	state, err := service.Query(ctx, h.loop, func(w *service.World) model.RulesState {
		return w.Rules.State()
	})
	if err != nil {
		return loopUnavailable(c)
	}
	return c.JSON(state)
}

type rulesResult struct {
	state model.RulesState
	err   error
}

// UpdateRules handles PUT /api/admin/rules
func (h *AdminHandler) UpdateRules(c fiber.Ctx) error {
	var req model.RulesUpdate
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	for _, m := range req.MapCycle {
		if _, errMsg := middleware.ValidateMapName(m); errMsg != "" {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
		}
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	res, err := service.Query(ctx, h.loop, func(w *service.World) rulesResult {
		if err := w.Rules.Update(req); err != nil {
			return rulesResult{err: err}
		}
		return rulesResult{state: w.Rules.State()}
	})
	if err != nil {
		return loopUnavailable(c)
	}
	if res.err != nil {
		switch {
		case errors.Is(res.err, gamerules.ErrUnknownMode):
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_MODE",
				"Invalid queued matchmaking mode. Must be one of: \"\", competitive, tournament")
		default:
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_RULES", res.err.Error())
		}
	}
	h.log.Info().Msg("game rules updated")
	return c.JSON(res.state)
}

// Convars handles GET /api/admin/convars
func (h *AdminHandler) Convars(c fiber.Ctx) error {
	ctx, cancel := loopContext(c)
	defer cancel()

	convars, err := service.Query(ctx, h.loop, func(w *service.World) model.Convars {
		return w.Match.Settings().Convars()
	})
	if err != nil {
		return loopUnavailable(c)
	}
	return c.JSON(convars)
}

// UpdateConvars handles PUT /api/admin/convars
func (h *AdminHandler) UpdateConvars(c fiber.Ctx) error {
	var req model.ConvarUpdate
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	ctx, cancel := loopContext(c)
	defer cancel()

	convars, err := service.Query(ctx, h.loop, func(w *service.World) model.Convars {
		s := w.Match.Settings()
		s.Apply(req)
		return s.Convars()
	})
	if err != nil {
		return loopUnavailable(c)
	}
	h.log.Info().Msg("vote convars updated")
	return c.JSON(convars)
}

// CallVote handles POST /api/admin/callvote
func (h *AdminHandler) CallVote(c fiber.Ctx) error {
	var req model.ServerCallVoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
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

	resp, err := h.console.CallVote(ctx, model.DedicatedServerSlot, issue, details)
	if err != nil {
		return loopUnavailable(c)
	}
	return consoleResult(c, resp, fiber.StatusCreated)
}

// EndVotes handles POST /api/admin/votes/end
func (h *AdminHandler) EndVotes(c fiber.Ctx) error {
	ctx, cancel := loopContext(c)
	defer cancel()

	status, err := service.Query(ctx, h.loop, func(w *service.World) model.MatchStatus {
		w.Match.EndVotesImmediately()
		return w.Match.Status()
	})
	if err != nil {
		return loopUnavailable(c)
	}
	return c.JSON(status)
}

func playerError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, player.ErrServerFull):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "SERVER_FULL", "Server is full")
	case errors.Is(err, player.ErrDuplicateNetworkID):
		return middleware.ErrorResponse(c, fiber.StatusConflict, "DUPLICATE_NETWORK_ID", "Network id is already connected")
	case errors.Is(err, player.ErrBanned):
		return middleware.ErrorResponse(c, fiber.StatusForbidden, "BANNED", "Network id is banned")
	case errors.Is(err, player.ErrNoSuchPlayer):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Player not found")
	case errors.Is(err, player.ErrInvalidTeam):
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_TEAM", "Invalid team")
	}
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Player operation failed")
}
