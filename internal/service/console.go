package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mathieu-neron/callvote/internal/model"
	"github.com/mathieu-neron/callvote/internal/vote"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	errMissingArg     = errors.New("missing argument")
)

// Console is the client command surface: callvote, vote and listissues.
type Console struct {
	loop *GameLoop
}

func NewConsole(loop *GameLoop) *Console {
	return &Console{loop: loop}
}

// Execute parses and runs one console line for slot on the game loop.
func (c *Console) Execute(ctx context.Context, slot int, line string) (model.ConsoleResponse, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return model.ConsoleResponse{}, fmt.Errorf("empty command: %w", ErrUnknownCommand)
	}

	switch strings.ToLower(args[0]) {
	case "callvote":
		if len(args) == 1 {
			return Query(ctx, c.loop, func(w *World) model.ConsoleResponse {
				return model.ConsoleResponse{Success: true, Lines: w.Match.VoteSetup(slot)}
			})
		}
		return c.CallVote(ctx, slot, args[1], strings.Join(args[2:], " "))
	case "vote":
		if len(args) < 2 {
			return model.ConsoleResponse{}, fmt.Errorf("vote: %w", errMissingArg)
		}
		return c.CastVote(ctx, slot, args[1])
	case "listissues":
		return Query(ctx, c.loop, func(w *World) model.ConsoleResponse {
			return model.ConsoleResponse{Success: true, Lines: w.Match.ListIssues(slot)}
		})
	}
	return model.ConsoleResponse{}, fmt.Errorf("%q: %w", args[0], ErrUnknownCommand)
}

// CallVote asks the match to open a ballot on issue for slot.
func (c *Console) CallVote(ctx context.Context, slot int, issue, details string) (model.ConsoleResponse, error) {
	res, err := Query(ctx, c.loop, func(w *World) vote.CallResult {
		return w.Match.CallVote(slot, issue, details)
	})
	if err != nil {
		return model.ConsoleResponse{}, err
	}
	return CallResponse(res), nil
}

// CastVote records slot's vote, option being "option1".."option5".
func (c *Console) CastVote(ctx context.Context, slot int, option string) (model.ConsoleResponse, error) {
	res, err := Query(ctx, c.loop, func(w *World) vote.CastResult {
		return w.Match.CastVote(slot, option)
	})
	if err != nil {
		return model.ConsoleResponse{}, err
	}
	return model.ConsoleResponse{Success: res == vote.CastOK, Code: res.String()}, nil
}

// CallResponse converts a creation result to its API form.
func CallResponse(res vote.CallResult) model.ConsoleResponse {
	if res.Ok() {
		return model.ConsoleResponse{Success: true}
	}
	return model.ConsoleResponse{
		Code:         res.Reason.String(),
		RetrySeconds: int(math.Ceil(res.RetryAfter.Seconds())),
	}
}
