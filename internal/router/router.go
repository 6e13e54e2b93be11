package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/mathieu-neron/callvote/internal/handler"
	"github.com/mathieu-neron/callvote/internal/metrics"
	"github.com/mathieu-neron/callvote/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health  *handler.HealthHandler
	Console *handler.ConsoleHandler
	Vote    *handler.VoteHandler
	Client  *handler.ClientHandler
	Ballot  *handler.BallotHandler
	Admin   *handler.AdminHandler
}

// Options configure the middleware stack.
type Options struct {
	CORSOrigins string
	AdminToken  string
}

// Limiters are the rate limiters installed by Setup.
type Limiters struct {
	CallVote *middleware.RateLimiter
	Cast     *middleware.RateLimiter
	Console  *middleware.RateLimiter
	Read     *middleware.RateLimiter
	Admin    *middleware.RateLimiter
}

// Close stops every limiter's cleanup goroutine.
func (l *Limiters) Close() {
	for _, rl := range []*middleware.RateLimiter{l.CallVote, l.Cast, l.Console, l.Read, l.Admin} {
		rl.Close()
	}
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) *Limiters {
	lim := &Limiters{
		CallVote: middleware.NewCallVoteRateLimiter(),
		Cast:     middleware.NewCastRateLimiter(),
		Console:  middleware.NewConsoleRateLimiter(),
		Read:     middleware.NewReadRateLimiter(),
		Admin:    middleware.NewAdminRateLimiter(),
	}

	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))
	app.Use(metrics.Middleware())

	// Probes and metrics (no auth, no limits)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", metrics.Handler())

	// API routes
	api := app.Group("/api")

	// Client console surface
	api.Post("/console", lim.Console.Handler(), h.Console.Execute)
	api.Post("/votes", lim.CallVote.Handler(), h.Vote.Call)
	api.Post("/votes/cast", lim.Cast.Handler(), h.Vote.Cast)
	api.Get("/votes/active", lim.Read.Handler(), h.Vote.Active)
	api.Get("/issues", lim.Read.Handler(), h.Vote.Issues)
	api.Get("/clients/:slot/messages", lim.Read.Handler(), h.Client.Messages)

	// Read-only server state
	api.Get("/players", lim.Read.Handler(), h.Admin.Players)
	api.Get("/rules", lim.Read.Handler(), h.Admin.Rules)
	api.Get("/ballots/recent", lim.Read.Handler(), h.Ballot.Recent)

	// Admin routes
	admin := api.Group("/admin", lim.Admin.Handler(), middleware.NewAdminAuth(opts.AdminToken))
	admin.Post("/players", h.Admin.Connect)
	admin.Delete("/players/:slot", h.Admin.Disconnect)
	admin.Put("/players/:slot/team", h.Admin.ChangeTeam)
	admin.Put("/rules", h.Admin.UpdateRules)
	admin.Get("/convars", h.Admin.Convars)
	admin.Put("/convars", h.Admin.UpdateConvars)
	admin.Post("/callvote", h.Admin.CallVote)
	admin.Post("/votes/end", h.Admin.EndVotes)

	return lim
}
