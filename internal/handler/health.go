package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mathieu-neron/callvote/internal/service"
)

type HealthHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	loop    *service.GameLoop
	startAt time.Time
}

// NewHealthHandler builds the probes. pool and rdb may be nil when ballot
// history or Redis are disabled.
func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, loop *service.GameLoop) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		loop:    loop,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live (liveness probe).
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready (readiness probe with dependency checks).
// The game loop is required; database and redis only degrade.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := make(fiber.Map)
	overallStatus := "healthy"

	checks["game_loop"] = checkLoop(ctx, h.loop)
	if checks["game_loop"].(fiber.Map)["status"] != "up" {
		overallStatus = "unhealthy"
	}

	checks["database"] = checkDB(ctx, h.pool)
	if checks["database"].(fiber.Map)["status"] == "down" && overallStatus == "healthy" {
		overallStatus = "degraded"
	}

	checks["redis"] = checkRedis(ctx, h.rdb)
	if checks["redis"].(fiber.Map)["status"] == "down" && overallStatus == "healthy" {
		overallStatus = "degraded"
	}

	resp := fiber.Map{
		"status":         overallStatus,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	}

	status := fiber.StatusOK
	if overallStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(resp)
}

func checkLoop(ctx context.Context, loop *service.GameLoop) fiber.Map {
	start := time.Now()
	serverTime, err := service.Query(ctx, loop, func(w *service.World) float64 {
		return w.Clock.Now().Seconds()
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "game loop not responding",
		}
	}
	return fiber.Map{
		"status":      "up",
		"latency_ms":  latency,
		"server_time": serverTime,
	}
}

func checkDB(ctx context.Context, pool *pgxpool.Pool) fiber.Map {
	if pool == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := pool.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

func checkRedis(ctx context.Context, rdb *redis.Client) fiber.Map {
	if rdb == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
