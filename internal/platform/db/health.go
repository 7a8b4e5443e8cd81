package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthTimeout = 5 * time.Second

// Pinger is a storage backend that can be pinged. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// InProcess is the target for storage that lives in the server process.
type InProcess struct{}

func (InProcess) Ping(context.Context) error { return nil }

type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// HealthResponse is the body of GET /health/db.
type HealthResponse struct {
	Success bool       `json:"success"`
	Status  string     `json:"status"`
	Storage string     `json:"storage,omitempty"`
	Message string     `json:"message,omitempty"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

func poolStats(pool *pgxpool.Pool) *PoolStats {
	s := pool.Stat()
	return &PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
		Healthy:         s.TotalConns() > 0,
	}
}

// HealthHandler pings the storage and answers 200 or 503. Connection pool
// figures are attached when the target is a pgx pool.
func HealthHandler(storage string, target Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		resp := HealthResponse{Success: true, Status: "healthy", Storage: storage}
		err := target.Ping(ctx)
		if pool, ok := target.(*pgxpool.Pool); ok {
			resp.Pool = poolStats(pool)
		}
		if err == nil {
			return c.JSON(http.StatusOK, resp)
		}

		resp.Success, resp.Status, resp.Message = false, "unhealthy", err.Error()
		if resp.Pool != nil {
			resp.Pool.Healthy = false
		}
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
}
