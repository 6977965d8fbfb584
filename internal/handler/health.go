package handler

import (
	"context"
	"net/http"
	"time"

	"stationery/internal/infra"
	"stationery/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the student source breaker and
// dead letter queue sizes; never exposes credentials or internals.
// rdb and breaker may be nil when those components are not configured.
func Health(db *gorm.DB, rdb *redis.Client, breaker *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		body := gin.H{"db": dbStatus}
		healthy := dbStatus == "connected"

		if rdb != nil {
			redisStatus := "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
				healthy = false
			}
			body["redis"] = redisStatus

			if redisStatus == "connected" {
				dlq := gin.H{}
				for _, q := range []string{worker.QueueLowStock, worker.QueueStudentSync} {
					if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
						dlq[q] = n
					}
				}
				body["dlq"] = dlq
			}
		}

		// An open breaker degrades student import only; the API stays healthy.
		if breaker != nil {
			body["studentSource"] = breaker.Stats()
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = healthy
		c.JSON(status, body)
	}
}
