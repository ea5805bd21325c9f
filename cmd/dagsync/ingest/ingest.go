// Package ingest exposes the HTTP endpoint the desired-state producer pushes
// dag tasks into. It is a thin adapter in front of the worker pool's queue.
package ingest

import (
	"io"
	"net/http"
	"time"

	"dagsync/cmd/dagsync/shared"
	"dagsync/cmd/dagsync/worker"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(pool *worker.Pool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))

	router.POST("/v1/dags", func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "failed to read body")
			return
		}
		task, err := shared.ParseDagTask(payload)
		if err != nil {
			zap.S().Warnf("Rejected dag task: %s", err)
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		pool.Enqueue(task)
		c.Status(http.StatusAccepted)
	})

	router.GET("/v1/queue", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"length": pool.QueueLength()})
	})

	return router
}

// Run starts the ingest server. It blocks, so call it from a goroutine.
func Run(pool *worker.Pool, address string) {
	router := SetupRouter(pool)
	err := router.Run(address)
	if err != nil {
		zap.S().Errorf("Error starting ingest server: %s", err)
	}
}
