package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/regionscope/models"
)

// Version is reported by the service descriptor.
const Version = "2.0.0"

// Health returns a handler for GET /health.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
		})
	}
}

// Index returns a handler for GET / describing the service.
func Index(source string, maxBatch int) gin.HandlerFunc {
	desc := models.ServiceDescriptor{
		Name:    "regionscope",
		Version: Version,
		Source:  source,
		Endpoints: map[string]string{
			"GET /api/user-region?username=USERNAME": "Get region & profile data",
			"POST /api/batch-region":                 fmt.Sprintf("Batch lookup (max %d)", maxBatch),
			"GET /health":                            "Health check",
			"GET /metrics":                           "Prometheus metrics",
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, desc)
	}
}
