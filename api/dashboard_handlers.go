// Package api provides HTTP handlers for the dashboard and pricing endpoints.
package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finsightlabs/finsight-go/models"
	"github.com/finsightlabs/finsight-go/services"
)

// RootHandler handles GET / as a liveness message.
func RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "AI Backend Running"})
}

// GenerateDashboardHandler handles POST /dashboard/generate. Oracle and
// rendering failures degrade inside the pipeline; only store unavailability
// surfaces as a server error.
func GenerateDashboardHandler(pipeline *services.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DashboardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
			return
		}

		log.Printf("Received prompt: %q (request %s)", req.Prompt, c.GetString("requestID"))

		result, err := pipeline.Generate(c.Request.Context(), req.Prompt)
		if err != nil {
			log.Printf("ERROR: dashboard generate failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.DashboardResponse{
			Graph:         result.Graph,
			AssistantText: result.AssistantText,
		})
	}
}
