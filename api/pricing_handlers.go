package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finsightlabs/finsight-go/models"
	"github.com/finsightlabs/finsight-go/services"
)

// SuggestPriceHandler handles POST /suggest-price. Input types are
// validated at the boundary; the suggestion logic itself has no failure
// path.
func SuggestPriceHandler(c *gin.Context) {
	var products []models.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product list: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, services.SuggestPrices(products))
}
