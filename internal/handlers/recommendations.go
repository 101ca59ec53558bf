package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Recommendations - GET /api/recommendations?top=N
func (h *Handlers) Recommendations(c *gin.Context) {
	top, _ := strconv.Atoi(c.DefaultQuery("top", "5"))
	if top < 1 || top > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top must be between 1 and 50"})
		return
	}

	movies, err := h.services.Recommend.Recommend(c.Request.Context(), userID(c), top)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movies)
}
