package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinetix/internal/models"
)

// LockSeats - POST /api/seats/lock
func (h *Handlers) LockSeats(c *gin.Context) {
	var req models.LockSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	locked, err := h.services.SeatLocks.AcquireLocks(c.Request.Context(), userID(c), req.ShowID, req.SeatCodes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LockSeatsResponse{ShowID: req.ShowID, Locked: locked})
}

// ReleaseSeats - POST /api/seats/release
func (h *Handlers) ReleaseSeats(c *gin.Context) {
	var req models.ReleaseSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.SeatLocks.ReleaseLocks(c.Request.Context(), userID(c), req.ShowID, req.SeatCodes); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"show_id": req.ShowID, "released": true})
}
