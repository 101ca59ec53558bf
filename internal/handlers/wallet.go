package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinetix/internal/models"
)

// GetWallet - GET /api/wallet
func (h *Handlers) GetWallet(c *gin.Context) {
	wallet, err := h.services.Wallets.Get(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// TopUp - POST /api/wallet/topup
func (h *Handlers) TopUp(c *gin.Context) {
	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Payments.CreateTopUpOrder(c.Request.Context(), userID(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// VerifyTopUp - POST /api/wallet/topup/verify
func (h *Handlers) VerifyTopUp(c *gin.Context) {
	var req models.VerifyTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Payments.VerifyTopUpPayment(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
