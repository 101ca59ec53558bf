package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinetix/internal/models"
)

// CreateOrder - POST /api/payments/order
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Payments.CreateTicketOrder(c.Request.Context(), userID(c), req.TicketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// VerifyPayment - POST /api/payments/verify
func (h *Handlers) VerifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Payments.VerifyTicketPayment(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
