package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cinetix/internal/models"
)

// ResaleMarket - GET /api/resale
func (h *Handlers) ResaleMarket(c *gin.Context) {
	listings, err := h.services.Resale.Market(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if listings == nil {
		listings = []models.ResaleListing{}
	}
	c.JSON(http.StatusOK, listings)
}

// ListForResale - POST /api/resale/list
func (h *Handlers) ListForResale(c *gin.Context) {
	var req models.ListResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.services.Resale.ListForResale(c.Request.Context(), userID(c), req.TicketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// CancelResale - POST /api/resale/cancel
func (h *Handlers) CancelResale(c *gin.Context) {
	var req models.CancelResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Resale.CancelListing(c.Request.Context(), userID(c), req.ListingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": req.ListingID, "cancelled": true})
}

// BuyResale - POST /api/resale/buy
func (h *Handlers) BuyResale(c *gin.Context) {
	var req models.BuyResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Resale.CreateBuyOrder(c.Request.Context(), userID(c), req.ListingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// VerifyResale - POST /api/resale/buy/verify
func (h *Handlers) VerifyResale(c *gin.Context) {
	var req models.VerifyResaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.services.Resale.VerifyBuyPayment(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
