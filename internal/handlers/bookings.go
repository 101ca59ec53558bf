package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cinetix/internal/models"
)

// Reserve - POST /api/bookings
func (h *Handlers) Reserve(c *gin.Context) {
	var req models.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.services.Bookings.Reserve(c.Request.Context(), userID(c), req.ShowID, req.SeatCodes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ReserveResponse{
		TicketID:   ticket.ID,
		TotalPrice: ticket.TotalPrice,
		Status:     string(ticket.Status),
	})
}

// ReserveWithWallet - POST /api/bookings/wallet
func (h *Handlers) ReserveWithWallet(c *gin.Context) {
	var req models.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.services.Bookings.ReserveWithWallet(c.Request.Context(), userID(c), req.ShowID, req.SeatCodes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ReserveResponse{
		TicketID:   ticket.ID,
		TotalPrice: ticket.TotalPrice,
		Status:     string(ticket.Status),
	})
}

// MyTickets - GET /api/tickets
func (h *Handlers) MyTickets(c *gin.Context) {
	tickets, err := h.services.Bookings.MyTickets(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	c.JSON(http.StatusOK, tickets)
}

// RateTicket - POST /api/tickets/:id/rate
func (h *Handlers) RateTicket(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	var req models.RateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.services.Bookings.RateTicket(c.Request.Context(), userID(c), ticketID, req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
