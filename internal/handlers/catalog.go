package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cinetix/internal/models"
)

const movieListCacheKey = "movies:list"

// CreateMovie - POST /api/movies
func (h *Handlers) CreateMovie(c *gin.Context) {
	var req models.CreateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movie, err := h.services.Catalog.CreateMovie(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidateMovieCache(c)
	c.JSON(http.StatusCreated, movie)
}

// ListMovies - GET /api/movies
// Serves from the Redis cache when possible; any cache failure falls
// through to the database.
func (h *Handlers) ListMovies(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, movieListCacheKey); err == nil && data != nil {
			c.Data(http.StatusOK, "application/json", data)
			return
		}
	}

	movies, err := h.services.Catalog.ListMovies(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if movies == nil {
		movies = []models.Movie{}
	}

	if h.cache != nil {
		if data, err := json.Marshal(movies); err == nil {
			if err := h.cache.Set(ctx, movieListCacheKey, data); err != nil {
				slog.Debug("Failed to cache movie list", "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, movies)
}

// GetMovie - GET /api/movies/:id
func (h *Handlers) GetMovie(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}

	movie, err := h.services.Catalog.GetMovie(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// CreateTheatre - POST /api/theatres
func (h *Handlers) CreateTheatre(c *gin.Context) {
	var req models.CreateTheatreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	theatre, err := h.services.Catalog.CreateTheatre(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, theatre)
}

// CreateShow - POST /api/shows
func (h *Handlers) CreateShow(c *gin.Context) {
	var req models.CreateShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	show, err := h.services.Catalog.CreateShow(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, show)
}

// GetShow - GET /api/shows/:id
func (h *Handlers) GetShow(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid show id"})
		return
	}

	show, err := h.services.Catalog.GetShow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, show)
}

// ListShows - GET /api/movies/:id/shows
func (h *Handlers) ListShows(c *gin.Context) {
	movieID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movie id"})
		return
	}

	shows, err := h.services.Catalog.ListShowsByMovie(c.Request.Context(), movieID)
	if err != nil {
		respondError(c, err)
		return
	}
	if shows == nil {
		shows = []models.Show{}
	}
	c.JSON(http.StatusOK, shows)
}

// SeatMap - GET /api/shows/:id/seats
func (h *Handlers) SeatMap(c *gin.Context) {
	showID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid show id"})
		return
	}

	seats, err := h.services.Catalog.SeatMap(c.Request.Context(), showID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"show_id": showID, "seats": seats})
}

func (h *Handlers) invalidateMovieCache(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(c.Request.Context(), movieListCacheKey); err != nil {
		slog.Debug("Failed to invalidate movie cache", "error", err)
	}
}
