package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinetix/internal/cache"
	"cinetix/internal/config"
	"cinetix/internal/database"
	"cinetix/internal/gateway"
	"cinetix/internal/handlers"
	"cinetix/internal/logger"
	"cinetix/internal/messaging"
	"cinetix/internal/middleware"
	"cinetix/internal/service"
	"cinetix/internal/storage/postgres"
	"cinetix/internal/ticketart"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.Client
	services *service.Services
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// NATS and Redis are optional: the engine stays correct without
	// events or caching, so their absence only degrades.
	var events messaging.Publisher = messaging.NoopPublisher{}
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		slog.Warn("NATS unavailable, events disabled", "error", err)
	} else {
		events = natsClient
	}

	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	gw := gateway.NewHTTPClient(cfg.Gateway)
	art := ticketart.NewGenerator(cfg.Gateway.Secret)

	store := postgres.New(db)
	services := service.NewServices(store, gw, events, art, cfg.Booking)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		redis:    redisClient,
		services: services,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.redis)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	api.Use(middleware.Identity())
	{
		movies := api.Group("/movies")
		{
			movies.POST("", h.CreateMovie)
			movies.GET("", h.ListMovies)
			movies.GET("/:id", h.GetMovie)
			movies.GET("/:id/shows", h.ListShows)
		}

		api.POST("/theatres", h.CreateTheatre)

		shows := api.Group("/shows")
		{
			shows.POST("", h.CreateShow)
			shows.GET("/:id", h.GetShow)
			shows.GET("/:id/seats", h.SeatMap)
		}

		seats := api.Group("/seats")
		{
			seats.POST("/lock", h.LockSeats)
			seats.POST("/release", h.ReleaseSeats)
		}

		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.Reserve)
			bookings.POST("/wallet", h.ReserveWithWallet)
		}

		tickets := api.Group("/tickets")
		{
			tickets.GET("", h.MyTickets)
			tickets.POST("/:id/rate", h.RateTicket)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/order", h.CreateOrder)
			payments.POST("/verify", h.VerifyPayment)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("", h.GetWallet)
			wallet.POST("/topup", h.TopUp)
			wallet.POST("/topup/verify", h.VerifyTopUp)
		}

		resale := api.Group("/resale")
		{
			resale.GET("", h.ResaleMarket)
			resale.POST("/list", h.ListForResale)
			resale.POST("/cancel", h.CancelResale)
			resale.POST("/buy", h.BuyResale)
			resale.POST("/buy/verify", h.VerifyResale)
		}

		api.GET("/recommendations", h.Recommendations)
	}
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Failed to close NATS connection", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("Failed to close Redis connection", "error", err)
		}
	}
	return s.db.Close()
}
