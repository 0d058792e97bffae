package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"collabnote-backend/internal/auth"
	"collabnote-backend/internal/config"
	"collabnote-backend/internal/handler"
	"collabnote-backend/internal/hub"
	"collabnote-backend/internal/service"
)

// Server wraps the Fiber app and its handlers.
type Server struct {
	app           *fiber.App
	cfg           *config.Config
	db            *gorm.DB
	authHandler   *handler.AuthHandler
	noteHandler   *handler.NoteHandler
	blockHandler  *handler.BlockHandler
	collabHandler *handler.CollabWSHandler
	jwtManager    *auth.JWTManager
}

// New builds the server with all services wired.
func New(cfg *config.Config, db *gorm.DB) *Server {
	app := fiber.New(fiber.Config{
		AppName:       "Collabnote API",
		ServerHeader:  "Fiber",
		StrictRouting: true,
		CaseSensitive: true,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Prefork:       false, // incompatible with the in-process hub
		BodyLimit:     10 * 1024 * 1024,
	})

	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	guard := service.NewAccessGuard(db)
	noteService := service.NewNoteService(db, guard)
	blockService := service.NewBlockService(db, guard)
	collabHub := hub.New(guard)

	return &Server{
		app:           app,
		cfg:           cfg,
		db:            db,
		authHandler:   handler.NewAuthHandler(db, jwtManager, cfg.Auth.SecureCookie),
		noteHandler:   handler.NewNoteHandler(noteService),
		blockHandler:  handler.NewBlockHandler(blockService),
		collabHandler: handler.NewCollabWSHandler(collabHub),
		jwtManager:    jwtManager,
	}
}

// SetupMiddleware installs the global middleware stack.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PATCH, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes registers all endpoints.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Brute-force protection on the credential endpoints.
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	authGroup := s.app.Group("/auth")
	authGroup.Post("/register", authLimiter, s.authHandler.Register)
	authGroup.Post("/login", authLimiter, s.authHandler.Login)
	authGroup.Post("/refresh", authLimiter, s.authHandler.RefreshToken)
	authGroup.Post("/logout", auth.AuthMiddleware(s.jwtManager), s.authHandler.Logout)
	authGroup.Get("/me", auth.AuthMiddleware(s.jwtManager), s.authHandler.GetMe)

	noteGroup := s.app.Group("/api/notes", auth.AuthMiddleware(s.jwtManager))
	noteGroup.Post("", s.noteHandler.CreateNote)
	noteGroup.Get("", s.noteHandler.GetMyNotes)
	noteGroup.Get("/:noteId", s.noteHandler.GetNote)
	noteGroup.Patch("/:noteId", s.noteHandler.UpdateNote)
	noteGroup.Delete("/:noteId", s.noteHandler.DeleteNote)

	noteGroup.Post("/:noteId/blocks", s.blockHandler.CreateBlock)
	noteGroup.Get("/:noteId/blocks", s.blockHandler.GetBlocks)
	noteGroup.Post("/:noteId/blocks/reorder", s.blockHandler.ReorderBlocks)
	noteGroup.Get("/:noteId/blocks/:id", s.blockHandler.GetBlock)
	noteGroup.Patch("/:noteId/blocks/:id", s.blockHandler.UpdateBlock)
	noteGroup.Delete("/:noteId/blocks/:id", s.blockHandler.DeleteBlock)

	// Collab websocket: the upgrade requires a valid access_token cookie;
	// an unauthenticated connection is refused before any room interaction.
	s.app.Get("/ws/collab", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("userID", claims.UserID)

		return c.Next()
	}, websocket.New(s.collabHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start runs the server with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Collabnote API starting on %s", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
