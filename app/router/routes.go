// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/app/handlers"
	"github.com/showbook-app/showbook/app/middleware"
	"github.com/showbook-app/showbook/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	selectionHandler handlers.SelectionHandlerInterface
	snapshotHandler  handlers.SnapshotHandlerInterface
	promotionHandler handlers.PromotionHandlerInterface
	cycleHandler     handlers.CycleAdminHandlerInterface
	authMiddleware   *middleware.AuthMiddleware
	enableMetrics    bool
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	selectionHandler handlers.SelectionHandlerInterface,
	snapshotHandler handlers.SnapshotHandlerInterface,
	promotionHandler handlers.PromotionHandlerInterface,
	cycleHandler handlers.CycleAdminHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	enableMetrics bool,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Showbook API",
		ServerHeader: "Showbook",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:              app,
		selectionHandler: selectionHandler,
		snapshotHandler:  snapshotHandler,
		promotionHandler: promotionHandler,
		cycleHandler:     cycleHandler,
		authMiddleware:   authMiddleware,
		enableMetrics:    enableMetrics,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if r.enableMetrics {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Customer routes
	selections := api.Group("/selections", r.authMiddleware.Authenticate())
	selections.Get("/working", r.selectionHandler.GetWorkingSelection)
	selections.Put("/working/items", r.selectionHandler.ReplaceWorkingItems)
	selections.Post("/working/items", r.selectionHandler.AddItem)
	selections.Post("/working/from-snapshot", r.selectionHandler.CreateWorkingFromSnapshot)
	selections.Post("/working/restore", r.selectionHandler.RestoreWorking)
	selections.Post("/cycle-check", r.selectionHandler.CheckMarketCycle)

	snapshots := api.Group("/snapshots", r.authMiddleware.Authenticate())
	snapshots.Get("/", r.snapshotHandler.ListSnapshots)
	snapshots.Get("/active", r.snapshotHandler.GetActiveSnapshot)

	promotions := api.Group("/promotions", r.authMiddleware.Authenticate())
	promotions.Get("/status", r.promotionHandler.GetPromotionStatus)
	promotions.Get("/projection", r.promotionHandler.GetPromotionProjection)

	// Sales rep routes
	rep := api.Group("/rep", r.authMiddleware.RepAuthenticate())
	rep.Post("/snapshots", r.snapshotHandler.CreateSnapshot)
	rep.Post("/snapshots/:id/toggle-visibility", r.snapshotHandler.ToggleVisibility)
	rep.Delete("/snapshots/:id", r.snapshotHandler.DeleteSnapshot)

	rep.Put("/promotions", r.promotionHandler.UpsertPromotion)
	rep.Get("/promotions", r.promotionHandler.GetActivePromotion)

	rep.Get("/cycles/current", r.cycleHandler.GetCurrentCycle)
	rep.Post("/cycles/advance", r.cycleHandler.AdvanceCycle)
	rep.Post("/cycles/selections", r.cycleHandler.ListSelectionsByCycle)
	rep.Post("/cycles/bulk-visibility", r.cycleHandler.BulkSetVisibility)
	rep.Get("/cycles/stats", r.cycleHandler.CycleStats)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"https://showbook.app",
			"https://api.showbook.app",
			"https://rep.showbook.app",
		},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Structured access logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Prometheus request metrics
	if r.enableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "showbook-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
