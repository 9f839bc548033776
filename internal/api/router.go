package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/ws"
)

type Dependencies struct {
	Sessions   handler.SessionManager
	Enrollment handler.EnrollmentService
	Logins     handler.LoginHistory
	Hub        *ws.Hub
	DB         database.Pinger
	// APIKey protects enrollment routes; empty disables the check
	APIKey    string
	RateLimit middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facegate API",
		BodyLimit:    64 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger, "/health", "/ready"))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db database.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")

	// Sessions
	if r.deps.Sessions != nil {
		r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
		sessionHandler := handler.NewSessionHandler(r.deps.Sessions, r.logger)

		v1.Post("/sessions", r.rateLimiter.Handler(), sessionHandler.Start)
		v1.Get("/sessions", sessionHandler.List)
		v1.Get("/sessions/:id", sessionHandler.Get)
		v1.Delete("/sessions/:id", sessionHandler.Cancel)
		v1.Get("/sessions/:id/result", sessionHandler.Result)
	}

	// Live status and previews
	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}

	// Identities (operator only)
	if r.deps.Enrollment != nil {
		identityHandler := handler.NewIdentityHandler(r.deps.Enrollment, r.logger)

		identities := v1.Group("/identities", middleware.APIKey(r.deps.APIKey))
		identities.Get("/", identityHandler.List)
		identities.Post("/", identityHandler.Enroll)
		identities.Get("/:external_id", identityHandler.Get)
		identities.Delete("/:external_id", identityHandler.Delete)
		identities.Post("/:external_id/embeddings", identityHandler.AddImages)
	}

	// Login journal
	if r.deps.Logins != nil {
		loginHandler := handler.NewLoginHandler(r.deps.Logins, r.logger)
		v1.Get("/logins", middleware.APIKey(r.deps.APIKey), loginHandler.List)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.cancelHub != nil {
		r.cancelHub()
	}

	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
