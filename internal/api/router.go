package api

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	appointmentHttp "github.com/gracefellowship/church-admin-backend/internal/appointment/http"
	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/user"
	userHttp "github.com/gracefellowship/church-admin-backend/internal/user/http"
)

// Config carries the services and switches the router is assembled from.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       *slog.Logger

	UserService        user.Service
	AppointmentService appointment.Service
	Reminder           appointmentHttp.ReminderRunner
	JWTManager         *auth.JWTManager

	// RateLimit guards public writes; nil disables it.
	RateLimit gin.HandlerFunc
	// Ready backs GET /healthz; nil always reports ok.
	Ready ReadyCheck
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := gin.New()

	// Global Middleware:
	// - RequestLogger / AccessLog: structured request logging with a request id.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(cfg.Logger), AccessLog(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000", // Frontend dev server
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader, "Retry-After"}
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	r.GET("/healthz", healthHandler(cfg.Ready))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	appointmentHandler := appointmentHttp.NewHandler(cfg.AppointmentService, cfg.Reminder)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, cfg.RateLimit)
		appointmentHttp.RegisterRoutes(v1, appointmentHandler, appointmentHttp.Middlewares{
			Auth:         authMiddleware,
			OptionalAuth: auth.OptionalAuth(cfg.JWTManager),
			RateLimit:    cfg.RateLimit,
		})
	}

	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
