package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/group-scheduler/internal/auth"
	"github.com/nekogravitycat/group-scheduler/internal/pkg/logger"
	"github.com/nekogravitycat/group-scheduler/internal/scheduling"
	schedulingHttp "github.com/nekogravitycat/group-scheduler/internal/scheduling/http"
)

// Config holds the dependencies required to build the router.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	Logger            zerolog.Logger
	SchedulingService scheduling.Service
	JWTManager        *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: one structured line per request.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(logger.GinMiddleware(cfg.Logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
	}
	if cfg.IsProduction {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	schedulingHandler := schedulingHttp.NewHandler(cfg.SchedulingService, cfg.Logger)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		schedulingHttp.RegisterRoutes(v1, schedulingHandler, authMiddleware)
	}

	return r
}

// splitOrigins parses a comma separated origin list. An empty list makes
// cors.New panic, so at least one entry is always returned.
func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost"}
	}
	return origins
}
