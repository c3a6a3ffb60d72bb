package app

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/group-scheduler/internal/api"
	"github.com/nekogravitycat/group-scheduler/internal/assignment"
	"github.com/nekogravitycat/group-scheduler/internal/auth"
	"github.com/nekogravitycat/group-scheduler/internal/group"
	"github.com/nekogravitycat/group-scheduler/internal/location"
	"github.com/nekogravitycat/group-scheduler/internal/occurrence"
	"github.com/nekogravitycat/group-scheduler/internal/preference"
	"github.com/nekogravitycat/group-scheduler/internal/schedule"
	"github.com/nekogravitycat/group-scheduler/internal/scheduling"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	// Redis is optional; nil keeps preferences in process memory.
	Redis     *redis.Client
	JWTSecret string
	JWTTTL    time.Duration
	Location  *time.Location
	Logger    zerolog.Logger

	AutoAssignBatchSize  int
	AutoAssignRatePerSec int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// Group Module
	groupRepo := group.NewPgxRepository(cfg.DBPool)
	groupService := group.NewService(groupRepo, group.NewRepositoryAuthorizer(groupRepo))

	// Occurrence Module
	locRepo := location.NewPgxRepository(cfg.DBPool)
	scheduleRepo := schedule.NewPgxRepository(cfg.DBPool)
	recordRepo := occurrence.NewPgxRepository(cfg.DBPool)
	catalog := occurrence.NewCatalogBuilder(locRepo, scheduleRepo, recordRepo, cfg.Logger)
	// One creation lock per process; the unique index settles races between processes.
	records := occurrence.NewManager(recordRepo, &sync.Mutex{}, cfg.Location, cfg.Logger)

	// Assignment Module
	copier := assignment.NewPgxCopier(cfg.DBPool)
	assigner := assignment.NewPgxAutoAssigner(cfg.DBPool, cfg.AutoAssignBatchSize, cfg.AutoAssignRatePerSec, cfg.Logger)

	var prefs preference.Store
	if cfg.Redis != nil {
		prefs = preference.NewRedisStore(cfg.Redis)
	} else {
		prefs = preference.NewMemoryStore()
	}

	// Scheduling Module
	schedulingService := scheduling.NewService(
		groupService, catalog, records, copier, assigner, prefs, cfg.Location, cfg.Logger,
	)

	// API Router Config
	routerParams := api.Config{
		IsProduction:      cfg.IsProduction,
		ProdOrigins:       cfg.ProdOrigins,
		Logger:            cfg.Logger,
		SchedulingService: schedulingService,
		JWTManager:        jwtManager,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}
}
