package router

import (
	"context"
	"net/http"
	"time"

	authsvc "ppm-backend/internal/application/auth"
	"ppm-backend/internal/application/booking"
	plansvc "ppm-backend/internal/application/planning"
	policies "ppm-backend/internal/application/policies/resource"
	"ppm-backend/internal/application/risk"
	usersvc "ppm-backend/internal/application/user"
	"ppm-backend/internal/config"
	"ppm-backend/internal/infrastructure/database"
	"ppm-backend/internal/infrastructure/inventory"
	"ppm-backend/internal/infrastructure/metrics"
	authhandler "ppm-backend/internal/interfaces/handlers/auth"
	healthhandler "ppm-backend/internal/interfaces/handlers/health"
	planhandler "ppm-backend/internal/interfaces/handlers/planning"
	reshandler "ppm-backend/internal/interfaces/handlers/resources"
	userhandler "ppm-backend/internal/interfaces/handlers/user"
	"ppm-backend/internal/middleware"
	"ppm-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// users is what login and the mutation policy need from the account store.
type users interface {
	authsvc.UserFinder
	authsvc.RoleLookup
}

// CreateApp wires the API. With an empty DATABASE_URL the resource ledger,
// planning data and logins are served from memory, loaded from INVENTORY_FILE.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	ctx := context.Background()
	var inv *inventory.Inventory
	if cfg.InventoryFile != "" {
		if inv, err = inventory.Load(cfg.InventoryFile); err != nil {
			return nil, nil, nil, err
		}
	}

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}

	var (
		db     *gorm.DB
		store  booking.Store
		source plansvc.Source
		accts  users
	)
	if cfg.MemoryMode() {
		mem := booking.NewMemoryStore()
		static := plansvc.StaticSource{}
		if inv != nil {
			if err := inventory.Provision(ctx, mem, inv); err != nil {
				return nil, nil, nil, err
			}
			static = plansvc.StaticSource{PoolList: inv.Pools, ProjectList: inv.Projects}
		} else {
			inv = &inventory.Inventory{}
		}
		mu, err := inventory.MemoryUsers(inv)
		if err != nil {
			return nil, nil, nil, err
		}
		store, source, accts = mem, static, mu
		hh.StoreMode = "memory"
		log.Warn().Msg("DATABASE_URL not set; serving resources from memory")
	} else {
		if db, err = database.Open(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		if inv != nil {
			res, err := inventory.Seed(ctx, db, inv)
			if err != nil {
				return nil, nil, nil, err
			}
			log.Info().Int("resources", res.Resources).Int("projects", res.Projects).Msg("inventory seeded")
		}
		store = &booking.GormStore{DB: db}
		source = plansvc.GormSource{DB: db}
		accts = &authsvc.GormUserFinder{DB: db}
		hh.DB = &gormDBPinger{db: db}
		hh.StoreMode = "postgres"
	}

	m := metrics.New()
	policy := &policies.MutationPolicy{Roles: accts}
	bookings := &booking.Service{
		Store:     store,
		CanMutate: policy.CanMutate,
		Maintenance: booking.MaintenancePolicy{
			BayInterval:     time.Duration(cfg.BayMaintenanceDays) * 24 * time.Hour,
			MachineInterval: time.Duration(cfg.MachineMaintenanceDays) * 24 * time.Hour,
		},
		Metrics: m,
	}
	hh.Inventory = bookings

	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	ah := &authhandler.Handlers{
		UserFinder: accts,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	// Resources
	rh := &reshandler.Handlers{Bookings: bookings, RiskService: &risk.Service{Resources: bookings}}
	rg := app.Group("/api/v1/resources", middleware.RequireAuth())
	rg.Get("/", middleware.AuthorizePermission(constants.ViewResources), rh.List)
	rg.Get("/available", middleware.AuthorizePermission(constants.ViewResources), rh.Available)
	rg.Get("/risk", middleware.AuthorizePermission(constants.ViewResources), rh.Risk)
	rg.Get("/conflicts", middleware.AuthorizePermission(constants.ViewAudit), rh.Conflicts)
	rg.Get("/:id", middleware.AuthorizePermission(constants.ViewResources), rh.Get)
	rg.Get("/:id/events", middleware.AuthorizePermission(constants.ViewAudit), rh.Events)
	rg.Post("/:id/reserve", middleware.AuthorizePermission(constants.BookResources), rh.Reserve)
	rg.Post("/:id/release", middleware.AuthorizePermission(constants.BookResources), rh.Release)
	rg.Post("/:id/bookings/:bookingId/cancel", middleware.AuthorizePermission(constants.BookResources), rh.CancelBooking)
	rg.Post("/:id/maintenance/start", middleware.AuthorizePermission(constants.ManageMaintenance), rh.StartMaintenance)
	rg.Post("/:id/maintenance/complete", middleware.AuthorizePermission(constants.ManageMaintenance), rh.CompleteMaintenance)
	rg.Post("/:id/replacements", middleware.AuthorizePermission(constants.ManageMaintenance), rh.LogReplacement)
	rg.Post("/:id/health", middleware.AuthorizePermission(constants.ManageMaintenance), rh.ReportHealth)
	rg.Post("/:id/import", middleware.AuthorizePermission(constants.ImportBookings), rh.Import)

	// Planning
	ps := &plansvc.Service{Source: source, Rdb: rdb, CacheTTL: cfg.CapacityCacheTTL, Horizon: cfg.PlanningHorizon}
	ph := &planhandler.Handlers{Service: ps}
	pg := app.Group("/api/v1/planning", middleware.RequireAuth())
	pg.Get("/capacity", middleware.AuthorizePermission(constants.ViewPlanning), ph.Capacity)
	pg.Delete("/capacity/cache", middleware.AuthorizePermission(constants.ManagePlanning), ph.InvalidateCache)

	// Users (role administration needs the database)
	if db != nil {
		uh := &userhandler.Handlers{Service: &usersvc.Service{DB: db, Rdb: rdb}}
		ug := app.Group("/api/v1/users", middleware.RequireAuth())
		ug.Get("/", middleware.AuthorizePermission(constants.AssignRole), uh.List)
		ug.Get("/me", uh.Me)
		ug.Get("/:id", middleware.AuthorizePermission(constants.AssignRole), uh.View)
		ug.Patch("/:id/role", middleware.AuthorizePermission(constants.AssignRole), uh.UpdateRole)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
