package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/handler"
	"github.com/dormkeeper/dormkeeper-api/internal/middleware"
	"github.com/dormkeeper/dormkeeper-api/internal/models"
	"github.com/dormkeeper/dormkeeper-api/internal/repository"
	"github.com/dormkeeper/dormkeeper-api/internal/service"
	"github.com/dormkeeper/dormkeeper-api/pkg/config"
	"github.com/dormkeeper/dormkeeper-api/pkg/logger"
	corsmiddleware "github.com/dormkeeper/dormkeeper-api/pkg/middleware/cors"
	reqidmiddleware "github.com/dormkeeper/dormkeeper-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Rooms         *handler.RoomHandler
	Allocations   *handler.AllocationHandler
	Requests      *handler.RequestHandler
	Roommates     *handler.RoommateHandler
	Maintenance   *handler.MaintenanceHandler
	Notifications *handler.NotificationHandler
	Dashboard     *handler.DashboardHandler
	Exports       *handler.ExportHandler
	Metrics       *handler.MetricsHandler
}

// Deps carries the cross-cutting dependencies the router needs besides handlers.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *service.AuthService
	Metrics  *service.MetricsService
	Activity *repository.ActivityRepository
}

// New assembles the gin engine with all routes and middleware.
func New(deps Deps, h Handlers) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.Auth))
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.POST("/auth/change-password", h.Auth.ChangePassword)

		protected.GET("/me", h.Users.Me)
		protected.PUT("/me", h.Users.UpdateMe)

		protected.GET("/my-room", h.Allocations.MyRoom)
		protected.GET("/my-room/recommended-type", h.Allocations.RecommendedType)

		rooms := protected.Group("/rooms")
		{
			rooms.GET("", h.Rooms.List)
			rooms.GET("/buildings", h.Rooms.ListBuildings)
			rooms.GET("/types", h.Rooms.ListTypes)
			rooms.GET("/:id", h.Rooms.Get)

			adminRooms := rooms.Group("")
			adminRooms.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				adminRooms.POST("", h.Rooms.Create)
				adminRooms.PUT("/:id", h.Rooms.Update)
				adminRooms.DELETE("/:id", h.Rooms.Delete)
				adminRooms.PUT("/:id/maintenance", h.Rooms.SetMaintenance)
			}
		}

		allocations := protected.Group("/allocations")
		{
			allocations.GET("", h.Allocations.List)
			allocations.GET("/:id", h.Allocations.Get)

			adminAlloc := allocations.Group("")
			adminAlloc.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				adminAlloc.POST("", h.Allocations.Allocate,
					middleware.Audit(deps.Activity, models.ActivityActionAllocate, "allocations"))
				adminAlloc.POST("/:id/check-in", h.Allocations.CheckIn)
				adminAlloc.POST("/:id/check-out", h.Allocations.CheckOut)
				adminAlloc.POST("/:id/cancel", h.Allocations.Cancel)
				adminAlloc.GET("/unallocated", h.Allocations.ListUnallocated)
			}
		}

		requests := protected.Group("/requests")
		{
			requests.GET("", h.Requests.List)
			requests.GET("/:id", h.Requests.Get)
			requests.POST("", middleware.RequireRoles(models.RoleStudent), h.Requests.Submit)
			requests.POST("/:id/review", middleware.RequireRoles(models.RoleAdmin), h.Requests.Review)
		}

		roommates := protected.Group("/roommates")
		roommates.Use(middleware.RequireRoles(models.RoleStudent))
		{
			roommates.GET("/profile", h.Roommates.GetProfile)
			roommates.PUT("/profile", h.Roommates.SaveProfile)
			roommates.GET("/candidates", h.Roommates.ListCandidates)
			roommates.POST("/requests", h.Roommates.SendRequest)
			roommates.POST("/requests/:id/respond", h.Roommates.Respond)
			roommates.GET("/requests/incoming", h.Roommates.ListIncoming)
			roommates.GET("/requests/sent", h.Roommates.ListSent)
		}

		maintenance := protected.Group("/maintenance")
		{
			maintenance.GET("", h.Maintenance.List)
			maintenance.GET("/:id", h.Maintenance.Get)
			maintenance.POST("", middleware.RequireRoles(models.RoleStudent), h.Maintenance.Report)
			maintenance.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin), h.Maintenance.UpdateStatus)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.Notifications.List)
			notifications.PUT("/read-all", h.Notifications.MarkAllRead)
			notifications.PUT("/:id/read", h.Notifications.MarkRead)
			notifications.DELETE("/:id", h.Notifications.Delete)
		}

		admin := protected.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/students", h.Users.ListStudents)
			admin.GET("/users/:id", h.Users.Get)
			admin.PUT("/users/:id/active", h.Users.SetActive)

			admin.GET("/dashboard", h.Dashboard.Summary)
			admin.GET("/dashboard/activity", h.Dashboard.RecentActivity)

			if deps.Config.Exports.Enabled {
				admin.GET("/exports/allocations", h.Exports.Allocations)
				admin.GET("/exports/rooms", h.Exports.Rooms)
			}
		}
	}

	return r
}
