package routes

import (
	"github.com/communityweb/strtracker/internal/handler"
	"github.com/communityweb/strtracker/internal/middleware"
	"github.com/communityweb/strtracker/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers bundles the tracker's HTTP handlers
type Handlers struct {
	Auth    *handler.AuthHandler
	Report  *handler.ReportHandler
	History *handler.HistoryHandler
	Notify  *handler.NotifyHandler
}

// Options tunes the write-side middleware
type Options struct {
	// BodyLimit caps write request bodies in bytes; 0 disables the cap
	BodyLimit int64
	// RedisClient enables per-actor rate limiting of writes when set
	RedisClient *redis.Client
	RateLimit   middleware.RateLimitConfig
}

// Setup configures all /api/v1 routes
func Setup(router *gin.Engine, h Handlers, jwtManager *jwt.Manager, opts Options) {
	api := router.Group("/api/v1", middleware.OptionalAuth(jwtManager))

	// write: login required, body capped, rate limited
	write := []gin.HandlerFunc{
		middleware.RequireAuth(),
		middleware.BodyLimit(opts.BodyLimit),
		middleware.RateLimit(opts.RedisClient, opts.RateLimit),
	}
	developer := append([]gin.HandlerFunc{middleware.RequireDeveloper()}, write[1:]...)

	auth := api.Group("/auth")
	auth.POST("/login", middleware.RateLimit(opts.RedisClient, opts.RateLimit), h.Auth.Login)
	auth.GET("/me", middleware.RequireAuth(), h.Auth.Me)

	strs := api.Group("/strs")
	strs.GET("", h.Report.ListReports)
	strs.GET("/versions", h.Report.ListVersions)
	strs.GET("/subsystems", h.Report.ListSubsystems)
	strs.GET("/:id", h.Report.GetReport)
	strs.POST("", with(write, h.Report.CreateReport)...)
	strs.POST("/batch", with(developer, h.Report.BatchUpdate)...)
	// field edits are checked per field; posters may use PUT for text and files
	strs.PUT("/:id", with(write, h.Report.UpdateReport)...)

	strs.POST("/:id/texts", with(write, h.History.AddText)...)
	strs.POST("/:id/files", with(write, h.History.AddFile)...)
	strs.PATCH("/:id/texts/:text_id", with(developer, h.History.SetTextVisibility)...)
	strs.PATCH("/:id/files/:file_id", with(developer, h.History.SetFileVisibility)...)
	strs.GET("/:id/files/:filename", h.History.DownloadFile)

	strs.POST("/:id/notify", with(write, h.Notify.Subscribe)...)
	strs.DELETE("/:id/notify", with(write, h.Notify.Unsubscribe)...)
}

func with(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, h)
}
