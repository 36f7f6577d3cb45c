package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/simhastha_samwad/backend/internal/config"
	"github.com/simhastha_samwad/backend/internal/http/handlers"
	"github.com/simhastha_samwad/backend/internal/http/middleware"

	_ "github.com/simhastha_samwad/backend/docs"
)

type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Store     handlers.Store
	Inbound   handlers.Inbound
	Messenger handlers.Messenger
	Tools     handlers.ToolRunner
	Gate      handlers.ApprovalGate
	Hub       WebSocketServer
}

func Router(cfg config.Config, deps Deps, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := config.SplitCSV(cfg.CORSAllowed)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     deps.Store,
		Inbound:   deps.Inbound,
		Messenger: deps.Messenger,
		Tools:     deps.Tools,
		Gate:      deps.Gate,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	hook := r.Group("/whatsapp/webhook")
	hook.Use(middleware.RateLimit(middleware.NewKeyedLimiter(cfg.WebhookRatePerMin)))
	{
		hook.POST("", h.Webhook)
		hook.GET("", h.WebhookVerify)
	}

	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) { deps.Hub.ServeWS(c.Writer, c.Request) })
	}

	api := r.Group("/api")
	{
		api.GET("/messages", h.MessagesList)
		api.GET("/messages/by_phone/:phone", h.MessagesByPhone)
		api.GET("/tools/feedback/list", h.FeedbackList)
		api.GET("/tools/feedback/:id", h.FeedbackGet)
		api.GET("/tools/assignments", h.AssignmentsList)
		api.GET("/tools/resolve_context", h.ResolveContext)
		api.GET("/agent/tools", h.AgentTools)
		api.GET("/agent/intent_map", h.IntentMap)
		api.GET("/templates", h.TemplatesList)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/reply", h.Reply)
		admin.POST("/ai/reply", h.AIReply)
		admin.POST("/tools/:name", h.ToolCall)
		admin.POST("/agent/tools/invoke", h.AgentInvoke)

		admin.GET("/admin/approvals", h.ApprovalsList)
		admin.POST("/admin/approvals/:id/decision", h.ApprovalDecision)
		admin.GET("/admin/zone_config", h.ZoneConfigList)
		admin.POST("/admin/zone_config", h.ZoneConfigUpsert)
		admin.GET("/admin/metrics", h.Metrics)

		admin.POST("/templates", h.TemplateCreate)
		admin.PUT("/templates/:id", h.TemplateUpdate)
		admin.DELETE("/templates/:id", h.TemplateDelete)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
