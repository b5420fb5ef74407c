package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"omniops/internal/handler"
	"omniops/pkg/metrics"
	"omniops/pkg/otel"
	"omniops/pkg/trace"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger readyz 用来检查数据库
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connectivity MQ 连接状态，nil 表示未启用
type Connectivity interface {
	IsConnected() bool
}

type Handlers struct {
	Items       *handler.ItemHandler
	Dashboard   *handler.DashboardHandler
	Forms       *handler.FormHandler
	Submissions *handler.SubmissionHandler
	AI          *handler.AIHandler
	Activity    *handler.ActivityHandler
}

func NewRouter(h Handlers, logger *zap.Logger, db Pinger, broker Connectivity) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(trace.Middleware())
	r.Use(otel.GinMiddleware())

	// 请求日志 + 耗时指标
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.Info("HTTP Request",
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if broker != nil && !broker.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/dashboard", h.Dashboard.Summary)
		api.GET("/activity", h.Activity.Recent)

		api.GET("/items", h.Items.ListItems)
		api.POST("/items", h.Items.CreateItem)
		api.DELETE("/items/:id", h.Items.DeleteItem)
		api.POST("/items/:id/toggle", h.Items.ToggleTask)
		api.POST("/items/:id/move", h.Items.MoveLead)
		api.GET("/items/:id/mutations", h.Items.Mutations)
		api.GET("/pipeline", h.Items.Pipeline)

		api.GET("/forms", h.Forms.ListForms)
		api.POST("/forms/drafts", h.Forms.CreateDraft)
		api.GET("/forms/drafts/:id", h.Forms.GetDraft)
		api.POST("/forms/drafts/:id/fields", h.Forms.AddField)
		api.PATCH("/forms/drafts/:id/fields/:fieldId", h.Forms.UpdateLabel)
		api.DELETE("/forms/drafts/:id/fields/:fieldId", h.Forms.RemoveField)
		api.POST("/forms/drafts/:id/save", h.Forms.SaveDraft)

		api.GET("/submissions", h.Submissions.Inbox)
		api.GET("/submissions/:id", h.Submissions.View)

		api.POST("/ai/generate", h.AI.Generate)
	}

	// Public，无需登录
	public := r.Group("/forms")
	{
		public.GET("/:id", h.Submissions.PublicForm)
		public.POST("/:id/submissions", h.Submissions.Submit)
	}

	return r
}
