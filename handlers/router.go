package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/config"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/middleware"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/optimizer"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/session"
)

// Deps are the collaborators the routes need. Ledger and Publisher may be
// nil.
type Deps struct {
	Auth      *services.AuthService
	Sessions  session.Provider
	Optimizer *optimizer.Client
	Ledger    *services.RunLedger
	Publisher *services.SignalPublisher
}

func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	maxUpload := int64(cfg.Server.MaxUploadMB) << 20
	router.MaxMultipartMemory = maxUpload

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "UP",
			"message":       "OptiFlow API is running",
			"mock_fallback": d.Optimizer.MockFallback(),
			"run_history":   d.Ledger.Enabled(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	proxy := NewProxyHandler(d.Optimizer, maxUpload)
	sessions := NewSessionHandler(d.Auth, d.Sessions, d.Optimizer, d.Ledger, d.Publisher, maxUpload)
	runs := NewRunHandler(d.Ledger)
	inflight := middleware.NewInFlight()

	api := router.Group("/api")
	api.POST("/optimize-traffic", proxy.OptimizeTraffic)
	api.POST("/optimize-traffic/:sub", proxy.NotImplemented)
	api.POST("/session", sessions.Create)

	authed := api.Group("", middleware.SessionAuth(d.Auth))
	authed.GET("/runs", runs.ListRuns)

	s := authed.Group("/session")
	s.POST("/upload", inflight.Guard(), sessions.Upload)
	s.POST("/optimize", inflight.Guard(), sessions.Optimize)
	s.POST("/predict", inflight.Guard(), sessions.Predict)
	s.GET("/records", sessions.Records)
	s.DELETE("/records", sessions.Clear)
	s.GET("/predicted", sessions.Predicted)
	s.GET("/predicted/download", sessions.DownloadPredicted)
	s.GET("/radar", sessions.Radar)
	s.GET("/summary", sessions.Summary)
	s.GET("/download", sessions.Download)
	s.GET("/changes", sessions.Changes)

	router.GET("/ws/session", SessionWebSocket(d.Sessions, d.Auth))

	return router
}
