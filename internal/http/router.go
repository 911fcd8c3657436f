package http

import (
	"log/slog"

	"github.com/geocoder89/taxdesk/internal/auth"
	"github.com/geocoder89/taxdesk/internal/config"
	"github.com/geocoder89/taxdesk/internal/http/handlers"
	"github.com/geocoder89/taxdesk/internal/http/middlewares"
	"github.com/geocoder89/taxdesk/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxJSONBodyBytes = 1 << 20

// Deps is everything the router wires into handlers. Concrete stores are
// built in main so tests can swap any of them.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	JWT      *auth.Manager
	Users    handlers.UserStore
	Profiles handlers.ProfileCache

	Ingester handlers.Ingester
	Records  handlers.RecordLister

	Report   handlers.Forwarder
	AIReport handlers.Forwarder
	Chat     handlers.ChatAsker

	DB         handlers.Pinger
	Extraction handlers.PoolStatsSource
	// Draining reports whether the process has begun shutting down.
	Draining func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.Config.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))

	// health
	h := handlers.NewHealthHandler(d.DB, d.Extraction, d.Draining)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// pages
	gate := middlewares.NewSessionGate(d.JWT, middlewares.SessionGateConfig{
		AuthPage:     "/authentication",
		LandingPage:  "/dashboard",
		SecureCookie: d.Config.IsProd(),
	})
	pagesHandler := handlers.NewPagesHandler(d.Config.WebRoot)

	pages := r.Group("/", gate.Handler())
	pages.GET("/authentication", pagesHandler.Serve("authentication"))
	pages.GET("/dashboard", pagesHandler.Serve("dashboard"))
	pages.GET("/dashboard/*path", pagesHandler.Serve("dashboard"))

	// api
	authMiddleware := middlewares.NewAuthMiddleware(d.JWT)
	requireAuth := authMiddleware.RequireAuth()

	authLimiter := middlewares.NewRateLimiter(d.Config.AuthRateLimit, d.Config.AuthRateWindow)
	limited := authLimiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authHandler := handlers.NewAuthHandler(d.Users, d.Profiles, d.JWT, d.Config, d.Log)
	documentsHandler := handlers.NewDocumentsHandler(d.Ingester, d.Records, d.Log)
	reportsHandler := handlers.NewReportsHandler(d.Report, d.AIReport, d.Chat, d.Log)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.GET("/getUser", requireAuth, authHandler.GetUser)

	authJSON := api.Group("/auth", middlewares.MaxBodyBytes(maxJSONBodyBytes), middlewares.RequireJSON())
	authJSON.POST("/register", limited, authHandler.Register)
	authJSON.POST("/login", limited, authHandler.Login)
	authJSON.PUT("/updateProfile", requireAuth, authHandler.UpdateProfile)

	upload := middlewares.MaxBodyBytes(d.Config.MaxUploadBytes)
	api.POST("/billandExpense", requireAuth, upload, documentsHandler.Upload("bills"))
	api.POST("/salaryOCR", requireAuth, upload, documentsHandler.Upload("salary"))
	api.GET("/extractedData", requireAuth, documentsHandler.ListExtractedData)

	proxies := api.Group("", middlewares.MaxBodyBytes(maxJSONBodyBytes), middlewares.RequireJSON())
	proxies.POST("/generate-report", reportsHandler.GenerateReport)
	proxies.POST("/aiReport", reportsHandler.AIReport)
	proxies.POST("/chat", reportsHandler.Chat)

	return r
}
