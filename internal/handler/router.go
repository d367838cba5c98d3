package handler

import (
	"log/slog"
	"net/http"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/config"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/handler/middleware"
	"github.com/gin-gonic/gin"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// NewEngine builds the gin engine serving both the HTTP server and the
// lambda adapter.
func NewEngine(cfg config.Config, logger *slog.Logger, h *Handler) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	NewRouter(engine, cfg, logger, h)
	return engine
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, h *Handler) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, h)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS, logger))
	engine.Use(middleware.Logging(logger))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h *Handler) {
	routes := []route{
		{Method: http.MethodPost, Path: "/generate", Handler: h.Generate},
		{Method: http.MethodPost, Path: "/generate/choose", Handler: h.Choose},
		{Method: http.MethodGet, Path: "/health", Handler: h.Health},
		{Method: http.MethodGet, Path: "/renders", Handler: h.Gallery},
		{Method: http.MethodGet, Path: "/renders/feed", Handler: h.Feed},
	}
	// The kiosk front end calls the same routes under /api.
	addRoutes(&engine.RouterGroup, routes)
	addRoutes(engine.Group("/api"), routes)
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, r.Handler)
		case http.MethodPost:
			g.POST(r.Path, r.Handler)
		default:
			g.Handle(r.Method, r.Path, r.Handler)
		}
	}
}
