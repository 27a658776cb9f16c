package api

import (
	"os"
	"path/filepath"
	"time"

	"room-advisor/docs"
	"room-advisor/internal/api/handlers"
	"room-advisor/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	StaticDir    string
	SessionTTL   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func SetupRouter(advisorHandler *handlers.AdvisorHandler, cfg RouterConfig, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept," + middleware.SessionHeader,
		ExposeHeaders: middleware.SessionHeader + ",Content-Disposition",
	}))
	app.Use(logger.New())

	// Importing docs registers the swagger spec in its init().
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	webStaticPath := cfg.StaticDir
	if webStaticPath == "" || !fileExists(filepath.Join(webStaticPath, "index.html")) {
		webStaticPath = findWebStaticPath(appLogger)
	}

	// Static files (web interface)
	if webStaticPath != "" {
		appLogger.Info("Serving static files", zap.String("path", webStaticPath))
		app.Static("/static", webStaticPath)
	} else {
		appLogger.Warn("Web static directory not found, static files will not be served")
	}

	app.Get("/", func(c *fiber.Ctx) error {
		if webStaticPath == "" {
			return c.Status(fiber.StatusNotFound).SendString("Web interface not found. Please ensure web/static/index.html exists.")
		}
		return c.SendFile(filepath.Join(webStaticPath, "index.html"))
	})

	api := app.Group("/api/v1", middleware.SessionMiddleware(cfg.SessionTTL, appLogger))

	api.Post("/recommendations", advisorHandler.Recommend)
	api.Get("/recommendations", advisorHandler.Current)
	api.Post("/leads", advisorHandler.SubmitLead)
	api.Get("/leads/count", advisorHandler.LeadCount)
	api.Get("/export", advisorHandler.Export)

	return app
}

// findWebStaticPath finds the path to web/static directory
func findWebStaticPath(logger *zap.Logger) string {
	cwd, _ := os.Getwd()

	paths := []string{
		"./web/static",
		"../web/static",
		"../../web/static",
		"../../../web/static",
	}

	for _, path := range paths {
		if fileExists(filepath.Join(path, "index.html")) {
			logger.Info("Found web static path", zap.String("path", path), zap.String("cwd", cwd))
			return path
		}
	}

	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
