package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sightwords/internal/progress"
	"sightwords/internal/speech"
	"sightwords/internal/wordlist"
)

func main() {
	_ = godotenv.Load()
	configureLogger()

	cfg := loadConfig()
	logInfo("Starting sight word drill in %s mode", map[bool]string{true: "production", false: "development"}[cfg.IsProduction])

	words, fallback, err := wordlist.LoadOrDefault(cfg.WordsFile)
	if err != nil {
		logFatal("Failed to load words from %s: %v", cfg.WordsFile, err)
	}
	if fallback {
		logInfo("No word file at %s, using the built-in list", cfg.WordsFile)
	}
	logInfo("Loaded %d words", len(words))

	app := newApp(cfg, words)

	app.Speech, err = speech.NewProvider(cfg.Speech)
	if err != nil {
		logFatal("Failed to set up speech backend %q: %v", cfg.Speech.Backend, err)
	}
	if app.Speech != nil {
		if err := app.Speech.IsAvailable(); err != nil {
			logWarn("Speech backend %s is not available yet: %v", app.Speech.Name(), err)
		}
	}
	logInfo("Speech backend: %s", app.speechMode())
	app.warnUnspeakable(words)

	if cfg.ProgressDB != "" {
		store, err := progress.Open(cfg.ProgressDB)
		if err != nil {
			logFatal("Failed to open progress database %s: %v", cfg.ProgressDB, err)
		}
		defer store.Close()
		app.Progress = store
		logInfo("Recording attempts to %s", cfg.ProgressDB)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WatchWords && !fallback {
		if err := wordlist.Watch(ctx, cfg.WordsFile, app.reloadWords); err != nil {
			logWarn("Word list hot reload disabled: %v", err)
		}
	}
	go app.sessionCleanupLoop(ctx)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := app.setupRouter()
	app.startServer(ctx, router)
}

// setupRouter wires middleware, templates, static assets and routes.
func (app *App) setupRouter() *gin.Engine {
	router := gin.Default()

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif", ".mp3"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts", "/static/audio", "/audio"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(requestIDMiddleware())
	router.Use(app.cacheHeadersMiddleware())

	router.SetFuncMap(template.FuncMap{
		"audioURL": audioURL,
	})
	if app.IsProduction && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		router.LoadHTMLGlob("dist/templates/*.html")
		router.Static("/static", "./dist/static")
	} else {
		logInfo("Serving development assets from source directories")
		router.LoadHTMLGlob("templates/*.html")
		router.Static("/static", "./static")
	}

	limited := app.rateLimitMiddleware()
	router.GET(RouteHome, app.homeHandler)
	router.POST(RouteCorrect, limited, app.correctHandler)
	router.POST(RouteIncorrect, limited, app.incorrectHandler)
	router.POST(RouteRepeat, limited, app.repeatHandler)
	router.GET(RouteNewDrill, app.newDrillHandler)
	router.POST(RouteNewDrill, limited, app.newDrillHandler)
	router.POST(RouteRestart, limited, app.restartHandler)
	router.GET(RouteDrillState, app.drillStateHandler)
	router.GET(RouteWords, app.wordsHandler)
	router.GET(RouteAudio, limited, app.audioHandler)
	router.GET(RouteStats, app.statsHandler)
	router.GET(RouteHealthz, app.healthzHandler)

	return router
}

// startServer serves until ctx is cancelled, then shuts down gracefully.
func (app *App) startServer(ctx context.Context, router *gin.Engine) {
	srv := &http.Server{
		Addr:              ":" + app.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		logInfo("Shutdown signal received, shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", app.Port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logError("Server failed to start: %v", err)
		os.Exit(1)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}
