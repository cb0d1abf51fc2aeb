package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/case-framework/survey-engine/pkg/apihelpers"
	"github.com/case-framework/survey-engine/pkg/survey/session"
	"github.com/case-framework/survey-engine/pkg/utils"
	"github.com/case-framework/survey-engine/services/survey-api/apihandlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const DEFAULT_EVICTION_INTERVAL = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evictionInterval := utils.ParseDurationOrDefault(conf.SurveyConfig.EvictionInterval, DEFAULT_EVICTION_INTERVAL)
	registryDone := make(chan struct{})
	go func() {
		registry.Run(ctx, evictionInterval)
		close(registryDone)
	}()

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Language", "Api-Key"},
		ExposeHeaders:    []string{"Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		registry,
		repository,
		statsAggregator,
		conf.SurveyConfig.DefaultLanguage,
	)
	v1APIHandlers.AddLanguageAPI(v1Root)
	v1APIHandlers.AddSurveySessionAPI(v1Root)
	v1APIHandlers.AddSurveyStatsAPI(v1Root, conf.SurveyConfig.StatsAPIKeys)

	if conf.GinConfig.DebugMode {
		if err := apihelpers.WriteRoutesToFile(router, "survey-api-routes.txt"); err != nil {
			slog.Error("Error writing routes file", slog.String("error", err.Error()))
		}
	}

	server := &http.Server{
		Addr:    ":" + conf.GinConfig.Port,
		Handler: router,
	}

	if conf.GinConfig.MTLS.Use {
		// Create tls config for mutual TLS
		tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
		if err != nil {
			slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
			return
		}
		server.TLSConfig = tlsConfig
	}

	// Start the server
	go func() {
		slog.Info("Starting Survey API", slog.String("port", conf.GinConfig.Port), slog.Bool("mtls", conf.GinConfig.MTLS.Use))
		var err error
		if conf.GinConfig.MTLS.Use {
			err = server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Exited Survey API", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down Survey API")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), session.DEFAULT_SAVE_TIMEOUT)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down server", slog.String("error", err.Error()))
	}

	// pending answers are written by the registry on shutdown
	<-registryDone
	closeConnections()
}

func closeConnections() {
	if definitionCache != nil {
		if err := definitionCache.Close(); err != nil {
			slog.Error("Error closing Redis connection", slog.String("error", err.Error()))
		}
	}
	if documentDBService != nil {
		if err := documentDBService.Close(); err != nil {
			slog.Error("Error closing Survey DB connection", slog.String("error", err.Error()))
		}
	}
}
