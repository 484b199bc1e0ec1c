// Package main starts the stub JEEPedia API server used for local
// development of the terminal client.
package main

import (
	"cmp"
	"fmt"
	"os"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/certgen"
	"github.com/jeepedia/jeepedia/internal/config"
	"github.com/jeepedia/jeepedia/internal/logger"
	"github.com/jeepedia/jeepedia/internal/middleware"
	"github.com/jeepedia/jeepedia/internal/repository"
	"github.com/jeepedia/jeepedia/internal/server/handler/http"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(cmp.Or(options.LogLevel, "info")); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	backend := repository.NewMemoryBackend()
	tokens := middleware.NewTokens(options.JWTSecret, options.TokenTTL)

	router := http.NewRouter(http.Handlers{
		Auth:      &http.AuthHandler{Users: backend, Tokens: tokens, Log: zapLogger},
		Community: &http.CommunityHandler{Posts: backend, Log: zapLogger},
		Feedback:  &http.FeedbackHandler{Feedback: backend, Log: zapLogger},
		Payments:  &http.PaymentHandler{Payments: backend, Secret: options.PaymentSecret, Log: zapLogger},
		Predictor: &http.PredictorHandler{Subscriptions: backend, Log: zapLogger},
		Media:     backend,
	}, tokens, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if options.TLSDir != "" {
		paths, err := certgen.Ensure(options.TLSDir)
		if err != nil {
			zapLogger.Fatal("failed to prepare TLS certificates", zap.Error(err))
		}
		zapLogger.Info("starting stub API server over HTTPS",
			zap.String("addr", options.Port),
			zap.String("ca", paths.CACert),
		)
		if err := server.ListenAndServeTLS(paths.ServerCert, paths.ServerKey); err != nil {
			zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
		}
		return
	}

	zapLogger.Info("starting stub API server", zap.String("addr", options.Port))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
