package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albinfrick/habbit-service/internal/auth"
	authrepo "github.com/albinfrick/habbit-service/internal/auth/repo"
	habitrepo "github.com/albinfrick/habbit-service/internal/habit/repo"
	"github.com/albinfrick/habbit-service/internal/push"
	pushrepo "github.com/albinfrick/habbit-service/internal/push/repo"
	"github.com/albinfrick/habbit-service/internal/router"
	"github.com/albinfrick/habbit-service/pkg/database"
	"github.com/albinfrick/habbit-service/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting habbit-service")

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// ensure tables exist; users first, habits before completions (FK)
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSetup()
	for _, ensure := range []func(context.Context) error{
		authrepo.NewUserRepo(db).EnsureTable,
		habitrepo.NewHabitRepo(db).EnsureTable,
		habitrepo.NewCompletionRepo(db).EnsureTable,
		pushrepo.NewSubscriptionRepo(db).EnsureTable,
	} {
		if err := ensure(setupCtx); err != nil {
			sugar.Fatalf("ensure tables: %v", err)
		}
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}

	handler := router.RegisterRoutes(router.Deps{
		Logger:        sugar,
		DB:            db,
		AuthConfig:    auth.ConfigFromEnv(),
		PushTransport: push.TransportConfigFromEnv(),
	})
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// run server in background
	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
