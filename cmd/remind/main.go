// Command remind runs one scheduled reminder pass and exits. An external
// cron invokes it on an interval; the engine itself holds no timer.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	habitrepo "github.com/albinfrick/habbit-service/internal/habit/repo"
	"github.com/albinfrick/habbit-service/internal/push"
	pushrepo "github.com/albinfrick/habbit-service/internal/push/repo"
	"github.com/albinfrick/habbit-service/internal/reminder"
	"github.com/albinfrick/habbit-service/pkg/database"
	"github.com/albinfrick/habbit-service/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting habit reminder check")

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	habitRepo := habitrepo.NewHabitRepo(db)
	completionRepo := habitrepo.NewCompletionRepo(db)
	subRepo := pushrepo.NewSubscriptionRepo(db)
	dispatcher := push.NewDispatcher(subRepo, push.NewWebPushTransport(push.TransportConfigFromEnv()), sugar)
	svc := reminder.NewService(habitRepo, completionRepo, subRepo, dispatcher, sugar)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// scheduled path: only habits whose reminder time matches now
	res, err := svc.RunPass(ctx, false)
	if err != nil {
		sugar.Errorw("reminder pass failed", "err", err, "partial_outcomes", len(res.Outcomes))
		os.Exit(1)
	}

	sent := 0
	for _, o := range res.Outcomes {
		if o.Sent {
			sent++
		}
	}
	sugar.Infow("habit reminder check completed",
		"date", res.Today,
		"time", res.Time,
		"habits", len(res.Outcomes),
		"sent", sent,
	)
}
