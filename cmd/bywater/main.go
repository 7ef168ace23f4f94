package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seahollis/bywater/internal/database"
	"github.com/seahollis/bywater/internal/logging"
	"github.com/seahollis/bywater/internal/server"
)

func main() {
	port := os.Getenv("BYWATER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BYWATER_DB_PATH")
	if dbPath == "" {
		dbPath = "bywater.db"
	}

	logger := logging.Setup(os.Getenv("BYWATER_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cfg := server.Config{
		CronToken:       os.Getenv("BYWATER_CRON_TOKEN"),
		VAPIDPublicKey:  os.Getenv("BYWATER_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("BYWATER_VAPID_PRIVATE_KEY"),
		PostmarkToken:   os.Getenv("BYWATER_POSTMARK_TOKEN"),
		FromEmail:       os.Getenv("BYWATER_FROM_EMAIL"),
	}

	srv := server.New(db, cfg, logger)

	// Built-in minute tick. An external scheduler hitting
	// POST /api/notifications/check can take over; set
	// BYWATER_DISPATCH_DISABLED=1 to silence the internal one.
	var sched *cron.Cron
	if os.Getenv("BYWATER_DISPATCH_DISABLED") == "" {
		sched = cron.New()
		_, err := sched.AddFunc("* * * * *", func() {
			summary, err := srv.Dispatcher().Run(time.Now().UTC())
			if err != nil {
				logger.Error("reminder dispatch failed", "error", err)
				return
			}
			if summary.RemindersSent > 0 {
				logger.Info("reminder dispatch complete", "sent", summary.RemindersSent)
			}
		})
		if err != nil {
			log.Fatalf("failed to schedule dispatch: %v", err)
		}
		sched.Start()
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Bywater running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	if sched != nil {
		sched.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
