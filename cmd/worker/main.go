package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campusportal/internal/config"
	"campusportal/internal/metrics"
	"campusportal/internal/queue"
	"campusportal/internal/reconcile"
	"campusportal/internal/roster"
	"campusportal/internal/store"
)

// Worker consumes queued attendance submissions and persists them.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "portal:submissions")
	}

	repo := roster.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for submissions...")
	for msg := range messages {
		if msg.Type != "attendance" {
			continue
		}

		var sub reconcile.Submission
		if err := json.Unmarshal(msg.Body, &sub); err != nil {
			log.Printf("drop malformed submission: %v", err)
			metrics.SubmissionsPersisted.WithLabelValues("malformed").Inc()
			continue
		}

		if err := repo.SaveSheet(ctx, sub); err != nil {
			log.Printf("persist sheet %s/%s period %d failed: %v", sub.Date, sub.ClassRoom, sub.Period, err)
			metrics.SubmissionsPersisted.WithLabelValues("failed").Inc()
			continue
		}
		metrics.SubmissionsPersisted.WithLabelValues("ok").Inc()
		log.Printf("persisted sheet %s %s-%s period %d (%d absent)", sub.Date, sub.Department, sub.ClassRoom, sub.Period, len(sub.AbsentRollNos))
	}

	log.Println("worker stopped")
}
