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

	"github.com/redis/go-redis/v9"

	"github.com/reviewhub/code-review-agent/internal/application"
	"github.com/reviewhub/code-review-agent/internal/application/analysis"
	apptasks "github.com/reviewhub/code-review-agent/internal/application/tasks"
	"github.com/reviewhub/code-review-agent/internal/application/webhook"
	"github.com/reviewhub/code-review-agent/internal/config"
	domain "github.com/reviewhub/code-review-agent/internal/domain/tasks"
	openaicli "github.com/reviewhub/code-review-agent/internal/infra/ai/openai"
	mysqlp "github.com/reviewhub/code-review-agent/internal/infra/db/mysql"
	postgresp "github.com/reviewhub/code-review-agent/internal/infra/db/postgres"
	githubp "github.com/reviewhub/code-review-agent/internal/infra/github"
	"github.com/reviewhub/code-review-agent/internal/infra/httpserver"
	"github.com/reviewhub/code-review-agent/internal/infra/queue"
	minioStore "github.com/reviewhub/code-review-agent/internal/infra/storage"
	"github.com/reviewhub/code-review-agent/internal/infra/store"
	"github.com/reviewhub/code-review-agent/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	checkers := map[string]middleware.HealthChecker{}

	// redis backs both the queue and the task store by default
	var rdb *redis.Client
	if cfg.Queue.Driver == "redis" || cfg.Store.Driver == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis connect error: %v", err)
		}
		defer rdb.Close()
		checkers["redis"] = middleware.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// task store
	var taskStore domain.Store
	if cfg.Store.Driver == "memory" {
		mem := store.NewMemory(cfg.Retention())
		go mem.RunJanitor(ctx, time.Minute)
		taskStore = mem
	} else {
		taskStore = store.NewRedis(rdb, cfg.Retention())
	}

	// task queue
	var taskQueue domain.Queue
	if cfg.Queue.Driver == "memory" {
		taskQueue = queue.NewMemory(0)
	} else {
		rq := queue.NewRedis(rdb)
		if n, err := rq.Recover(ctx); err != nil {
			log.Printf("queue recover error: %v", err)
		} else if n > 0 {
			log.Printf("queue recovered %d unacked tasks", n)
		}
		taskQueue = rq
	}

	// optional archive database
	var archive domain.Archive
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		archive = mysqlp.NewTaskRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		archive = postgresp.NewTaskRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// optional report object storage
	var reports domain.ReportStore
	if cfg.Minio.Enabled {
		ms, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		reports = ms
	}

	// analysis engine; without an API key every task takes the rule path
	engine := &analysis.Engine{}
	if cfg.OpenAI.APIKey != "" {
		engine.AI = openaicli.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if cfg.OpenAI.TimeoutSeconds > 0 {
			engine.AITimeout = time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second
		}
	} else {
		log.Printf("no openai key configured, running rule-based analysis only")
	}

	svc := &apptasks.Service{
		Store:    taskStore,
		Queue:    taskQueue,
		Provider: githubp.NewProvider(cfg.GitHub.Token),
		Engine:   engine,
		Clock:    application.SystemClock{},
		Archive:  archive,
		Reports:  reports,
		Retry: &apptasks.RetryPolicy{
			MaxAttempts: cfg.Worker.MaxAttempts,
			BaseBackoff: cfg.BaseBackoff(),
			MaxBackoff:  cfg.MaxBackoff(),
		},
		TaskTimeout: cfg.TaskTimeout(),

		OnSubmitted: middleware.IncrementTasksSubmitted,
		OnSucceeded: middleware.IncrementTasksSucceeded,
		OnFailed:    middleware.IncrementTasksFailed,
		OnRetry:     middleware.IncrementTaskRetries,
	}

	go svc.RunWorkers(ctx, cfg.Worker.Count)
	log.Printf("started %d analysis workers", cfg.Worker.Count)

	hooks := webhook.NewService(cfg.Webhook.Secret)
	handler := httpserver.NewRouter(svc, hooks, middleware.HealthHandler(checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	stopWorkers()
	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
