package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"damagereport-be/config"
	"damagereport-be/jobs"
	"damagereport-be/openrouter"
	"damagereport-be/repositories"
	"damagereport-be/routes"
	"damagereport-be/services"
	"damagereport-be/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDB(ctx, settings)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()
	if err := repositories.EnsureIndexes(ctx, db); err != nil {
		log.Printf("Index creation warnings: %v", err)
	}

	rdb, err := config.ConnectRedis(ctx, settings)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	disk, err := storage.Open(ctx, storage.Options{
		Disk:      settings.FilesystemDisk,
		Root:      settings.StorageRoot,
		GCSBucket: settings.GCSBucket,
	})
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", settings.FilesystemDisk, err)
	}

	vision, err := openrouter.New(openrouter.Config{
		APIKey:  settings.OpenRouterAPIKey,
		BaseURL: settings.OpenRouterBaseURL,
		Model:   settings.OpenRouterModel,
	}, disk)
	if err != nil {
		log.Fatalf("Failed to configure vision client: %v", err)
	}

	reportRepo := repositories.NewReportRepository(db)
	queue := jobs.NewQueue(rdb, settings.QueueName)
	worker := jobs.NewWorker(queue, jobs.NewAnalyzeReportJob(reportRepo, vision), jobs.DefaultRetryPolicy)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(ctx); err != nil {
			log.Printf("Worker exited: %v", err)
		}
	}()

	users := repositories.NewUserRepository(db)
	if settings.SupervisorEmail != "" {
		supervisor, err := services.SeedSupervisor(ctx, users, settings.SupervisorName, settings.SupervisorEmail, settings.SupervisorPassword, time.Now().UTC())
		if err != nil {
			log.Fatalf("Failed to provision supervisor: %v", err)
		}
		log.Printf("Supervisor account %s ready", supervisor.Email)
	}

	router := routes.NewRouter(routes.Dependencies{
		Settings: settings,
		Users:    users,
		Reports:  services.NewReportService(reportRepo, disk, queue),
		Redis:    rdb,
	})

	srv := &http.Server{Addr: ":" + settings.Port, Handler: router}
	go func() {
		log.Printf("Listening on :%s (model %s)", settings.Port, vision.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	<-workerDone
}
