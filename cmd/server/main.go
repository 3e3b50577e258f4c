package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manion_server/internal/api"
	"manion_server/internal/app/service"
	"manion_server/internal/app/worker"
	"manion_server/internal/common"
	"manion_server/internal/common/security"
	"manion_server/internal/domain/repository"
	"manion_server/internal/platform/config"
	"manion_server/internal/platform/database"
	"manion_server/internal/platform/queue"
	"manion_server/internal/platform/storage"
)

func main() {
	// 1. Load Configuration
	config.Load()
	common.InitLogger(config.AppConfig.LogLevel)
	slog.Info("configuration loaded")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	slog.Info("database connected")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	slog.Info("redis connected")

	// 5. Initialize Object Storage
	objectStore, err := storage.NewMinioStore(
		config.AppConfig.StorageEndpoint,
		config.AppConfig.StorageAccessKey,
		config.AppConfig.StorageSecretKey,
		config.AppConfig.StorageBucket,
		config.AppConfig.StorageUseSSL,
	)
	if err != nil {
		slog.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}
	slog.Info("object storage ready", "bucket", config.AppConfig.StorageBucket)

	// 6. Initialize Repositories & Locks
	userRepo := repository.NewPgUserRepository(database.DB)
	kvStore := repository.NewPgKVStore(database.DB)
	keyLock := queue.NewKeyLock(queue.RDB, config.AppConfig.KeyLockTTL)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo)
	renderJobService := service.NewRenderJobService(kvStore, queue.RDB, config.AppConfig.RenderQueueName)
	problemService := service.NewProblemService(kvStore, objectStore, keyLock, renderJobService)
	communityService := service.NewCommunityService(kvStore, keyLock)
	evaluationService := service.NewEvaluationService(kvStore, keyLock)
	historyService := service.NewHistoryService(kvStore, objectStore, keyLock)
	adminService := service.NewAdminService(kvStore, objectStore, keyLock)

	if err := authService.SeedAdmin(context.Background()); err != nil {
		slog.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}

	// 8. Initialize Render Worker (as a goroutine)
	renderWorker := worker.NewRenderWorker(
		queue.RDB,
		kvStore,
		keyLock,
		config.AppConfig.RenderQueueName,
		config.AppConfig.RenderDelay,
		config.AppConfig.RenderMaxAttempts,
	)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go renderWorker.Start(workerCtx)

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, communityService, evaluationService, historyService, adminService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", config.AppConfig.APIPort, "base_path", config.AppConfig.BasePath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("shutting down server")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server and worker stopped")
}
