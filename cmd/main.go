package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/echodraft/echodraft-backend/internal/clients/gate"
	redisclient "github.com/echodraft/echodraft-backend/internal/clients/redis"
	"github.com/echodraft/echodraft-backend/internal/data/db"
	"github.com/echodraft/echodraft-backend/internal/data/repos"
	"github.com/echodraft/echodraft-backend/internal/handlers"
	"github.com/echodraft/echodraft-backend/internal/jobs/pipeline/style_learning"
	"github.com/echodraft/echodraft-backend/internal/jobs/runtime"
	"github.com/echodraft/echodraft-backend/internal/jobs/worker"
	"github.com/echodraft/echodraft-backend/internal/platform/envutil"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
	"github.com/echodraft/echodraft-backend/internal/server"
	"github.com/echodraft/echodraft-backend/internal/services"
	"github.com/echodraft/echodraft-backend/internal/style"
)

func main() {
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := db.AutoMigrateAll(postgresService.DB()); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Learning thresholds
	cfg, err := style.LoadConfig(envutil.String("LEARNING_CONFIG_PATH", ""))
	if err != nil {
		log.Warn("Learning config load failed, using defaults", "error", err)
	}

	// Redis (optional): gates, cache invalidation and job events degrade to
	// in-process equivalents without it.
	var (
		g      gate.Gate
		cache  redisclient.ProfileCache
		notify services.JobNotifier
	)
	if rdb, rErr := redisclient.NewClient(log); rErr != nil {
		log.Warn("Redis unavailable, using in-process gates", "error", rErr)
		g = gate.NewMemoryGate()
		cache = redisclient.NewNoopProfileCache()
		notify = services.NewNoopJobNotifier()
	} else {
		g, err = gate.NewRedisGate(rdb, log)
		if err != nil {
			log.Fatal("Redis gate init failed", "error", err)
		}
		cache, err = redisclient.NewProfileCache(rdb, log)
		if err != nil {
			log.Fatal("Profile cache init failed", "error", err)
		}
		notify = services.NewRedisJobNotifier(rdb, log)
	}
	learningGate := gate.NewLearningGate(g,
		envutil.Duration("RATE_LIMIT_MS", 5*time.Minute),
		envutil.Duration("BATCH_WINDOW_MS", 2*time.Minute),
	)

	// Repos
	contentRepo := repos.NewContentRepo(thePG, log)
	editRepo := repos.NewEditMetadataRepo(thePG, log)
	profileRepo := repos.NewStyleProfileRepo(thePG, log)
	versionRepo := repos.NewProfileVersionRepo(thePG, log)
	jobRepo := repos.NewLearningJobRepo(thePG, log)
	deadLetterRepo := repos.NewDeadLetterRepo(thePG, log)

	// Services
	extractor := style.NewExtractor(log, nil)
	editService := services.NewEditService(thePG, log, extractor, contentRepo, editRepo,
		envutil.Int("MAX_EDIT_METADATA_PER_USER", 50))
	learningService := services.NewLearningService(thePG, log, cfg,
		profileRepo, editRepo, versionRepo, learningGate, cache)
	profileService := services.NewProfileService(thePG, log, profileRepo, versionRepo, cache)
	jobService := services.NewJobService(thePG, log, jobRepo, deadLetterRepo, notify, learningGate)

	// Worker
	registry := runtime.NewRegistry()
	if err := registry.Register(style_learning.New(thePG, log, contentRepo, learningService)); err != nil {
		log.Fatal("Handler registration failed", "error", err)
	}
	jobWorker := worker.NewWorker(thePG, log, jobRepo, deadLetterRepo, registry, notify)

	// Router
	router := server.NewRouter(server.RouterConfig{
		EditsHandler:   handlers.NewEditsHandler(editService, jobService),
		ProfileHandler: handlers.NewProfileHandler(profileService, learningService),
		JobsHandler:    handlers.NewJobsHandler(jobService),
		AllowOrigins:   splitOrigins(envutil.String("CORS_ALLOW_ORIGINS", "")),
	})

	port := envutil.String("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobWorker.Start(ctx)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-grpCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := grp.Wait(); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
