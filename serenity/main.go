package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"serenity/serenity/config"
	"serenity/serenity/controllers"
	"serenity/serenity/events"
	"serenity/serenity/pipeline"
	"serenity/serenity/routes"
	"serenity/serenity/services/llm"
	"serenity/serenity/sources/psql"
	"serenity/serenity/sources/psql/dao"
	"serenity/serenity/sources/storage"
	"serenity/serenity/utils/logging"
)

func main() {
	godotenv.Load()
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.AppLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	chatDAO := dao.NewChatDAO(db.DB)
	memoryDAO := dao.NewMemoryDAO(db.DB)
	activityDAO := dao.NewActivityDAO(db.DB)
	analysisDAO := dao.NewAnalysisDAO(db.DB)

	// Object storage is optional; without it reports only live in the
	// database.
	var archive *storage.ReportArchive
	if cfg.MinIOEndpoint != "" {
		archive, err = storage.NewReportArchive(cfg)
		if err != nil {
			logging.AppLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logging.AppLogger.Error("gemini client error", zap.Error(err))
		os.Exit(1)
	}

	pipe := pipeline.New(gemini, logging.AppLogger,
		pipeline.WithAnalysisStore(controllers.NewAnalysisRecorder(analysisDAO, archive)),
		pipeline.WithRecommendationStore(controllers.NewRecommendationRecorder(analysisDAO)),
	)

	dispatcher := events.NewDispatcher(logging.AppLogger,
		cfg.DispatcherWorkers, cfg.DispatcherMaxRetries, cfg.DispatcherBackoff)
	controllers.RegisterPipelineHandlers(dispatcher, pipe)
	defer dispatcher.Close()

	chatCtrl := controllers.NewChatController(chatDAO, memoryDAO, pipe, dispatcher, cfg.SystemPrompt)
	activityCtrl := controllers.NewActivityController(activityDAO, analysisDAO, dispatcher)
	healthCtrl := controllers.NewHealthController(func() error {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/", routes.HealthRoutes(healthCtrl))
	r.Mount("/chat", routes.ChatRoutes(chatCtrl))
	r.Mount("/activities", routes.ActivityRoutes(activityCtrl))
	r.Mount("/mood", routes.MoodRoutes(activityCtrl))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.AppLogger.Error("server listen error", zap.Error(err))
		}
	}()
	logging.AppLogger.Info("server started", zap.String("addr", cfg.HTTPAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.AppLogger.Error("server shutdown error", zap.Error(err))
	}
	dispatcher.Drain()
	logging.AppLogger.Info("server shutdown complete")
}
