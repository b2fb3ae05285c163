package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/app"
	"github.com/xxxsen/eacrag/internal/config"
	"github.com/xxxsen/eacrag/internal/handler"
	"github.com/xxxsen/eacrag/internal/job"
	"github.com/xxxsen/eacrag/internal/middleware"
	"github.com/xxxsen/eacrag/internal/schedule"
)

func main() {
	var configPath string
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "eacrag",
		Short: "EAC question answering service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "rebuild the knowledge base once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			return runRefresh(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(runCmd, refreshCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath, envFile string) (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_index", cfg.VectorIndex.Type),
		zap.String("index_name", cfg.VectorIndex.Name),
		zap.Strings("source_urls", cfg.Scraper.URLs),
	)

	state := app.NewState()
	runner := schedule.NewRunner(ctx)
	refreshJob := job.NewRefreshJob(state)

	var scheduler *schedule.CronScheduler
	if cfg.RefreshCron != "" {
		scheduler = schedule.NewCronScheduler()
		if err := scheduler.ValidateSpec(cfg.RefreshCron); err != nil {
			return err
		}
		if err := scheduler.AddJob(runner.Tracked(refreshJob), cfg.RefreshCron); err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
	}

	deps := handler.RouterDeps{
		Chat:          handler.NewChatHandler(state, runner, refreshJob),
		Health:        handler.NewHealthHandler(state, runner),
		RefreshWindow: time.Duration(cfg.RefreshRateLimitSeconds) * time.Second,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	// The server answers 503 until the engine is ready.
	state.Initialize(ctx, func(ctx context.Context) (*app.Engine, error) {
		return app.NewEngine(ctx, cfg)
	})
	if scheduler != nil {
		scheduler.Start(ctx)
		defer scheduler.Stop()
		if next, ok := scheduler.Next(refreshJob.Name()); ok {
			logutil.GetLogger(ctx).Info("next scheduled refresh", zap.Time("at", next))
		}
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	runner.Wait()
	return nil
}

func runRefresh(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.NewEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	report, buildErr := engine.Knowledge.Build(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	return buildErr
}
