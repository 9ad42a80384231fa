package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mpan/internal/config"
	"github.com/xxxsen/mpan/internal/db"
	"github.com/xxxsen/mpan/internal/handler"
	"github.com/xxxsen/mpan/internal/job"
	"github.com/xxxsen/mpan/internal/middleware"
	"github.com/xxxsen/mpan/internal/oss"
	"github.com/xxxsen/mpan/internal/pkg/sharetoken"
	"github.com/xxxsen/mpan/internal/repo"
	"github.com/xxxsen/mpan/internal/schedule"
	"github.com/xxxsen/mpan/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mpan",
		Short: "mpan link-sharing server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mpan server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("timezone", cfg.Timezone),
		zap.Int("oss_mounts", len(cfg.OssMounts)),
	)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	userRepo := repo.NewUserRepo(conn)
	fileRepo := repo.NewFileRepo(conn)
	shareRepo := repo.NewShareRepo(conn)
	settingRepo := repo.NewSettingRepo(conn)

	bridge, err := oss.NewBridge(context.Background(), cfg.OssMounts)
	if err != nil {
		return fmt.Errorf("init oss bridge: %w", err)
	}

	codec := sharetoken.NewCodec([]byte(cfg.Share.TokenSecret))
	tokenTTL := time.Hour * time.Duration(cfg.Share.TokenTTLHours)

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	shareService := service.NewShareService(shareRepo, fileRepo, userRepo, settingRepo, bridge, loc, cfg.Share.CodeLength)
	accessService := service.NewAccessService(shareRepo, fileRepo, codec, tokenTTL, loc)
	mountService := service.NewMountService(shareRepo, fileRepo)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Shares:    handler.NewShareHandler(shareService),
		Access:    handler.NewAccessHandler(accessService),
		Mounts:    handler.NewMountHandler(mountService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.Cleanup.Enable {
		if err := scheduler.AddJob(job.NewExpiredShareJob(shareService), cfg.Cleanup.Cron); err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
