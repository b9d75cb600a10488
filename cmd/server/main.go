package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/evfleet/internal/alert"
	"github.com/langchou/evfleet/internal/api/handlers"
	"github.com/langchou/evfleet/internal/config"
	"github.com/langchou/evfleet/internal/filter"
	"github.com/langchou/evfleet/internal/fleet"
	"github.com/langchou/evfleet/internal/service"
	"github.com/langchou/evfleet/internal/simulation"
	"github.com/langchou/evfleet/internal/sorting"
	"github.com/langchou/evfleet/internal/telemetry"
	"github.com/langchou/evfleet/internal/timeutil"
	"github.com/langchou/evfleet/pkg/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newServerCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "evfleet: %v\n", err)
		os.Exit(1)
	}
}

// newServerCommand 命令行参数优先于环境变量
func newServerCommand() *cobra.Command {
	var (
		port       string
		debug      bool
		interval   time.Duration
		autostart  bool
		seed       uint64
		thresholds string
	)

	cmd := &cobra.Command{
		Use:          "evfleet",
		Short:        "EV fleet telemetry simulator and dashboard backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 加载配置
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			fs := cmd.Flags()
			if fs.Changed("port") {
				cfg.ServerPort = port
			}
			if fs.Changed("debug") {
				cfg.Debug = debug
			}
			if fs.Changed("interval") {
				cfg.SimulationInterval = interval
			}
			if fs.Changed("autostart") {
				cfg.SimulationAutostart = autostart
			}
			if fs.Changed("seed") {
				cfg.SimulationSeed = seed
			}
			if fs.Changed("thresholds") {
				cfg.AlertThresholdsFile = thresholds
			}

			return run(cmd.Context(), cfg)
		},
	}

	addFlags(cmd.Flags(), &port, &debug, &interval, &autostart, &seed, &thresholds)
	return cmd
}

func addFlags(fs *pflag.FlagSet, port *string, debug *bool, interval *time.Duration, autostart *bool, seed *uint64, thresholds *string) {
	fs.StringVar(port, "port", "4000", "HTTP listen port (env PORT)")
	fs.BoolVar(debug, "debug", false, "enable development logging and gin debug mode (env DEBUG)")
	fs.DurationVar(interval, "interval", simulation.DefaultInterval, "simulation tick interval, clamped to [1s, 5s] (env SIMULATION_INTERVAL)")
	fs.BoolVar(autostart, "autostart", false, "start the simulation on boot (env SIMULATION_AUTOSTART)")
	fs.Uint64Var(seed, "seed", 0, "telemetry RNG seed, 0 seeds from time (env SIMULATION_SEED)")
	fs.StringVar(thresholds, "thresholds", "", "YAML file overriding alert thresholds (env ALERT_THRESHOLDS_FILE)")
}

func run(ctx context.Context, cfg *config.Config) error {
	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting EV fleet dashboard",
		zap.String("port", cfg.ServerPort),
		zap.Duration("interval", cfg.SimulationInterval),
		zap.Uint64("seed", cfg.SimulationSeed))

	th, err := alert.LoadThresholds(cfg.AlertThresholdsFile)
	if err != nil {
		return err
	}

	clock := timeutil.RealClock{}
	gen := telemetry.NewGenerator(cfg.SimulationSeed)
	store := fleet.NewStore(gen, clock, logger.Named("fleet"))
	driver := simulation.NewDriver(store, clock, cfg.SimulationInterval, logger.Named("simulation"))
	alerts := alert.NewEngine(th, cfg.AlertRetention, clock, logger.Named("alert"))
	history := filter.NewHistory(cfg.InitialQuery)
	bridge := filter.NewBridge(history, clock, cfg.FilterSettleDelay, cfg.FilterSyncDelay, logger.Named("filter"))

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger.Named("ws"))

	// 创建看板服务
	dashboard := service.NewDashboardService(
		logger,
		store,
		driver,
		alerts,
		bridge,
		history,
		sorting.NewSorter(),
		wsHub,
	)

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(logger, dashboard, wsHub)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// 注册路由
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(ctx)
		return nil
	})

	if err := dashboard.Start(cfg.SimulationAutostart); err != nil {
		logger.Error("Failed to start simulation", zap.Error(err))
	}

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// 等待退出信号
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		// 停止服务
		dashboard.Close()

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("Server exited")
	return err
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
