package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ByLCY/linkage/config"
	"github.com/ByLCY/linkage/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 求解服务",
	Long:  `以无状态 HTTP 服务运行求解器，提供 /v1/solve、/v1/envelope、/v1/sweep 等 JSON 接口以及 /metrics。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		solveOpts, err := cfg.SolveOptions()
		if err != nil {
			return err
		}

		handler := httpapi.NewHandler(httpapi.Options{
			Solve:        solveOpts,
			MaxBodyBytes: cfg.MaxBodyBytes,
			Registry:     prometheus.NewRegistry(),
			HideMetrics:  !cfg.Metrics,
			Logger:       slog.Default(),
		})

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			slog.Info("linkage server listening", "address", srv.Addr, "mode", solveOpts.Mode)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("服务异常退出: %w", err)

		case sig := <-shutdown:
			slog.Info("shutdown started", "signal", sig)
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("graceful shutdown did not complete", "timeout", cfg.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("关闭服务失败: %w", err)
				}
			}
			slog.Info("linkage server stopped gracefully")
			return nil
		}
	},
}

// loadServerConfig 读取 --config，并在未显式指定 --log-level 时采用配置文件中的级别。
func loadServerConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if !cmd.Flags().Changed("log-level") {
		if err := setupLogging(cfg.LogLevel); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "YAML 配置文件路径")
	serveCmd.Flags().String("addr", "", "监听地址，覆盖配置文件")
}
