package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ByLCY/linkage/mcpapi"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "以 Model Context Protocol 服务运行求解器",
	Long: `将求解器以 MCP 工具（solve_scissor、default_chain、reach_envelope、validate_chain）暴露给 AI 代理。

传输方式：
- stdio（默认）：标准输入输出，适合本地进程集成。
- sse：基于 HTTP 的 Server-Sent Events，适合远程代理或调试。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("transport") {
			cfg.MCP.Transport, _ = cmd.Flags().GetString("transport")
		}
		if cmd.Flags().Changed("addr") {
			cfg.MCP.Addr, _ = cmd.Flags().GetString("addr")
		}
		solveOpts, err := cfg.SolveOptions()
		if err != nil {
			return err
		}

		srv := mcpapi.NewServer(version, solveOpts)

		switch cfg.MCP.Transport {
		case "stdio":
			// stdout 专用于 JSON-RPC
			log.SetOutput(os.Stderr)
			slog.Info("starting linkage MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			baseURL := cfg.MCP.BaseURL
			if baseURL == "" {
				baseURL = "http://localhost" + cfg.MCP.Addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, cfg.MCP.Addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP 服务异常退出: %w", err)
			}
			slog.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("未知传输方式 %q，可选 stdio、sse", cfg.MCP.Transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("config", "c", "", "YAML 配置文件路径")
	mcpCmd.Flags().String("transport", "stdio", "传输方式：stdio 或 sse")
	mcpCmd.Flags().String("addr", "", "SSE 监听地址，覆盖配置文件")
}
