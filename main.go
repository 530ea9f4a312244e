package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/linkage/binding"
	"github.com/ByLCY/linkage/config"
	"github.com/ByLCY/linkage/dsl"
	"github.com/ByLCY/linkage/report"
	"github.com/ByLCY/linkage/scissor"
)

var rootCmd = &cobra.Command{
	Use:   "linkage",
	Short: "剪叉链几何求解器",
	Long: `linkage 读取 .scissor 链条描述文件，按目标伸展距离与张开角求解每根杆件的位置，
并以 Markdown、JSON 或二进制记录输出结果；也可以作为 HTTP 或 MCP 服务运行。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		return setupLogging(level)
	},
}

// Execute 运行根命令，出错时以非零状态退出。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "日志级别：debug、info、warn、error")
}

// setupLogging 将 slog 输出到 stderr，避免污染 stdout 上的报告或 MCP 协议流。
func setupLogging(level string) error {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	scissor.SetLogger(logger)
	return nil
}

// jobOptions 描述从文件构建任务时的附加输入。
type jobOptions struct {
	DataPath string
	DataJSON string
	Unit     string
	Mode     string
}

func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "绑定到 ${...} 占位符的 YAML/JSON 参数文件")
	cmd.Flags().String("data-json", "", "内联 JSON 参数（与 --data 二选一）")
	cmd.Flags().String("unit", "", "长度目标单位：mm、cm、in、pt、m；默认有单位时统一为 mm")
	cmd.Flags().String("mode", "", "覆盖角度传递模式：uniform 或 inherited")
}

func jobFlags(cmd *cobra.Command) jobOptions {
	var o jobOptions
	o.DataPath, _ = cmd.Flags().GetString("data")
	o.DataJSON, _ = cmd.Flags().GetString("data-json")
	o.Unit, _ = cmd.Flags().GetString("unit")
	o.Mode, _ = cmd.Flags().GetString("mode")
	return o
}

// loadJob 串联参数加载、解析与构建。
func loadJob(inputPath string, o jobOptions) (*scissor.Job, error) {
	data, err := loadData(o)
	if err != nil {
		return nil, err
	}
	unit, err := scissor.ParseUnit(o.Unit)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开链条文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := dsl.ParseFile(inputPath, file)
	if err != nil {
		return nil, fmt.Errorf("解析链条文件失败: %w", err)
	}

	job, err := scissor.Build(doc, data, scissor.BuildOptions{Unit: unit, Solve: scissor.DefaultSolveOptions()})
	if err != nil {
		return nil, err
	}
	if o.Mode != "" {
		mode, err := scissor.ParseAngleMode(o.Mode)
		if err != nil {
			return nil, err
		}
		job.Options.Mode = mode
	}
	return job, nil
}

func loadData(o jobOptions) (any, error) {
	switch {
	case o.DataPath != "" && o.DataJSON != "":
		return nil, fmt.Errorf("--data 与 --data-json 不能同时使用")
	case o.DataPath != "":
		data, err := binding.LoadFile(o.DataPath)
		if err != nil {
			return nil, fmt.Errorf("读取参数文件失败: %w", err)
		}
		return data, nil
	case o.DataJSON != "":
		data, err := binding.Parse([]byte(o.DataJSON))
		if err != nil {
			return nil, fmt.Errorf("解析 data JSON 失败: %w", err)
		}
		return data, nil
	default:
		return nil, nil
	}
}

// emit 渲染报告并写到 outPath；outPath 为空时写到命令输出。
func emit(cmd *cobra.Command, rep *report.Report, format, outPath string) error {
	var term *os.File
	if outPath == "" {
		term, _ = cmd.OutOrStdout().(*os.File)
	}
	r, err := report.ForFormat(format, term)
	if err != nil {
		return err
	}
	out, err := r.Render(rep)
	if err != nil {
		return fmt.Errorf("渲染报告失败: %w", err)
	}
	if outPath == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return writeFile(outPath, out)
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return nil
}

func writeDebug(sol *scissor.Solution, debugPath string) error {
	if err := scissor.WriteDebugJSON(sol, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
