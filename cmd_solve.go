package main

import (
	"github.com/spf13/cobra"

	"github.com/ByLCY/linkage/report"
)

var solveCmd = &cobra.Command{
	Use:   "solve <file.scissor>",
	Short: "按 pose 段求解链条并输出报告",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		debugPath, _ := cmd.Flags().GetString("debug")

		job, err := loadJob(args[0], jobFlags(cmd))
		if err != nil {
			return err
		}
		sol, solveErr := job.Solve()
		if debugPath != "" && sol != nil {
			if err := writeDebug(sol, debugPath); err != nil {
				return err
			}
		}
		if err := emit(cmd, report.New(job, sol, solveErr), format, outPath); err != nil {
			return err
		}
		// 报告已包含失败原因，这里仅用于产生非零退出码。
		return solveErr
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
	addJobFlags(solveCmd)
	solveCmd.Flags().StringP("format", "f", "markdown", "输出格式：markdown、json、record")
	solveCmd.Flags().StringP("out", "o", "", "输出文件路径，默认写到标准输出")
	solveCmd.Flags().String("debug", "", "求解调试 JSON 输出路径")
}
