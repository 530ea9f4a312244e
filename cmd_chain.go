package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/linkage/record"
	"github.com/ByLCY/linkage/scissor"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "生成由默认单元组成的链条",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetUint("size")
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		chain, err := scissor.DefaultChain(size)
		if err != nil {
			return err
		}

		var out []byte
		switch strings.ToLower(format) {
		case "json":
			out, err = json.MarshalIndent(chain, "", "  ")
			if err != nil {
				return err
			}
			out = append(out, '\n')
		case "record":
			out = record.MarshalChain(chain)
		default:
			return fmt.Errorf("未知输出格式 %q", format)
		}
		if outPath == "" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		return writeFile(outPath, out)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file.scissor>",
	Short: "检查链条文件能否构建出合法链条",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob(args[0], jobFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "链条合法：%s 共 %d 个单元", job.Name, len(job.Chain))
		if job.Posed {
			fmt.Fprintf(cmd.OutOrStdout(), "，目标伸展 %g%s，张开角 %g rad", job.Actuation.Radius, job.Unit, job.Actuation.Angle)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().Uint("size", 1, "单元个数")
	chainCmd.Flags().StringP("format", "f", "json", "输出格式：json 或 record")
	chainCmd.Flags().StringP("out", "o", "", "输出文件路径，默认写到标准输出")

	rootCmd.AddCommand(validateCmd)
	addJobFlags(validateCmd)
}
