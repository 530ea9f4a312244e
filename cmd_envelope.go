package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ByLCY/linkage/report"
	"github.com/ByLCY/linkage/scissor"
)

// checkTextFormat 拒绝二进制记录格式：记录只承载杆件几何，包络与扫描无从编码。
func checkTextFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "record", "bin", "binary":
		return fmt.Errorf("格式 %q 只适用于 solve 与 chain，请使用 markdown 或 json", format)
	}
	return nil
}

// poseAngle 取 --angle，未指定时使用文档 pose 段的张开角。
func poseAngle(cmd *cobra.Command, job *scissor.Job) (float64, error) {
	if cmd.Flags().Changed("angle") {
		text, _ := cmd.Flags().GetString("angle")
		return scissor.ParseAngle(text)
	}
	if !job.Posed {
		return 0, fmt.Errorf("文档 %s 没有 pose 段，请用 --angle 指定张开角", job.Name)
	}
	return job.Actuation.Angle, nil
}

var envelopeCmd = &cobra.Command{
	Use:   "envelope <file.scissor>",
	Short: "报告给定张开角下的可达伸展区间",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		if err := checkTextFormat(format); err != nil {
			return err
		}

		job, err := loadJob(args[0], jobFlags(cmd))
		if err != nil {
			return err
		}
		angle, err := poseAngle(cmd, job)
		if err != nil {
			return err
		}
		job.Actuation.Angle = angle

		rep := report.New(job, nil, nil)
		env, envErr := scissor.ReachEnvelope(job.Chain, angle, job.Options)
		if envErr != nil {
			rep.Err = envErr
		} else {
			rep.Envelope = &env
		}
		if err := emit(cmd, rep, format, outPath); err != nil {
			return err
		}
		return envErr
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep <file.scissor>",
	Short: "在可达区间内等距采样伸展并逐点求解",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")
		if err := checkTextFormat(format); err != nil {
			return err
		}
		steps, _ := cmd.Flags().GetInt("steps")

		job, err := loadJob(args[0], jobFlags(cmd))
		if err != nil {
			return err
		}
		angle, err := poseAngle(cmd, job)
		if err != nil {
			return err
		}
		job.Actuation.Angle = angle

		rep := report.New(job, nil, nil)
		points, sweepErr := scissor.Sweep(job.Chain, angle, steps, job.Options)
		if sweepErr != nil {
			rep.Err = sweepErr
		} else {
			rep.Sweep = points
		}
		if err := emit(cmd, rep, format, outPath); err != nil {
			return err
		}
		return sweepErr
	},
}

func init() {
	for _, c := range []*cobra.Command{envelopeCmd, sweepCmd} {
		rootCmd.AddCommand(c)
		addJobFlags(c)
		c.Flags().String("angle", "", "张开角，如 120deg 或 2.0；默认取文档 pose 段")
		c.Flags().StringP("format", "f", "markdown", "输出格式：markdown 或 json")
		c.Flags().StringP("out", "o", "", "输出文件路径，默认写到标准输出")
	}
	sweepCmd.Flags().Int("steps", 10, "采样区间数，输出 steps+1 个点")
}
