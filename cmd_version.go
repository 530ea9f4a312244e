package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version 在发布构建时通过 -ldflags "-X main.version=..." 注入。
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印 linkage 版本号",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "linkage version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
