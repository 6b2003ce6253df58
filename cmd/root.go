package cmd

import (
	"os"

	"budget/config"
	"budget/logger"

	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "budget",
	Short: "Personal budgeting service",
	Long:  "Monthly budgets, expense tracking, low-budget warnings and receipt extraction over HTTP.",
	RunE:  runServe,
}

// Execute main.go 的入口
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "外部配置文件路径（可选）")
	rootCmd.SilenceUsage = true
}

// loadConfig 加载配置并初始化日志，各子命令共用
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log)
	return cfg, nil
}
