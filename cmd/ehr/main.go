package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ehr/internal/config"
	"ehr/internal/util"
)

var (
	dataDir string
	devMode bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ehr",
		Short:         "인력 현황 엑셀 수집 및 기준일 대비 증감 계산",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "dataDir", "", "数据目录 (覆盖配置文件)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "开发模式")

	rootCmd.AddCommand(newServeCmd(), newImportCmd(), newRediffCmd(), newExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (*config.AppConfig, config.LoadConfigInfo) {
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		logrus.WithError(err).Warn("加载配置失败，使用默认配置")
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}
	if dataDir != "" {
		cfg.Data.DataDir = dataDir
	}
	if devMode {
		cfg.Server.DevMode = true
	}
	config.ConfigureLogging(cfg)
	return cfg, info
}

func printBanner() {
	fmt.Println(util.Banner("EHR - 인력 현황 수집 도구"))
}
