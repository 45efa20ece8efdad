package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ehr/internal/server"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()
			cfg, info := loadConfig()

			// config.toml 显式配置的端口优先
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			go func() {
				fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
				if err := srv.Run(addr); err != nil {
					logrus.WithError(err).Fatal("服务启动失败")
				}
			}()

			fmt.Println("\n按 Ctrl+C 停止服务...")

			// 等待信号
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			fmt.Println("\n正在关闭服务...")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	return cmd
}
