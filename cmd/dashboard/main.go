package main

import (
	"fmt"
	"os"

	conf "github.com/sgawallet/sga-wallet/config"
	"github.com/sgawallet/sga-wallet/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"

	configPath string
	host       string
	port       int
	logPath    string
	refresh    int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "sga-wallet-dashboard",
		Short: "SGA Wallet 포트폴리오 대시보드",
		Long: `SGA Wallet Dashboard - 연결된 지갑과 자산 현황 TUI

연결 목록, 체인별 자산, 평가 금액, 손익, 노드 로그를 한 화면에서 봅니다.

사용 예시:
  sga-wallet-dashboard                           # localhost:8090
  sga-wallet-dashboard --port 9000               # 다른 포트
  sga-wallet-dashboard -c ./config/config.toml   # 설정 파일의 포트/로그 경로 사용`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "노드 설정 파일 경로")
	rootCmd.Flags().StringVar(&host, "host", "localhost", "노드 호스트 주소")
	rootCmd.Flags().IntVar(&port, "port", 8090, "노드 REST 포트")
	rootCmd.Flags().StringVar(&logPath, "log-path", "~/.sga-wallet/logs/sga-wallet", "로그 파일 접두사")
	rootCmd.Flags().IntVar(&refresh, "refresh", 5, "새로고침 간격 (초)")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "버전 정보 출력",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("SGA Wallet Dashboard v%s (built: %s)\n", Version, BuildTime)
		},
	}
}

func runDashboard(cmd *cobra.Command) error {
	// 설정 파일이 있으면 명시하지 않은 플래그를 덮어씀
	if configPath != "" {
		cfg, err := conf.NewConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !cmd.Flags().Changed("port") && cfg.Server.RestPort != 0 {
			port = cfg.Server.RestPort
		}
		if !cmd.Flags().Changed("log-path") && cfg.LogInfo.Path != "" {
			logPath = cfg.LogInfo.Path
		}
	}

	if port <= 0 || port > 65535 {
		return fmt.Errorf("유효하지 않은 포트: %d", port)
	}

	return dashboard.Run(dashboard.Config{
		BaseURL:    fmt.Sprintf("http://%s:%d", host, port),
		LogPath:    logPath,
		RefreshSec: refresh,
	})
}
