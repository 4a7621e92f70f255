package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/sgawallet/sga-wallet/app"
	"github.com/sgawallet/sga-wallet/common/logger"
	"github.com/spf13/cobra"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// PID file management - Use user home directory
func getPidFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// fallback to current directory
		return "./sga-wallet.pid"
	}
	return filepath.Join(homeDir, ".sga-wallet", "sga-wallet.pid")
}

var (
	pidFile = getPidFilePath()
)

var configFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:     "sga-wallet",
		Short:   "Multi-chain key generation and asset aggregation node",
		Long:    `sga-wallet generates keys for EVM, Solana, Bitcoin and XRPL, connects existing wallets and serves their fiat-valued holdings over REST and WebSocket.`,
		Version: Version + " (" + BuildTime + ")",
		Run: func(cmd *cobra.Command, args []string) {
			runNode()
		},
	}

	// Register global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(nodeCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(familiesCmd())
	rootCmd.AddCommand(connectionsCmd())
	rootCmd.AddCommand(assetsCmd())
	rootCmd.AddCommand(dbCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Failed to execute command:", err)
		os.Exit(1)
	}
}

func nodeCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "node",
		Short: "Node management commands",
		Long:  `Commands for running the wallet node in the background.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the node as daemon",
		Run: func(cmd *cobra.Command, args []string) {
			runNodeDaemon(pidFile)
		},
	}
	cmd.AddCommand(startCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the node",
		Run: func(cmd *cobra.Command, args []string) {
			stopDaemon(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show node status",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(pidFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the node",
		Run: func(cmd *cobra.Command, args []string) {
			restartDaemon(pidFile)
		},
	})

	return cmd
}

func runNode() {
	application, err := app.New(configFile)
	if err != nil {
		fmt.Println("Failed to initialize application:", err)
		os.Exit(1)
	}

	application.SigHandler()
	logger.Info("Node start.")

	// Restore connections, start aggregation and REST API
	if err := application.StartAll(); err != nil {
		logger.Error("Failed to start services: ", err)
		application.Terminate()
		os.Exit(1)
	}

	application.Wait()
	removePidFile(pidFile)
	logger.Info("Node terminated.")
}

// Start as daemon - improved logger error handling
func runNodeDaemon(pidFilePath string) {
	// Check internal execution via env var (prevent infinite recursion)
	if os.Getenv("SGA_WALLET_DAEMON_CHILD") == "1" {
		// Execute actual node (Child process)
		runNode()
		return
	}

	// Check if already running
	if isRunning(pidFilePath) {
		fmt.Println("Wallet node is already running")
		return
	}

	// Get current executable path
	executable, err := os.Executable()
	if err != nil {
		// Use fmt as logger might not be initialized
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	args := []string{"node", "start"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	cmd := exec.Command(executable, args...)
	cmd.Env = append(os.Environ(), "SGA_WALLET_DAEMON_CHILD=1")

	// Redirect standard I/O to null (Complete daemonization)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	// Start in a new process group
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	// Start background process
	if err := cmd.Start(); err != nil {
		fmt.Printf("Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	// Create PID file
	if err := writePidFile(pidFilePath, cmd.Process.Pid); err != nil {
		fmt.Printf("Failed to write PID file: %v\n", err)
		cmd.Process.Kill()
		os.Exit(1)
	}

	fmt.Printf("Node started as daemon with PID %d\n", cmd.Process.Pid)

	// Parent process exits here
	os.Exit(0)
}

func stopDaemon(pidFilePath string) {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		fmt.Println("Node is not running or PID file not found")
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Println("Process not found")
		removePidFile(pidFilePath)
		return
	}

	// Send SIGTERM signal
	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to stop process: %v\n", err)
		return
	}

	fmt.Printf("Stopping node (PID: %d)...\n", pid)

	// Remove PID file
	removePidFile(pidFilePath)
}

func restartDaemon(pidFilePath string) {
	fmt.Println("Restarting node...")
	stopDaemon(pidFilePath)

	// 이전 프로세스가 DB 락을 놓을 때까지 대기
	time.Sleep(5 * time.Second)
	runNodeDaemon(pidFilePath)
}

// Check status
func showStatus(pidFilePath string) {
	fmt.Printf("PID file path: %s\n", pidFilePath)

	if isRunning(pidFilePath) {
		pid, _ := readPidFile(pidFilePath)
		fmt.Printf("Node is running (PID: %d)\n", pid)
	} else {
		fmt.Println("Node is not running")

		// Check if PID file exists
		if _, err := os.Stat(pidFilePath); err == nil {
			fmt.Println("PID file exists but process is not running - cleaning up")
			removePidFile(pidFilePath)
		}
	}
}

// Check if running
func isRunning(pidFilePath string) bool {
	pid, err := readPidFile(pidFilePath)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process is actually alive (Unix/Linux)
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// Read PID file
func readPidFile(pidFilePath string) (int, error) {
	data, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, err
	}

	return pid, nil
}

// Write PID file
func writePidFile(pidFilePath string, pid int) error {
	// Create directory if not exists
	dir := filepath.Dir(pidFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(pidFilePath, []byte(strconv.Itoa(pid)), 0644)
}

// Remove PID file
func removePidFile(pidFilePath string) {
	os.Remove(pidFilePath)
}
