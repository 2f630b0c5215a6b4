package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tubepull/tubepull/internal/core/config"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/transcript"
	"github.com/tubepull/tubepull/internal/server"
)

var (
	servePort      int
	serveOutputDir string
	serveDaemon    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [stop|status]",
	Short: "Start the HTTP extraction backend",
	Long: `Start the HTTP server the browser extension talks to.

Examples:
  tubepull serve              # Start server on the configured port (default 7783)
  tubepull serve -p 9000      # Start server on port 9000
  tubepull serve -d           # Start server as background daemon
  tubepull serve stop         # Stop the daemon
  tubepull serve status       # Show daemon status

API Endpoints:
  GET  /health                      # Health check
  POST /api/v1/extract-audio        # Stream a video as tagged MP3
  POST /api/v1/extract-album        # Stream a playlist as ZIP of MP3s
  POST /api/v1/extract-transcript   # Transcript JSON from subtitles
  GET  /api/v1/transcript/health    # yt-dlp availability probe
  POST /api/v1/jobs                 # Queue an album extraction
  GET  /api/v1/jobs[/:id]           # Job status
  DELETE /api/v1/jobs[/:id]         # Cancel/remove jobs`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			switch args[0] {
			case "stop":
				if err := stopDaemon(); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				return
			case "status":
				if err := daemonStatus(); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				return
			}
		}

		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP listen port (default: 7783)")
	serveCmd.Flags().StringVarP(&serveOutputDir, "output", "o", "", "output directory for queued job artifacts")
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "run as background daemon")

	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg := config.LoadOrDefault()

	// Resolve port (flag > config > default)
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7783
	}

	outputDir := resolveOutputDir(cfg)

	if serveDaemon {
		return startDaemon(cfg.Server.Port, outputDir)
	}

	return runServer(cfg, outputDir)
}

// resolveOutputDir picks the job output directory (flag > config > default)
// and expands a leading ~.
func resolveOutputDir(cfg *config.Config) string {
	dir := serveOutputDir
	if dir == "" {
		dir = cfg.Server.OutputDir
	}
	if dir == "" {
		dir = "./downloads"
	}
	if len(dir) >= 2 && dir[:2] == "~/" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, dir[2:])
	}
	return dir
}

func runServer(cfg *config.Config, outputDir string) error {
	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := extractor.New(cfg)
	svc := transcript.New(cfg, ext.Runner(), ext)
	srv := server.NewServer(cfg, ext, svc, outputDir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	return srv.Start()
}

func startDaemon(port int, outputDir string) error {
	if pid := getDaemonPID(); pid > 0 {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		os.Remove(getPIDFilePath())
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"serve", "-p", strconv.Itoa(port), "-o", outputDir}

	logFile, err := os.OpenFile(getLogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	if err := savePID(cmd.Process.Pid); err != nil {
		cmd.Process.Kill()
		logFile.Close()
		return fmt.Errorf("failed to save PID: %w", err)
	}

	fmt.Printf("tubepull server started as daemon (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  Port: %d\n", port)
	fmt.Printf("  Output: %s\n", outputDir)
	fmt.Printf("  Log: %s\n", getLogFilePath())
	fmt.Printf("\nUse 'tubepull serve stop' to stop the daemon\n")

	return nil
}

func stopDaemon() error {
	pid := getDaemonPID()
	if pid <= 0 {
		return fmt.Errorf("daemon is not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(getPIDFilePath())
		return fmt.Errorf("daemon process not found")
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		os.Remove(getPIDFilePath())
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	for i := 0; i < 30; i++ {
		if !processExists(pid) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	os.Remove(getPIDFilePath())
	fmt.Println("Daemon stopped")
	return nil
}

func daemonStatus() error {
	pid := getDaemonPID()
	if pid <= 0 {
		fmt.Println("Daemon is not running")
		return nil
	}

	if !processExists(pid) {
		os.Remove(getPIDFilePath())
		fmt.Println("Daemon is not running (stale PID file removed)")
		return nil
	}

	fmt.Printf("Daemon is running (PID %d)\n", pid)
	fmt.Printf("Log file: %s\n", getLogFilePath())
	return nil
}

// PID file management

func getPIDFilePath() string {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "/tmp/tubepull-serve.pid"
	}
	return filepath.Join(configDir, "serve.pid")
}

func getLogFilePath() string {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "/tmp/tubepull-serve.log"
	}
	return filepath.Join(configDir, "serve.log")
}

func savePID(pid int) error {
	pidFile := getPIDFilePath()
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func getDaemonPID() int {
	data, err := os.ReadFile(getPIDFilePath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return pid
}

func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 actually probes
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
