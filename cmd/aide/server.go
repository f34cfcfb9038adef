package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/aide/internal/api"
	"github.com/kalambet/aide/internal/config"
	"github.com/kalambet/aide/internal/generation"
	"github.com/kalambet/aide/internal/session"
	"github.com/kalambet/aide/internal/storage"
	"github.com/kalambet/aide/internal/weather"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the aide server (foreground)",
	Long: `Start the HTTP API on 127.0.0.1 and an MCP server on stdio.

Interactions and memory snapshots are kept in memory unless storage.data_dir
is set or --persist is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		persist, _ := cmd.Flags().GetBool("persist")
		noMCP, _ := cmd.Flags().GetBool("no-mcp")
		return runServer(persist, !noMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running aide server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show aide status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	startCmd.Flags().Bool("persist", false, "store interactions under the default data directory when storage.data_dir is unset")
	startCmd.Flags().Bool("no-mcp", false, "do not serve MCP on stdio")
}

// runDir is where the PID file lives. An in-memory store has no directory
// of its own, so the default data directory is used.
func runDir(cfg config.Config) string {
	if cfg.Storage.DataDir == "" || cfg.Storage.DataDir == ":memory:" {
		return config.DefaultDataDir()
	}
	return cfg.Storage.DataDir
}

func pidFilePath(dir string) string {
	return filepath.Join(dir, "aide.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// storageDir resolves the directory passed to storage.Open.
func storageDir(cfg config.Config, persist bool) string {
	dir := cfg.Storage.DataDir
	if dir == "" {
		dir = ":memory:"
	}
	if persist && dir == ":memory:" {
		dir = config.DefaultDataDir()
	}
	return dir
}

// newSessionManager wires the generator, the shared weather client and the
// optional recorder into a session manager.
func newSessionManager(ctx context.Context, cfg config.Config, rec session.Recorder) (*session.Manager, error) {
	gen, err := generation.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing generation backend: %w", err)
	}

	wx := weather.NewClient(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.TimeoutDuration())
	if !wx.Live() {
		slog.Warn("no weather API key configured, weather reports are simulated")
	}

	opts := session.Options{
		Generator:       gen,
		Weather:         wx,
		MaxMemories:     cfg.Memory.MaxMemories,
		RelevantLimit:   cfg.Memory.RelevantLimit,
		HistoryRetained: cfg.Session.HistoryRetained,
		HistoryInPrompt: cfg.Session.HistoryInPrompt,
		Recorder:        rec,
	}
	return session.NewManager(opts), nil
}

func runServer(persist, serveMCP bool) error {
	fmt.Fprintf(os.Stderr, "aide version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(runDir(cfg))
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("aide is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("aide is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(storageDir(cfg, persist))
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	sessions, err := newSessionManager(ctx, cfg, store)
	if err != nil {
		return err
	}

	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewHandler(api.Deps{
			Sessions:     sessions,
			Interactions: store,
			Token:        apiToken,
		}),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	var mcpSession *session.Session
	if serveMCP {
		if mcpSession, err = sessions.Open(""); err != nil {
			return fmt.Errorf("opening MCP session: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "aide listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if mcpSession != nil {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(api.MCPDeps{Session: mcpSession}))
		g.Go(func() error {
			err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				// A closed stdin only ends MCP; the HTTP API keeps running.
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)", "session", mcpSession.ID)
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		endSessions(sessions)
		return nil
	})

	return g.Wait()
}

// endSessions snapshots every live session so their memory can be restored
// the next time the same ID is opened.
func endSessions(m *session.Manager) {
	for _, info := range m.List() {
		if err := m.End(info.ID); err != nil {
			slog.Warn("ending session", "session", info.ID, "error", err)
		}
	}
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(runDir(cfg))
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("aide is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop aide (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to aide (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Backend", "%s", cfg.Generation.Backend)
	switch cfg.Generation.Backend {
	case config.BackendOpenRouter:
		printStatus("Model", "%s", cfg.Generation.OpenRouterModel)
	case config.BackendOllama:
		printStatus("Model", "%s at %s", cfg.Generation.OllamaModel, cfg.Generation.OllamaBaseURL)
	default:
		printStatus("Model", "%s", cfg.Generation.Model)
	}
	if cfg.Generation.Backend != config.BackendOllama {
		if _, err := cfg.GenerationAPIKey(); err != nil {
			printStatus("API key", "missing")
		} else {
			printStatus("API key", "configured")
		}
	}
	if cfg.Weather.APIKey == "" {
		printStatus("Weather", "simulated (no API key)")
	} else {
		printStatus("Weather", "live")
	}

	apiToken, tokenErr := config.GetAPIToken(config.NewKeychain())
	if tokenErr == nil && running {
		if r, err := apiGet(client, serverURL+apiPrefix+"/sessions", apiToken); err == nil {
			var sessions []json.RawMessage
			if json.NewDecoder(r.Body).Decode(&sessions) == nil {
				printStatus("Sessions", "%d", len(sessions))
			}
			r.Body.Close()
		}
		if r, err := apiGet(client, serverURL+apiPrefix+"/interactions?limit=100", apiToken); err == nil {
			var interactions []json.RawMessage
			if r.StatusCode == http.StatusOK && json.NewDecoder(r.Body).Decode(&interactions) == nil {
				printStatus("Interactions", "%s", countLabel(len(interactions), 100))
			}
			r.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
