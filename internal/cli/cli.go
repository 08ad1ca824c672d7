package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/api"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/config"
	"github.com/raffaelramalhorosa/hackathon-aggregator/internal/models"
)

const version = "1.0.0"

var configFile string

// BuildCLI builds the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hackathons",
		Short: "Hackathon listing aggregator",
		Long: `Collects hackathon listings from HackerEarth and Devfolio, keeps them
in a TTL cache backed by raw page snapshots, and serves them over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("HACKATHONS_CONFIG"), "Path to YAML config file")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildFetchCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Start the HTTP API, restoring from cache and refreshing in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func buildFetchCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one refresh cycle and print per-source outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), cmd.OutOrStdout(), jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print outcomes as JSON")
	return cmd
}

func buildStatusCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show refresh status of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.Context(), cmd.OutOrStdout(), addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "http://localhost:8080", "Base URL of the running server")
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runServer() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	a, err := buildApp(cfg, logger, true)
	if err != nil {
		return err
	}

	if a.coord.RestoreFromCache() {
		logger.Info("serving cached listings", "items", a.aggregator.GetRefreshStatus().Counts.Total)
	}
	if a.coord.Stale() {
		a.coord.RefreshAsync()
	}

	srv := api.New(a.aggregator, logger, api.Options{
		DefaultLocation: cfg.Server.DefaultLocation,
		Metrics:         a.metrics,
	})

	port := strconv.Itoa(cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "port", port, "config", cfg.Source())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		a.Close()
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("cache close error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func runFetch(ctx context.Context, w io.Writer, jsonOut bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	a, err := buildApp(cfg, newLogger(cfg), false)
	if err != nil {
		return err
	}
	defer a.Close()

	outcomes, err := a.coord.RunOnce(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return jsoniter.NewEncoder(w).Encode(outcomes)
	}
	renderOutcomes(w, outcomes)
	return nil
}

func showStatus(ctx context.Context, w io.Writer, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := strings.TrimRight(addr, "/") + "/api/refresh-status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query %s: unexpected status %d", url, resp.StatusCode)
	}

	var st struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		models.RefreshStatus
	}
	if err := jsoniter.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	renderStatus(w, st.Status, st.Message, st.RefreshStatus)
	return nil
}
