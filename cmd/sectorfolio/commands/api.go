package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorfolio/internal/api"
	"github.com/wonny/sectorfolio/internal/api/handlers"
	"github.com/wonny/sectorfolio/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                       - Health check
  GET  /metrics                      - Prometheus metrics
  POST /api/generate-portfolio       - Build a purchase plan
  GET  /api/plans/{run_id}           - Stored purchase plan
  GET  /api/yfinance/compare         - Sector index vs crypto correlation
  GET  /api/sectors                  - Selectable sectors
  POST /api/data/collect             - Trigger price history collection
  POST /api/data/refresh             - Trigger sector data refresh

Example:
  go run ./cmd/sectorfolio api
  go run ./cmd/sectorfolio api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "run the background jobs in-process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"sectors": len(a.universe.Sectors),
	}).Info("Initializing API server")

	router := api.NewRouter(api.Handlers{
		Portfolio: handlers.NewPortfolioHandler(a.orchestrator, a.universe, a.quotes, a.plans, a.log),
		Analytics: handlers.NewAnalyticsHandler(a.comparator, a.log),
		Universe:  handlers.NewUniverseHandler(a.universe),
		Data:      handlers.NewDataHandler(a.collector, a.refresher, a.universe, a.log),
	}, a.metrics, a.log)

	server := api.New(a.cfg, a.log, router)

	var sched *scheduler.Scheduler
	if withScheduler {
		sched, err = newScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
