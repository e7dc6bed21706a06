package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
	httpx "mavencrawler/shared/infrastructure/http"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "mavenctl",
	Short:        "Operate the Maven crawler: migrations, crawls, sweeps and downloads",
	SilenceUsage: true,
}

// cliApp holds what a command needs. Stores are opened on first use so that
// commands which never touch them do not require a database.
type cliApp struct {
	cfg    *config.Config
	obs    ports.Observability
	logger ports.Logger
	repos  ports.Repositories
}

// newApp reads the config and builds observability. The caller must defer
// app.Close(). Unless the environment picks adapters, the CLI logs through
// the console logger and drops metrics.
func newApp(operation string) (*cliApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if _, ok := os.LookupEnv("ADAPTER_LOGGER"); !ok {
		cfg.Adapters.Logger = "console"
	}
	if _, ok := os.LookupEnv("ADAPTER_METRICS"); !ok {
		cfg.Adapters.Metrics = "noop"
	}

	obs, err := observability.CreateObservability(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	logger, err := obs.LoggerScoped("mavenctl")
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return &cliApp{
		cfg:    cfg,
		obs:    obs,
		logger: logger.WithFields(map[string]interface{}{"operation": operation}),
	}, nil
}

func (a *cliApp) repositories(ctx context.Context) (ports.Repositories, error) {
	if a.repos != nil {
		return a.repos, nil
	}
	repos, err := repository.Open(ctx, a.cfg, a.obs)
	if err != nil {
		return nil, fmt.Errorf("opening repositories: %w", err)
	}
	a.repos = repos
	return repos, nil
}

func (a *cliApp) fetcher() (*httpx.Client, error) {
	client, err := httpx.NewClient(a.cfg.HTTP, a.obs)
	if err != nil {
		return nil, fmt.Errorf("creating http client: %w", err)
	}
	return client, nil
}

// seeds returns args when given, the configured seeds file otherwise.
func (a *cliApp) seeds(args []string) ([]string, error) {
	if len(args) > 0 {
		return config.ParseSeeds(args)
	}
	return config.LoadSeeds(a.cfg.Crawler.SeedsFile)
}

func (a *cliApp) Close() {
	if a.repos == nil {
		return
	}
	if err := a.repos.Close(context.Background()); err != nil {
		a.logger.Error("Failed to close repositories", "error", err)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, sweepCmd, jobCmd, crawlCmd, downloadCmd, reposCmd, statsCmd)
}
