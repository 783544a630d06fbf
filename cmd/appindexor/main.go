package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/classify"
	"github.com/voiscan/appindexor/internal/common"
	"github.com/voiscan/appindexor/internal/config"
	"github.com/voiscan/appindexor/internal/db"
	"github.com/voiscan/appindexor/internal/db/migrations"
	"github.com/voiscan/appindexor/internal/indexer"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/metrics"
	"github.com/voiscan/appindexor/internal/store"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "appindexor",
	Short: "Continuous smart-contract indexer",
	Long: `appindexor tails the chain block by block, classifies applications into
contract families (NFT, fungible token, marketplace, liquidity pool, staking)
and folds their events into a relational snapshot plus append-only history.`,
	Version: version,
	RunE:    runIndexer,
}

var replayCmd = &cobra.Command{
	Use:   "replay <app-id>",
	Short: "Re-apply the full event history of one indexed contract",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(replayCmd)
}

func runIndexer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log := componentLogger(cfg, common.ComponentDriver)

	var metricsServer *metrics.Server
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnw("failed to stop metrics server", "error", err)
			}
		}()
	}

	driver, database, err := buildDriver(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	log.Infow("starting appindexor", "version", version)
	if err := driver.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("sync driver failed: %w", err)
	}

	log.Info("appindexor stopped")
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := common.ParseAppID(args[0]); err != nil {
		return fmt.Errorf("invalid app id %q: %w", args[0], err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	driver, database, err := buildDriver(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return driver.Replay(ctx, args[0])
}

// buildDriver wires the full pipeline: migrations, database, store, chain
// client, classifier and the family indexers.
func buildDriver(cfg *config.Config) (*indexer.Driver, *sql.DB, error) {
	if err := migrations.RunMigrations(cfg.DB.Path); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := store.New(database, componentLogger(cfg, common.ComponentStore))
	client := chain.NewHTTPClient(cfg.Chain, componentLogger(cfg, common.ComponentChainClient))
	classifier := classify.New(client, st, componentLogger(cfg, common.ComponentClassifier))

	indexers := []indexer.FamilyIndexer{
		indexer.NewNFT(client, st, componentLogger(cfg, common.ComponentIndexerNFT)),
		indexer.NewToken(client, st, componentLogger(cfg, common.ComponentIndexerToken)),
		indexer.NewMarket(client, st, componentLogger(cfg, common.ComponentIndexerMarket)),
		indexer.NewPool(client, st, cfg.Numeraire, componentLogger(cfg, common.ComponentIndexerPool)),
		indexer.NewStaking(client, st, componentLogger(cfg, common.ComponentIndexerStaking)),
		indexer.NewSCS(client, st, componentLogger(cfg, common.ComponentIndexerSCS)),
	}

	driver := indexer.NewDriver(client, st, classifier, indexers, cfg.Sync,
		componentLogger(cfg, common.ComponentDriver))

	return driver, database, nil
}

// componentLogger builds an untagged logger at the component's configured
// level; each constructor tags its own component field.
func componentLogger(cfg *config.Config, component string) *logger.Logger {
	l, err := logger.NewLogger(cfg.Logging.GetComponentLevel(component), cfg.Logging.IsDevelopment())
	if err != nil {
		return logger.GetDefaultLogger()
	}
	return l
}
