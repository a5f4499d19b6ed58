// Command leadctl runs the lead distribution engine by hand against the
// configured Postgres, for operators and backfills.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"leadflow-workers/internal/bootstrap"
	"leadflow-workers/internal/common/config"
	"leadflow-workers/internal/common/database"
	"leadflow-workers/internal/common/logger"
)

var (
	configPath string
	logLevel   string
)

// session holds what a command opened; close releases it.
type session struct {
	cfg    *config.Config
	engine *bootstrap.Engine
	close  func()
}

var rootCmd = &cobra.Command{
	Use:           "leadctl",
	Short:         "Operate the lead distribution and rollup engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(
		selectCmd,
		claimCmd,
		distributionCmd,
		rollupCmd,
		rollupAllCmd,
		recordsCmd,
		phoneCmd,
		goalCmd,
		registryCmd,
		migrateCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openSession connects Postgres (required), Redis and Elasticsearch (both
// optional) and builds the engine.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewStructured(logLevel, "console")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	closers := []func(){func() { pg.Close() }}

	var rdb *redis.Client
	if cfg.Database.Redis.Address != "" {
		rc, _ := database.NewRedis(cfg.Database.Redis)
		if err := rc.Ping(ctx); err == nil {
			rdb = rc.GetClient()
			closers = append(closers, func() { rc.Close() })
		} else {
			rc.Close()
		}
	}

	var es *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		if c, err := database.NewElasticsearch(cfg.Database.Elasticsearch); err == nil && c.Ping() == nil {
			es = c
		}
	}

	engine, err := bootstrap.NewEngine(cfg, pg.GetDB(), rdb, es, log)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	return &session{
		cfg:    cfg,
		engine: engine,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
