package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/openintents/checkpoint-viewer/pkg/clickhouse"
	"github.com/openintents/checkpoint-viewer/pkg/data/clickhouse/statushistory"
	"github.com/openintents/checkpoint-viewer/pkg/utils"
)

var ErrClickHouseDisabled = errors.New("CLICKHOUSE_HOSTS is not set")

func removeHistory(c *cli.Context) error {
	ctx := c.Context
	sugar, err := utils.NewSugaredLogger(c.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	chain := c.String("chain")
	chCfg, err := clickhouse.Load()
	if err != nil {
		return fmt.Errorf("failed to load ClickHouse config: %w", err)
	}
	if !chCfg.Enabled() {
		return ErrClickHouseDisabled
	}

	chClient, err := clickhouse.New(ctx, chCfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse client: %w", err)
	}
	defer chClient.Close()

	repo, err := statushistory.NewRepository(ctx, chClient, chCfg.Cluster, chCfg.Database, chCfg.Table)
	if err != nil {
		return fmt.Errorf("failed to create status history repository: %w", err)
	}

	if err := repo.DeleteHistory(ctx, chain); err != nil {
		return fmt.Errorf("failed to delete status history: %w", err)
	}

	sugar.Infof("status history successfully removed for chain %s", chain)
	return nil
}
