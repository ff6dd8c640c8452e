// Package statushistory stores watcher snapshots in an append-only ClickHouse
// table. Nothing in the resolution path reads it.
package statushistory

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/openintents/checkpoint-viewer/pkg/clickhouse"
	"github.com/openintents/checkpoint-viewer/pkg/watcher"
)

// Repository records status snapshots. It is a watcher.Sink.
type Repository interface {
	watcher.Sink
	Initialize(ctx context.Context) error
	DeleteHistory(ctx context.Context, chain string) error
}

var _ Repository = (*repository)(nil)

//go:embed queries/create-table.sql
var createTableQuery string

//go:embed queries/insert-status.sql
var insertStatusQuery string

//go:embed queries/delete-history.sql
var deleteHistoryQuery string

type repository struct {
	client    clickhouse.Client
	cluster   string
	database  string
	tableName string
}

// NewRepository creates the table if needed. cluster may be empty for a
// single-node server.
func NewRepository(ctx context.Context, client clickhouse.Client, cluster, database, tableName string) (Repository, error) {
	repo := &repository{client: client, cluster: cluster, database: database, tableName: tableName}
	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *repository) onCluster() string {
	if r.cluster == "" {
		return ""
	}
	return "ON CLUSTER " + r.cluster
}

func (r *repository) Name() string { return "clickhouse" }

// Initialize is idempotent.
func (r *repository) Initialize(ctx context.Context) error {
	query := fmt.Sprintf(createTableQuery, r.database, r.tableName, r.onCluster())
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create status history table: %w", err)
	}
	return nil
}

// Write inserts the snapshot as a single batch.
func (r *repository) Write(ctx context.Context, snap watcher.Snapshot) error {
	rows := Rows(snap)
	if len(rows) == 0 {
		return nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, fmt.Sprintf(insertStatusQuery, r.database, r.tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare status batch: %w", err)
	}
	for _, row := range rows {
		if err := batch.Append(row.values()...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append status row %s/%s: %w", row.Chain, row.Direction, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send status batch: %w", err)
	}
	return nil
}

// DeleteHistory drops every row of chain. The mutation runs asynchronously on
// the server.
func (r *repository) DeleteHistory(ctx context.Context, chain string) error {
	query := fmt.Sprintf(deleteHistoryQuery, r.database, r.tableName, r.onCluster())
	if err := r.client.Conn().Exec(ctx, query, chain); err != nil {
		return fmt.Errorf("failed to delete status history: %w", err)
	}
	return nil
}
