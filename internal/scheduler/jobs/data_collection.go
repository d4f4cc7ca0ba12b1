package jobs

import (
	"context"

	"github.com/wonny/snapshot-engine/internal/orchestrator"
	"github.com/wonny/snapshot-engine/pkg/logger"
)

// FullRunJob runs the complete ingest-to-snapshot pipeline.
// ⭐ SSOT: 전체 파이프라인 스케줄은 이 Job에서만
type FullRunJob struct {
	orch         *orchestrator.Orchestrator
	lookbackDays int
	logger       *logger.Logger
}

// NewFullRunJob creates a new full-run job.
func NewFullRunJob(orch *orchestrator.Orchestrator, lookbackDays int, log *logger.Logger) *FullRunJob {
	return &FullRunJob{orch: orch, lookbackDays: lookbackDays, logger: log}
}

func (j *FullRunJob) Name() string { return "full_run" }

// Schedule runs nightly after the market closes.
func (j *FullRunJob) Schedule() string { return "0 0 19 * * *" }

func (j *FullRunJob) Run(ctx context.Context) error {
	result, err := j.orch.Run(ctx, "", j.lookbackDays)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"asof_date":     result.AsofDate,
		"tickers":       result.Tickers,
		"price_rows":    result.PriceRows,
		"cap_rows":      result.CapRows,
		"snapshot_rows": result.SnapshotRows,
	}).Info("full run completed")
	return nil
}

// SnapshotRebuildJob rebuilds the snapshot table from already-cached
// price/cap/fundamental data, without touching the market-data client.
type SnapshotRebuildJob struct {
	orch         *orchestrator.Orchestrator
	lookbackDays int
	logger       *logger.Logger
}

// NewSnapshotRebuildJob creates a new snapshot-rebuild job.
func NewSnapshotRebuildJob(orch *orchestrator.Orchestrator, lookbackDays int, log *logger.Logger) *SnapshotRebuildJob {
	return &SnapshotRebuildJob{orch: orch, lookbackDays: lookbackDays, logger: log}
}

func (j *SnapshotRebuildJob) Name() string { return "snapshot_rebuild" }

// Schedule runs hourly during the trading day for intraday cache recalculation.
func (j *SnapshotRebuildJob) Schedule() string { return "0 0 9-15 * * MON-FRI" }

func (j *SnapshotRebuildJob) Run(ctx context.Context) error {
	result, err := j.orch.RebuildSnapshotOnly(ctx, "", j.lookbackDays)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"asof_date":     result.AsofDate,
		"snapshot_rows": result.SnapshotRows,
	}).Info("snapshot rebuild completed")
	return nil
}

// ReserveOnlyJob scrapes and persists reserve ratios without touching
// price/cap/fundamental caches.
type ReserveOnlyJob struct {
	orch         *orchestrator.Orchestrator
	chainRebuild bool
	logger       *logger.Logger
}

// NewReserveOnlyJob creates a new reserve-ratio-only job.
func NewReserveOnlyJob(orch *orchestrator.Orchestrator, chainRebuild bool, log *logger.Logger) *ReserveOnlyJob {
	return &ReserveOnlyJob{orch: orch, chainRebuild: chainRebuild, logger: log}
}

func (j *ReserveOnlyJob) Name() string { return "reserve_ratio_update" }

// Schedule runs twice a day; reserve ratio changes infrequently.
func (j *ReserveOnlyJob) Schedule() string { return "0 0 6,18 * * *" }

func (j *ReserveOnlyJob) Run(ctx context.Context) error {
	result, err := j.orch.UpdateReserveRatioOnly(ctx, "", j.chainRebuild)
	if err != nil {
		return err
	}
	j.logger.WithFields(map[string]interface{}{
		"asof_date":          result.AsofDate,
		"reserve_ratio_rows": result.ReserveRatioRows,
		"chained_rebuild":    j.chainRebuild,
	}).Info("reserve ratio update completed")
	return nil
}
