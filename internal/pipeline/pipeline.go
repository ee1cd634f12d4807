// Package pipeline wires the extraction core together: API client, fallback
// strategist, checkpointed range runner, run assembler and merge engine.
// Commands call into it rather than assembling the pieces themselves.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jonesrussell/gpspull/internal/api"
	"github.com/jonesrussell/gpspull/internal/checkpoint"
	"github.com/jonesrussell/gpspull/internal/config"
	"github.com/jonesrussell/gpspull/internal/dataset"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/extract"
	"github.com/jonesrussell/gpspull/internal/logger"
	"github.com/jonesrussell/gpspull/internal/run"
)

// Pipeline owns the configured collaborators of one extraction pipeline.
type Pipeline struct {
	cfg *config.Config
	log logger.Interface
}

// New creates a pipeline from configuration.
func New(cfg *config.Config, log logger.Interface) *Pipeline {
	return &Pipeline{cfg: cfg, log: log}
}

// ExtractResult reports one completed extraction run.
type ExtractResult struct {
	RunID     string
	RunDir    string
	Resumed   bool
	Summary   extract.Summary
	Artifacts run.Artifacts
}

// Extract runs the day/hour fallback extraction over the given range,
// resuming an interrupted run with the identical range when one exists.
// The checkpoint file is deleted only after every day reached done.
func (p *Pipeline) Extract(ctx context.Context, dateRange domain.DateRange) (ExtractResult, error) {
	var result ExtractResult

	client, err := api.NewClient(p.cfg.API, p.log)
	if err != nil {
		return result, err
	}

	runDir, runID, resumed := run.FindResumable(p.cfg.Extract.RunsDir, dateRange)
	if !resumed {
		runID = run.NewRunID(time.Now())
		runDir = filepath.Join(p.cfg.Extract.RunsDir, runID)
	}
	result.RunID = runID
	result.RunDir = runDir
	result.Resumed = resumed

	log := p.log.WithRunID(runID)
	log.Info("starting extraction",
		"range", dateRange.String(),
		"resumed", resumed)

	assembler, err := run.NewAssembler(runDir, runID, dateRange, log)
	if err != nil {
		return result, err
	}

	cp, err := checkpoint.LoadOrCreate(runDir, runID, dateRange, log)
	if err != nil {
		return result, err
	}

	strategist := extract.NewStrategist(client, p.cfg.Extract.InterHourDelay, log)
	runner := extract.NewRunner(strategist, client, cp, assembler, p.cfg.Extract.InterDayDelay, log)

	summary, runErr := runner.Run(ctx, dateRange)
	result.Summary = summary
	if runErr != nil {
		// Fatal abort: the checkpoint survives so the run is resumable.
		return result, runErr
	}

	artifacts, err := assembler.WriteArtifacts(run.Manifest{
		DaysDone:   summary.DaysDone + summary.DaysResumed,
		DaysFailed: summary.DaysFailed,
		// The summary counts only newly fetched days; the assembler also
		// holds days reloaded from an interrupted invocation.
		Sessions:    assembler.SessionCount(),
		Succeeded:   summary.Succeeded(),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return result, err
	}
	result.Artifacts = artifacts

	if summary.Succeeded() {
		if err := cp.Finalize(); err != nil {
			return result, err
		}
		if err := assembler.CleanupProgress(); err != nil {
			return result, err
		}
	}

	return result, nil
}

// MergeRun folds the flattened CSV of one run into the cumulative dataset,
// filtering rows by athlete name when one is configured. The cumulative file
// is backed up before being rewritten.
func (p *Pipeline) MergeRun(flatCSV, athlete, runID string) (dataset.MergeResult, error) {
	rows, err := dataset.ReadRows(flatCSV)
	if err != nil {
		return dataset.MergeResult{}, fmt.Errorf("failed to read run output: %w", err)
	}

	target := athlete
	if target == "" {
		target = "all players"
	} else {
		rows = filterRows(rows, athlete)
	}

	store := dataset.NewStore(p.cfg.Dataset.Dir, p.log)
	return store.MergeInto(store.PathFor(target), rows, runID)
}

// filterRows keeps rows whose athlete name matches the given substring.
func filterRows(rows []domain.Row, athlete string) []domain.Row {
	var filtered []domain.Row
	for i := range rows {
		if rows[i].MatchesName(athlete) {
			filtered = append(filtered, rows[i])
		}
	}
	return filtered
}

// CatchUp detects the gap between the cumulative dataset and now, extracts
// it and merges the result. It is the scheduled entry point.
func (p *Pipeline) CatchUp(ctx context.Context, now time.Time) error {
	athlete := p.cfg.Dataset.Athlete
	store := dataset.NewStore(p.cfg.Dataset.Dir, p.log)

	target := athlete
	if target == "" {
		target = "all players"
	}
	rows, err := dataset.ReadRows(store.PathFor(target))
	if err != nil {
		return fmt.Errorf("failed to read cumulative dataset: %w", err)
	}

	gap, ok := dataset.GapRange(rows, now)
	if !ok {
		p.log.Info("dataset is up to date, nothing to extract")
		return nil
	}
	p.log.Info("gap detected", "range", gap.String())

	result, err := p.Extract(ctx, gap)
	if err != nil {
		return err
	}
	if !result.Summary.Succeeded() {
		return fmt.Errorf("extraction left %d failed days in %s", result.Summary.DaysFailed, gap)
	}

	if _, err := p.MergeRun(result.Artifacts.FlatCSV, athlete, result.RunID); err != nil {
		return err
	}
	return nil
}
