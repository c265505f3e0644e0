package jobs

import (
	"context"
	"time"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/metrics"
	"github.com/Govind-619/StudyHub/utils"
)

// Job names, also used as lock keys
const (
	EvaluateTiersJob    = "evaluate-tiers"
	RecalculateStatsJob = "recalculate-stats"
)

// Runner executes batch jobs one at a time per job name
type Runner struct {
	engine  *commission.Engine
	locker  Locker
	timeout time.Duration
}

func NewRunner(engine *commission.Engine, locker Locker, timeout time.Duration) *Runner {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{engine: engine, locker: locker, timeout: timeout}
}

// EvaluateTiers runs the tier evaluator under the job lock
func (r *Runner) EvaluateTiers(ctx context.Context) (*commission.EvaluationReport, error) {
	var report *commission.EvaluationReport
	err := r.run(ctx, EvaluateTiersJob, func(ctx context.Context) error {
		var err error
		report, err = r.engine.EvaluateTiers(ctx)
		return err
	})
	return report, err
}

// RecalculateStats runs the full rebuild under the job lock
func (r *Runner) RecalculateStats(ctx context.Context) (*commission.RecalculationReport, error) {
	var report *commission.RecalculationReport
	err := r.run(ctx, RecalculateStatsJob, func(ctx context.Context) error {
		var err error
		report, err = r.engine.RecalculateStats(ctx)
		return err
	})
	return report, err
}

func (r *Runner) run(ctx context.Context, name string, fn func(context.Context) error) error {
	release, err := r.locker.Acquire(ctx, name, r.timeout)
	if err != nil {
		utils.LogError("Job %s not started: %v", name, err)
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	utils.LogInfo("Job %s started", name)
	err = fn(ctx)
	metrics.RecordJobRun(name, err)
	if err != nil {
		utils.LogError("Job %s failed: %v", name, err)
		return err
	}
	utils.LogInfo("Job %s completed", name)
	return nil
}
