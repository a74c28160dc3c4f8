package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/fantasyplatform/waiver-engine/internal/app"
	"github.com/fantasyplatform/waiver-engine/internal/config"
	"github.com/fantasyplatform/waiver-engine/internal/platform/logging"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
)

// cmd/waiverprocessor runs the scheduled waiver resolution sweep as a
// standalone process, separate from the API server so a slow or stuck sweep
// never blocks request traffic. It polls the set of leagues with active
// waivers every WaiverProcessorSweepInterval, and for each one takes the
// SchedulerLock before processing so two replicas never resolve the same
// league concurrently.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(baseLogger)
	defer baseLogger.Sync()

	scheduler, err := app.NewWaiverScheduler(cfg, baseLogger)
	if err != nil {
		baseLogger.Error("build waiver scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Close()

	pool, err := ants.NewPool(cfg.WaiverProcessorPoolSize)
	if err != nil {
		baseLogger.Error("create worker pool", "error", err)
		os.Exit(1)
	}
	defer pool.Release()

	sched, err := gocron.NewScheduler()
	if err != nil {
		baseLogger.Error("create scheduler", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweep := func() {
		runSweep(ctx, baseLogger, scheduler, pool)
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(cfg.WaiverProcessorSweepInterval),
		gocron.NewTask(sweep),
	); err != nil {
		baseLogger.Error("register sweep job", "error", err)
		os.Exit(1)
	}

	sched.Start()
	baseLogger.Info("waiver processor started", "sweep_interval", cfg.WaiverProcessorSweepInterval.String(), "pool_size", cfg.WaiverProcessorPoolSize)

	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		baseLogger.Error("scheduler shutdown failed", "error", err)
	}

	baseLogger.Info("waiver processor stopped")
}

// runSweep discovers every league with active waivers and resolves each
// one's pending claims, bounded by the ants worker pool so a league with a
// slow external call can't starve the others. Leagues already held by
// another replica are skipped, not retried, since the next tick will find
// them again if they're still eligible.
func runSweep(ctx context.Context, logger *logging.Logger, scheduler *app.WaiverScheduler, pool *ants.Pool) {
	leagueIDs, err := scheduler.Leagues.ListLeaguesWithActiveWaivers(ctx)
	if err != nil {
		logger.Error("list leagues with active waivers", "error", err)
		return
	}
	if len(leagueIDs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, leagueID := range leagueIDs {
		leagueID := leagueID
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			processLeague(ctx, logger, scheduler, leagueID)
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("submit league sweep", "league_id", leagueID, "error", submitErr)
		}
	}
	wg.Wait()
}

func processLeague(ctx context.Context, logger *logging.Logger, scheduler *app.WaiverScheduler, leagueID string) {
	release, ok, err := scheduler.Lock.TryAcquire(ctx, txrunner.DomainWaiver, leagueID)
	if err != nil {
		logger.Error("acquire scheduler lock", "league_id", leagueID, "error", err)
		return
	}
	if !ok {
		logger.Info("league sweep already in progress elsewhere, skipping", "league_id", leagueID)
		return
	}
	defer release(ctx)

	result, err := scheduler.Service.ProcessLeagueClaims(ctx, leagueID)
	if err != nil {
		logger.Error("process league claims", "league_id", leagueID, "error", err)
		return
	}

	logger.Info("league sweep complete",
		"league_id", leagueID,
		"processed", result.Processed,
		"successful", result.Successful,
	)
}
