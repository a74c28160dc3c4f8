package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/fantasyplatform/waiver-engine/internal/config"
	waiverdomain "github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	postgresrepo "github.com/fantasyplatform/waiver-engine/internal/infrastructure/repository/postgres"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
	idgen "github.com/fantasyplatform/waiver-engine/internal/platform/id"
	"github.com/fantasyplatform/waiver-engine/internal/platform/logging"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
	"github.com/fantasyplatform/waiver-engine/internal/usecase"
)

// WaiverScheduler bundles everything cmd/waiverprocessor needs to run
// league-week sweeps: the same waiver services NewHTTPHandler wires for the
// API, plus a SchedulerLock so multiple scheduler replicas never resolve the
// same league concurrently. It opens its own database connections rather
// than sharing NewHTTPHandler's, so a stuck sweep can't starve API traffic.
type WaiverScheduler struct {
	Service *usecase.WaiverService
	Leagues waiverdomain.LeagueProvider
	Lock    *txrunner.SchedulerLock

	closeDB  func() error
	closePgx func()
}

// Close releases both connection pools. Safe to call once.
func (s *WaiverScheduler) Close() error {
	if s.closePgx != nil {
		s.closePgx()
	}
	if s.closeDB != nil {
		return s.closeDB()
	}
	return nil
}

func NewWaiverScheduler(cfg config.Config, logger *logging.Logger) (*WaiverScheduler, error) {
	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	pgxPool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}

	var waiverClaimsRepo waiverdomain.ClaimsRepository = postgresrepo.NewWaiverClaimsRepository(db)
	var waiverPriorityRepo waiverdomain.PriorityRepository = postgresrepo.NewWaiverPriorityRepository()
	var waiverBudgetRepo waiverdomain.FaabBudgetRepository = postgresrepo.NewWaiverFaabBudgetRepository()
	var waiverWireRepo waiverdomain.WaiverWireRepository = postgresrepo.NewWaiverWireRepository()
	var waiverRunsRepo waiverdomain.ProcessingRunsRepository = postgresrepo.NewWaiverProcessingRunsRepository()
	var waiverLeagueProvider waiverdomain.LeagueProvider = postgresrepo.NewWaiverLeagueProvider(db)
	var rosterRepo = postgresrepo.NewRosterPlayersRepository(db)
	var rosterTxRepo = postgresrepo.NewRosterTransactionsRepository()
	var tradeRepo = postgresrepo.NewTradesRepository()

	waiverRunner := txrunner.NewRunner(db, eventbus.NewNoopBus())

	waiverSubmissionSvc := usecase.NewWaiverSubmissionService(
		waiverClaimsRepo,
		waiverPriorityRepo,
		waiverBudgetRepo,
		waiverWireRepo,
		waiverLeagueProvider,
		rosterRepo,
		waiverRunner,
		idgen.NewUUIDGenerator(),
		logger.Slog(),
	)
	waiverProcessorSvc := usecase.NewWaiverProcessorService(
		waiverClaimsRepo,
		waiverPriorityRepo,
		waiverBudgetRepo,
		waiverWireRepo,
		waiverRunsRepo,
		waiverLeagueProvider,
		rosterRepo,
		rosterTxRepo,
		tradeRepo,
		waiverRunner,
		idgen.NewUUIDGenerator(),
		logger.Slog(),
	)

	return &WaiverScheduler{
		Service:  usecase.NewWaiverService(waiverSubmissionSvc, waiverProcessorSvc),
		Leagues:  waiverLeagueProvider,
		Lock:     txrunner.NewSchedulerLock(pgxPool),
		closeDB:  db.Close,
		closePgx: pgxPool.Close,
	}, nil
}
