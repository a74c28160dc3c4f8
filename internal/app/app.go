package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/fantasyplatform/waiver-engine/internal/config"
	waiverdomain "github.com/fantasyplatform/waiver-engine/internal/domain/waiver"
	"github.com/fantasyplatform/waiver-engine/internal/infrastructure/account/anubis"
	postgresrepo "github.com/fantasyplatform/waiver-engine/internal/infrastructure/repository/postgres"
	"github.com/fantasyplatform/waiver-engine/internal/interfaces/httpapi"
	"github.com/fantasyplatform/waiver-engine/internal/platform/eventbus"
	idgen "github.com/fantasyplatform/waiver-engine/internal/platform/id"
	"github.com/fantasyplatform/waiver-engine/internal/platform/logging"
	"github.com/fantasyplatform/waiver-engine/internal/platform/resilience"
	"github.com/fantasyplatform/waiver-engine/internal/platform/txrunner"
	"github.com/fantasyplatform/waiver-engine/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// NewHTTPHandler wires the waiver engine's HTTP surface: postgres-backed
// waiver repositories, the submission and processor services that sit atop
// them, and the account-service token verifier that gates every authorized
// route. The returned close func releases the database connection.
func NewHTTPHandler(cfg config.Config, logger *logging.Logger) (http.Handler, func() error, error) {
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	var waiverClaimsRepo waiverdomain.ClaimsRepository = postgresrepo.NewWaiverClaimsRepository(db)
	var waiverPriorityRepo waiverdomain.PriorityRepository = postgresrepo.NewWaiverPriorityRepository()
	var waiverBudgetRepo waiverdomain.FaabBudgetRepository = postgresrepo.NewWaiverFaabBudgetRepository()
	var waiverWireRepo waiverdomain.WaiverWireRepository = postgresrepo.NewWaiverWireRepository()
	var waiverRunsRepo waiverdomain.ProcessingRunsRepository = postgresrepo.NewWaiverProcessingRunsRepository()
	var waiverLeagueProvider waiverdomain.LeagueProvider = postgresrepo.NewWaiverLeagueProvider(db)
	rosterRepo := postgresrepo.NewRosterPlayersRepository(db)
	rosterTxRepo := postgresrepo.NewRosterTransactionsRepository()
	tradeRepo := postgresrepo.NewTradesRepository()
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
	waiverSvc := usecase.NewWaiverService(waiverSubmissionSvc, waiverProcessorSvc)

	anubisClient := anubis.NewClient(
		&http.Client{Timeout: cfg.AnubisTimeout},
		cfg.AnubisBaseURL,
		cfg.AnubisIntrospectURL,
		cfg.AnubisAdminKey,
		resilience.CircuitBreakerConfig{
			Enabled:          cfg.AnubisCircuitEnabled,
			FailureThreshold: cfg.AnubisCircuitFailureCount,
			OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
		},
	)

	handler := httpapi.NewHandler(waiverSvc, logger)
	router := httpapi.NewRouter(
		handler,
		anubisClient,
		logger,
		cfg.SwaggerEnabled,
		cfg.CORSAllowedOrigins,
		cfg.InternalJobToken,
		cfg.UptraceCaptureRequestBody,
		cfg.UptraceRequestBodyMaxBytes,
	)

	return router, db.Close, nil
}
