package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"network-design-service/internal/adapters/distance"
	"network-design-service/internal/adapters/repositories"
	"network-design-service/internal/adapters/scenarios"
	"network-design-service/internal/adapters/solver"
	"network-design-service/internal/adapters/spreadsheet"
	"network-design-service/internal/api"
	"network-design-service/internal/config"
	"network-design-service/internal/platform/db"
	"network-design-service/internal/ports"
	"network-design-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (xlsx, JSON scenarios, SQLite/Postgres, bundled
// solver) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found (using environment variables)")
	}
	setupLogging()

	workbookPath := config.Get("WORKBOOK_PATH", "data/instance.xlsx")
	scenarioDir := config.Get("SCENARIO_DIR", "data/scenarios")
	port := config.Get("PORT", "8080")

	store, closeStore, err := openRunStore()
	if err != nil {
		log.Fatal().Err(err).Msg("open run store")
	}
	defer closeStore()

	workbook := spreadsheet.NewWorkbook(workbookPath)
	distances, err := openDistances(workbook)
	if err != nil {
		log.Fatal().Err(err).Msg("load distances")
	}

	scenarioLoader := scenarios.NewJSONLoader(scenarioDir, workbook)
	designer := services.NewNetworkDesigner(
		workbook, workbook, scenarioLoader, distances,
		func() ports.MILPSolver { return solver.New() },
		store,
	)

	router := api.NewRouter(designer, store)

	// Write timeout covers long solver runs; prefer request-level TimeLimit.
	log.Info().Str("addr", ":"+port).Msg("server listening")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal().Err(srv.ListenAndServe()).Msg("server stopped")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// openRunStore picks Postgres when DATABASE_URL is set, SQLite otherwise.
func openRunStore() (ports.RunStore, func(), error) {
	if databaseURL := config.Get("DATABASE_URL", ""); strings.TrimSpace(databaseURL) != "" {
		pg, err := db.Open(databaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repositories.InitPostgresSchema(context.Background(), pg); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return repositories.NewPostgresRunRepository(pg), func() { pg.Close() }, nil
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	sq, err := openSqlite(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := repositories.InitSchema(sq); err != nil {
		sq.Close()
		return nil, nil, err
	}
	return repositories.NewSqliteRunRepository(sq), func() { sq.Close() }, nil
}

func openSqlite(dbPath string) (*sql.DB, error) {
	sq, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := sq.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return sq, nil
}

// openDistances prefers the workbook's distance matrix and falls back to
// haversine distances derived from coordinates.
func openDistances(workbook *spreadsheet.Workbook) (ports.DistanceLookup, error) {
	lookup, err := workbook.LoadDistances()
	if err == nil {
		return lookup, nil
	}
	log.Warn().Err(err).Msg("no distance matrix, deriving geodesic distances")

	ctx := context.Background()
	facilities, ferr := workbook.LoadFacilities(ctx)
	if ferr != nil {
		return nil, ferr
	}
	zones, zerr := workbook.LoadZones(ctx)
	if zerr != nil {
		return nil, zerr
	}
	for _, f := range facilities {
		if f.IsDepot {
			return distance.NewGeodesicLookup(facilities, zones, f.Location), nil
		}
	}
	return nil, fmt.Errorf("load distances: no depot-flagged facility for geodesic fallback")
}
