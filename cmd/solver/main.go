package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"network-design-service/internal/adapters/distance"
	"network-design-service/internal/adapters/export"
	"network-design-service/internal/adapters/repositories"
	"network-design-service/internal/adapters/scenarios"
	"network-design-service/internal/adapters/solver"
	"network-design-service/internal/adapters/spreadsheet"
	"network-design-service/internal/config"
	"network-design-service/internal/platform/db"
	"network-design-service/internal/ports"
	"network-design-service/internal/services"
)

// Batch entrypoint: runs the four-configuration matrix for one instance and
// exports each solved run to the results directory.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found (using environment variables)")
	}
	setupLogging()

	workbookPath := config.Get("WORKBOOK_PATH", "data/instance.xlsx")
	scenarioDir := config.Get("SCENARIO_DIR", "data/scenarios")
	resultsDir := config.Get("RESULTS_DIR", "data/results")

	req := services.SolveRequest{
		InstanceID:       config.Get("INSTANCE_ID", "default"),
		Periods:          envInt("PERIODS", 1),
		ScenarioCount:    envInt("SCENARIO_COUNT", 1),
		Evaluation:       envBool("EVALUATION", false),
		SamplingID:       envInt("SAMPLING_ID", 0),
		TimeLimitSeconds: envFloat("TIME_LIMIT_SECONDS", 0),
	}

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

	runs, err := designer.SolveMatrix(context.Background(), req)
	if err != nil {
		log.Error().Err(err).Msg("some configurations failed")
	}
	if len(runs) == 0 {
		log.Fatal().Msg("no configuration solved")
	}

	writer := export.NewJSONWriter(resultsDir)
	for _, run := range runs {
		path, err := writer.WriteRun(run)
		if err != nil {
			log.Fatal().Err(err).Str("run_id", run.ID).Msg("export run")
		}
		log.Info().
			Str("run_id", run.ID).
			Str("mode", run.CapacityMode).
			Bool("continuous_assignment", run.ContinuousAssignment).
			Float64("objective", run.Objective).
			Str("path", path).
			Msg("run exported")
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(config.Get(key, strconv.Itoa(fallback)))
	if err != nil {
		log.Fatal().Str("key", key).Err(err).Msg("invalid integer setting")
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(config.Get(key, strconv.FormatFloat(fallback, 'f', -1, 64)), 64)
	if err != nil {
		log.Fatal().Str("key", key).Err(err).Msg("invalid float setting")
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(config.Get(key, strconv.FormatBool(fallback)))
	if err != nil {
		log.Fatal().Str("key", key).Err(err).Msg("invalid boolean setting")
	}
	return v
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
	sq, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite database %q: %w", dbPath, err)
	}
	if err := sq.Ping(); err != nil {
		sq.Close()
		return nil, nil, fmt.Errorf("verify sqlite connection to %q: %w", dbPath, err)
	}
	if err := repositories.InitSchema(sq); err != nil {
		sq.Close()
		return nil, nil, err
	}
	return repositories.NewSqliteRunRepository(sq), func() { sq.Close() }, nil
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
