// Command genesim runs a multi-generational breeding simulation from a
// configuration file and records the run in a database.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gene-sim/internal/config"
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/engine"
	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/persistence"
	"github.com/talgya/gene-sim/internal/population"
)

func main() {
	configPath := flag.String("config", "", "path to the simulation config (YAML or JSON)")
	dbPath := flag.String("db", "genesim.db", "path to the SQLite result database")
	pgDSN := flag.String("pg", "", "Postgres DSN; overrides -db when set")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *configPath == "" {
		slog.Error("missing -config")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"path", *configPath,
		"seed", cfg.Seed,
		"cycles", cfg.Cycles,
		"initial_population", cfg.InitialPopulationSize,
		"traits", len(cfg.Traits),
	)

	// ── Database ──────────────────────────────────────────────────────
	var store persistence.Store
	if *pgDSN != "" {
		store, err = persistence.OpenPostgres(*pgDSN)
	} else {
		store, err = persistence.OpenSQLite(*dbPath)
	}
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	runID, err := store.BeginRun(cfg.Seed, cfg.Cycles)
	if err != nil {
		slog.Error("failed to begin run", "error", err)
		os.Exit(1)
	}
	slog.Info("run started", "run_id", runID)

	// ── Catalog and founders (deterministic from seed) ────────────────
	cat, err := cfg.Catalog()
	if err != nil {
		slog.Error("invalid trait catalog", "error", err)
		os.Exit(1)
	}
	if err := store.SaveTraits(cat); err != nil {
		slog.Error("failed to save traits", "error", err)
		os.Exit(1)
	}

	stream := entropy.New(cfg.Seed)
	lc := cfg.Lifecycle()
	spawner := &creatures.Spawner{
		Catalog:   cat,
		Lifecycle: lc,
		MaleRatio: cfg.InitialSexRatio.Male,
	}
	founders, err := spawner.SpawnFounders(cfg.InitialPopulationSize, stream)
	if err != nil {
		slog.Error("failed to spawn founders", "error", err)
		os.Exit(1)
	}

	breeders := engine.BuildBreeders(cfg, cat)
	engine.AssignFounderOwners(founders, breeders)

	// Founders are persisted before any breeding so every creature holds an
	// identity before it can become a parent.
	if err := store.PersistBatch(founders); err != nil {
		slog.Error("failed to persist founders", "error", err)
		os.Exit(1)
	}
	slog.Info("founders spawned",
		"count", humanize.Comma(int64(len(founders))),
		"breeders", len(breeders),
	)

	pop := population.New()
	pop.Add(founders, 0)

	// ── Run ───────────────────────────────────────────────────────────
	sim := engine.New(cat, lc, pop, breeders, store, stream,
		cfg.Creature.OwnershipChurnProbability)

	stats, err := sim.Run(cfg.Cycles)
	if err != nil {
		slog.Error("run aborted", "error", err, "cycles_completed", len(stats))
		if ferr := store.FinishRun("failed", len(stats), pop.Size()); ferr != nil {
			slog.Error("failed to record run failure", "error", ferr)
		}
		os.Exit(1)
	}
	if err := store.FinishRun("completed", len(stats), pop.Size()); err != nil {
		slog.Error("failed to finish run", "error", err)
		os.Exit(1)
	}

	totalBirths := 0
	totalDeaths := 0
	for _, st := range stats {
		totalBirths += st.Births
		totalDeaths += st.Deaths
	}
	slog.Info("run completed",
		"run_id", runID,
		"cycles", len(stats),
		"final_population", humanize.Comma(int64(pop.Size())),
		"births", humanize.Comma(int64(totalBirths)),
		"deaths", humanize.Comma(int64(totalDeaths)),
	)
}
