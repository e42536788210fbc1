package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/population"
)

// SQLiteStore persists a run into a SQLite database.
type SQLiteStore struct {
	conn  *sqlx.DB
	runID string
}

// OpenSQLite opens or creates a SQLite database at the given path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		cycles INTEGER NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('running', 'completed', 'failed')),
		cycles_completed INTEGER NOT NULL DEFAULT 0,
		final_population INTEGER,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS traits (
		run_id TEXT NOT NULL,
		trait_id INTEGER NOT NULL CHECK(trait_id >= 0 AND trait_id < 100),
		name TEXT NOT NULL,
		trait_type TEXT NOT NULL,
		PRIMARY KEY (run_id, trait_id),
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS trait_genotypes (
		run_id TEXT NOT NULL,
		trait_id INTEGER NOT NULL,
		genotype TEXT NOT NULL,
		phenotype TEXT NOT NULL,
		initial_freq REAL NOT NULL CHECK(initial_freq >= 0.0 AND initial_freq <= 1.0),
		sex TEXT CHECK(sex IN ('male', 'female')),
		FOREIGN KEY (run_id, trait_id) REFERENCES traits(run_id, trait_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS creatures (
		creature_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		sex TEXT NOT NULL CHECK(sex IN ('male', 'female')),
		parent1_id INTEGER,
		parent2_id INTEGER,
		conception_cycle INTEGER NOT NULL CHECK(conception_cycle >= 0),
		birth_cycle INTEGER NOT NULL CHECK(birth_cycle >= 0),
		lifespan INTEGER NOT NULL CHECK(lifespan > 0),
		inbreeding_coefficient REAL NOT NULL CHECK(inbreeding_coefficient >= 0.0 AND inbreeding_coefficient <= 1.0),
		owner TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
		FOREIGN KEY (parent1_id) REFERENCES creatures(creature_id),
		FOREIGN KEY (parent2_id) REFERENCES creatures(creature_id),
		CHECK((parent1_id IS NULL) = (parent2_id IS NULL)),
		CHECK(parent1_id IS NULL OR parent1_id <> creature_id),
		CHECK(parent2_id IS NULL OR parent2_id <> creature_id)
	);

	CREATE TABLE IF NOT EXISTS creature_genotypes (
		creature_id INTEGER NOT NULL,
		trait_id INTEGER NOT NULL,
		genotype TEXT NOT NULL,
		PRIMARY KEY (creature_id, trait_id),
		FOREIGN KEY (creature_id) REFERENCES creatures(creature_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS cycle_stats (
		run_id TEXT NOT NULL,
		cycle INTEGER NOT NULL CHECK(cycle >= 0),
		population_size INTEGER NOT NULL CHECK(population_size >= 0),
		eligible_males INTEGER NOT NULL CHECK(eligible_males >= 0),
		eligible_females INTEGER NOT NULL CHECK(eligible_females >= 0),
		births INTEGER NOT NULL CHECK(births >= 0),
		deaths INTEGER NOT NULL CHECK(deaths >= 0),
		PRIMARY KEY (run_id, cycle),
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS cycle_trait_stats (
		run_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		trait_id INTEGER NOT NULL,
		genotype_frequencies TEXT NOT NULL,
		allele_frequencies TEXT NOT NULL,
		heterozygosity REAL NOT NULL,
		genotype_diversity INTEGER NOT NULL,
		PRIMARY KEY (run_id, cycle, trait_id),
		FOREIGN KEY (run_id, cycle) REFERENCES cycle_stats(run_id, cycle) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_creatures_run ON creatures(run_id);
	CREATE INDEX IF NOT EXISTS idx_creatures_birth ON creatures(run_id, birth_cycle);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BeginRun opens a run record and returns its UUID.
func (s *SQLiteStore) BeginRun(seed int64, cycles int) (string, error) {
	s.runID = uuid.NewString()
	_, err := s.conn.Exec(
		"INSERT INTO runs (run_id, seed, cycles, status) VALUES (?, ?, ?, 'running')",
		s.runID, seed, cycles,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return s.runID, nil
}

// SaveTraits records the run's trait catalog.
func (s *SQLiteStore) SaveTraits(cat *genetics.Catalog) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range cat.Traits() {
		if _, err := tx.Exec(
			"INSERT INTO traits (run_id, trait_id, name, trait_type) VALUES (?, ?, ?, ?)",
			s.runID, t.ID, t.Name, string(t.Kind),
		); err != nil {
			return fmt.Errorf("insert trait %d: %w", t.ID, err)
		}
		for _, g := range t.Genotypes {
			var sex any
			if g.Sex != nil {
				sex = g.Sex.String()
			}
			if _, err := tx.Exec(
				`INSERT INTO trait_genotypes (run_id, trait_id, genotype, phenotype, initial_freq, sex)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				s.runID, t.ID, g.Code, g.Phenotype, g.InitialFreq, sex,
			); err != nil {
				return fmt.Errorf("insert genotype %s for trait %d: %w", g.Code, t.ID, err)
			}
		}
	}
	return tx.Commit()
}

// FinishRun closes the run record.
func (s *SQLiteStore) FinishRun(status string, cyclesCompleted, finalPopulation int) error {
	_, err := s.conn.Exec(
		"UPDATE runs SET status = ?, cycles_completed = ?, final_population = ? WHERE run_id = ?",
		status, cyclesCompleted, finalPopulation, s.runID,
	)
	return err
}

// AssignIdentity inserts one creature and its genotype rows and stamps the
// rowid back onto it.
func (s *SQLiteStore) AssignIdentity(c *creatures.Creature) (int64, error) {
	if c.Persisted() {
		return c.ID, nil
	}
	if err := checkParents(c); err != nil {
		return 0, err
	}

	var p1, p2 any
	if !c.Founder() {
		p1, p2 = c.Parent1, c.Parent2
	}
	res, err := s.conn.Exec(
		`INSERT INTO creatures
		 (run_id, sex, parent1_id, parent2_id, conception_cycle, birth_cycle,
		  lifespan, inbreeding_coefficient, owner)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, c.Sex.String(), p1, p2, c.ConceptionCycle, c.BirthCycle,
		c.Lifespan, c.InbreedingCoeff, c.Owner,
	)
	if err != nil {
		return 0, fmt.Errorf("insert creature: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("creature rowid: %w", err)
	}

	for _, traitID := range sortedTraitIDs(c.Genome) {
		if _, err := s.conn.Exec(
			"INSERT INTO creature_genotypes (creature_id, trait_id, genotype) VALUES (?, ?, ?)",
			id, traitID, c.Genome[traitID],
		); err != nil {
			return 0, fmt.Errorf("insert genotype for creature %d trait %d: %w", id, traitID, err)
		}
	}

	c.ID = id
	return id, nil
}

// PersistBatch writes the cycle's new creatures in order, preserving
// parent-before-child.
func (s *SQLiteStore) PersistBatch(cs []*creatures.Creature) error {
	for _, c := range cs {
		if _, err := s.AssignIdentity(c); err != nil {
			return err
		}
	}
	return nil
}

// PersistCycleStats records one cycle's snapshot.
func (s *SQLiteStore) PersistCycleStats(stats population.CycleStats) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO cycle_stats
		 (run_id, cycle, population_size, eligible_males, eligible_females, births, deaths)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, stats.Cycle, stats.PopulationSize,
		stats.EligibleMales, stats.EligibleFemales, stats.Births, stats.Deaths,
	); err != nil {
		return fmt.Errorf("insert cycle %d stats: %w", stats.Cycle, err)
	}

	for _, ts := range stats.Traits {
		genotypeJSON, err := json.Marshal(ts.GenotypeFrequencies)
		if err != nil {
			return fmt.Errorf("marshal genotype frequencies: %w", err)
		}
		alleleJSON, err := json.Marshal(ts.AlleleFrequencies)
		if err != nil {
			return fmt.Errorf("marshal allele frequencies: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO cycle_trait_stats
			 (run_id, cycle, trait_id, genotype_frequencies, allele_frequencies,
			  heterozygosity, genotype_diversity)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.runID, stats.Cycle, ts.TraitID, string(genotypeJSON), string(alleleJSON),
			ts.Heterozygosity, ts.GenotypeDiversity,
		); err != nil {
			return fmt.Errorf("insert trait %d stats for cycle %d: %w", ts.TraitID, stats.Cycle, err)
		}
	}
	return tx.Commit()
}

// RunRow is one row of the runs table.
type RunRow struct {
	RunID           string        `db:"run_id"`
	Seed            int64         `db:"seed"`
	Cycles          int           `db:"cycles"`
	Status          string        `db:"status"`
	CyclesCompleted int           `db:"cycles_completed"`
	FinalPopulation sql.NullInt64 `db:"final_population"`
	CreatedAt       string        `db:"created_at"`
}

// CycleRow is one row of the cycle_stats table.
type CycleRow struct {
	Cycle           int `db:"cycle"`
	PopulationSize  int `db:"population_size"`
	EligibleMales   int `db:"eligible_males"`
	EligibleFemales int `db:"eligible_females"`
	Births          int `db:"births"`
	Deaths          int `db:"deaths"`
}

// TraitStatsRow is one row of the cycle_trait_stats table, frequency maps
// still JSON-encoded.
type TraitStatsRow struct {
	Cycle               int     `db:"cycle"`
	TraitID             int     `db:"trait_id"`
	GenotypeFrequencies string  `db:"genotype_frequencies"`
	AlleleFrequencies   string  `db:"allele_frequencies"`
	Heterozygosity      float64 `db:"heterozygosity"`
	GenotypeDiversity   int     `db:"genotype_diversity"`
}

// TraitRow is one row of the traits table.
type TraitRow struct {
	TraitID   int    `db:"trait_id"`
	Name      string `db:"name"`
	TraitType string `db:"trait_type"`
}

// Runs lists run records, newest first.
func (s *SQLiteStore) Runs() ([]RunRow, error) {
	var rows []RunRow
	err := s.conn.Select(&rows, "SELECT * FROM runs ORDER BY created_at DESC")
	return rows, err
}

// CycleSeries returns a run's per-cycle counts in cycle order.
func (s *SQLiteStore) CycleSeries(runID string) ([]CycleRow, error) {
	var rows []CycleRow
	err := s.conn.Select(&rows,
		`SELECT cycle, population_size, eligible_males, eligible_females, births, deaths
		 FROM cycle_stats WHERE run_id = ? ORDER BY cycle`, runID)
	return rows, err
}

// TraitSeries returns a run's per-cycle stats for one trait in cycle order.
func (s *SQLiteStore) TraitSeries(runID string, traitID int) ([]TraitStatsRow, error) {
	var rows []TraitStatsRow
	err := s.conn.Select(&rows,
		`SELECT cycle, trait_id, genotype_frequencies, allele_frequencies,
		        heterozygosity, genotype_diversity
		 FROM cycle_trait_stats WHERE run_id = ? AND trait_id = ? ORDER BY cycle`,
		runID, traitID)
	return rows, err
}

// RunTraits lists a run's traits in id order.
func (s *SQLiteStore) RunTraits(runID string) ([]TraitRow, error) {
	var rows []TraitRow
	err := s.conn.Select(&rows,
		"SELECT trait_id, name, trait_type FROM traits WHERE run_id = ? ORDER BY trait_id", runID)
	return rows, err
}

func sortedTraitIDs(genome map[int]string) []int {
	ids := make([]int, 0, len(genome))
	for id := range genome {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
