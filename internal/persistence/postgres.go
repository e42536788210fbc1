package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/population"
)

// PostgresStore persists a run into Postgres behind the same Store contract
// as the SQLite store. Selected when the database target is a postgres DSN.
type PostgresStore struct {
	conn  *sqlx.DB
	runID string
}

// OpenPostgres connects to Postgres via the pgx stdlib driver and applies the
// schema.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.conn.Close()
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed BIGINT NOT NULL,
		cycles INTEGER NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('running', 'completed', 'failed')),
		cycles_completed INTEGER NOT NULL DEFAULT 0,
		final_population INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS traits (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		trait_id INTEGER NOT NULL CHECK(trait_id >= 0 AND trait_id < 100),
		name TEXT NOT NULL,
		trait_type TEXT NOT NULL,
		PRIMARY KEY (run_id, trait_id)
	);

	CREATE TABLE IF NOT EXISTS trait_genotypes (
		run_id TEXT NOT NULL,
		trait_id INTEGER NOT NULL,
		genotype TEXT NOT NULL,
		phenotype TEXT NOT NULL,
		initial_freq DOUBLE PRECISION NOT NULL CHECK(initial_freq >= 0.0 AND initial_freq <= 1.0),
		sex TEXT CHECK(sex IN ('male', 'female')),
		FOREIGN KEY (run_id, trait_id) REFERENCES traits(run_id, trait_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS creatures (
		creature_id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		sex TEXT NOT NULL CHECK(sex IN ('male', 'female')),
		parent1_id BIGINT REFERENCES creatures(creature_id),
		parent2_id BIGINT REFERENCES creatures(creature_id),
		conception_cycle INTEGER NOT NULL CHECK(conception_cycle >= 0),
		birth_cycle INTEGER NOT NULL CHECK(birth_cycle >= 0),
		lifespan INTEGER NOT NULL CHECK(lifespan > 0),
		inbreeding_coefficient DOUBLE PRECISION NOT NULL CHECK(inbreeding_coefficient >= 0.0 AND inbreeding_coefficient <= 1.0),
		owner TEXT NOT NULL DEFAULT '',
		CHECK((parent1_id IS NULL) = (parent2_id IS NULL)),
		CHECK(parent1_id IS NULL OR parent1_id <> creature_id),
		CHECK(parent2_id IS NULL OR parent2_id <> creature_id)
	);

	CREATE TABLE IF NOT EXISTS creature_genotypes (
		creature_id BIGINT NOT NULL REFERENCES creatures(creature_id) ON DELETE CASCADE,
		trait_id INTEGER NOT NULL,
		genotype TEXT NOT NULL,
		PRIMARY KEY (creature_id, trait_id)
	);

	CREATE TABLE IF NOT EXISTS cycle_stats (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		cycle INTEGER NOT NULL CHECK(cycle >= 0),
		population_size INTEGER NOT NULL CHECK(population_size >= 0),
		eligible_males INTEGER NOT NULL CHECK(eligible_males >= 0),
		eligible_females INTEGER NOT NULL CHECK(eligible_females >= 0),
		births INTEGER NOT NULL CHECK(births >= 0),
		deaths INTEGER NOT NULL CHECK(deaths >= 0),
		PRIMARY KEY (run_id, cycle)
	);

	CREATE TABLE IF NOT EXISTS cycle_trait_stats (
		run_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		trait_id INTEGER NOT NULL,
		genotype_frequencies JSONB NOT NULL,
		allele_frequencies JSONB NOT NULL,
		heterozygosity DOUBLE PRECISION NOT NULL,
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
func (s *PostgresStore) BeginRun(seed int64, cycles int) (string, error) {
	s.runID = uuid.NewString()
	_, err := s.conn.Exec(
		"INSERT INTO runs (run_id, seed, cycles, status) VALUES ($1, $2, $3, 'running')",
		s.runID, seed, cycles,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return s.runID, nil
}

// SaveTraits records the run's trait catalog.
func (s *PostgresStore) SaveTraits(cat *genetics.Catalog) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range cat.Traits() {
		if _, err := tx.Exec(
			"INSERT INTO traits (run_id, trait_id, name, trait_type) VALUES ($1, $2, $3, $4)",
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
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				s.runID, t.ID, g.Code, g.Phenotype, g.InitialFreq, sex,
			); err != nil {
				return fmt.Errorf("insert genotype %s for trait %d: %w", g.Code, t.ID, err)
			}
		}
	}
	return tx.Commit()
}

// FinishRun closes the run record.
func (s *PostgresStore) FinishRun(status string, cyclesCompleted, finalPopulation int) error {
	_, err := s.conn.Exec(
		"UPDATE runs SET status = $1, cycles_completed = $2, final_population = $3 WHERE run_id = $4",
		status, cyclesCompleted, finalPopulation, s.runID,
	)
	return err
}

// AssignIdentity inserts one creature and its genotype rows and stamps the
// returned identity back onto it.
func (s *PostgresStore) AssignIdentity(c *creatures.Creature) (int64, error) {
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
	var id int64
	err := s.conn.Get(&id,
		`INSERT INTO creatures
		 (run_id, sex, parent1_id, parent2_id, conception_cycle, birth_cycle,
		  lifespan, inbreeding_coefficient, owner)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING creature_id`,
		s.runID, c.Sex.String(), p1, p2, c.ConceptionCycle, c.BirthCycle,
		c.Lifespan, c.InbreedingCoeff, c.Owner,
	)
	if err != nil {
		return 0, fmt.Errorf("insert creature: %w", err)
	}

	for _, traitID := range sortedTraitIDs(c.Genome) {
		if _, err := s.conn.Exec(
			"INSERT INTO creature_genotypes (creature_id, trait_id, genotype) VALUES ($1, $2, $3)",
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
func (s *PostgresStore) PersistBatch(cs []*creatures.Creature) error {
	for _, c := range cs {
		if _, err := s.AssignIdentity(c); err != nil {
			return err
		}
	}
	return nil
}

// PersistCycleStats records one cycle's snapshot.
func (s *PostgresStore) PersistCycleStats(stats population.CycleStats) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO cycle_stats
		 (run_id, cycle, population_size, eligible_males, eligible_females, births, deaths)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.runID, stats.Cycle, ts.TraitID, string(genotypeJSON), string(alleleJSON),
			ts.Heterozygosity, ts.GenotypeDiversity,
		); err != nil {
			return fmt.Errorf("insert trait %d stats for cycle %d: %w", ts.TraitID, stats.Cycle, err)
		}
	}
	return tx.Commit()
}
