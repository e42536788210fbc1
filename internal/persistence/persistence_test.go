package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/population"
)

func coatCatalog(t *testing.T) *genetics.Catalog {
	t.Helper()
	cat, err := genetics.NewCatalog([]genetics.Trait{{
		ID:   0,
		Name: "coat",
		Kind: genetics.SimpleMendelian,
		Genotypes: []genetics.Genotype{
			{Code: "BB", Phenotype: "black", InitialFreq: 0.5},
			{Code: "bb", Phenotype: "brown", InitialFreq: 0.5},
		},
	}})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return cat
}

func founder(sex genetics.Sex, genotype string) *creatures.Creature {
	return &creatures.Creature{
		Sex:      sex,
		Genome:   map[int]string{0: genotype},
		Lifespan: 10,
		Alive:    true,
	}
}

func TestMemoryStoreAssignsSequentialIdentities(t *testing.T) {
	m := NewMemoryStore()
	a := founder(genetics.SexMale, "BB")
	b := founder(genetics.SexFemale, "bb")

	if err := m.PersistBatch([]*creatures.Creature{a, b}); err != nil {
		t.Fatalf("PersistBatch: %v", err)
	}
	if a.ID != 1 || b.ID != 2 {
		t.Fatalf("ids = (%d, %d), want (1, 2)", a.ID, b.ID)
	}
}

func TestMemoryStoreRejectsOrphanedOffspring(t *testing.T) {
	m := NewMemoryStore()
	orphan := &creatures.Creature{
		Sex:      genetics.SexMale,
		Genome:   map[int]string{0: "Bb"},
		Parent1:  7,
		Parent2:  8,
		Lifespan: 10,
	}
	err := m.PersistBatch([]*creatures.Creature{orphan})
	var upe creatures.UnassignedParentError
	if !errors.As(err, &upe) {
		t.Fatalf("expected UnassignedParentError, got %v", err)
	}
}

func TestMemoryStoreRejectsSelfParentReference(t *testing.T) {
	m := NewMemoryStore()
	sire := founder(genetics.SexMale, "BB")
	dam := founder(genetics.SexFemale, "bb")
	if err := m.PersistBatch([]*creatures.Creature{sire, dam}); err != nil {
		t.Fatalf("persist founders: %v", err)
	}

	// Parent1 names the identity this creature would itself receive; the
	// known-identity check must reject it as an unpersisted parent.
	cyclic := &creatures.Creature{
		Sex:      genetics.SexFemale,
		Genome:   map[int]string{0: "Bb"},
		Parent1:  3,
		Parent2:  dam.ID,
		Lifespan: 10,
	}
	err := m.PersistBatch([]*creatures.Creature{cyclic})
	var upe creatures.UnassignedParentError
	if !errors.As(err, &upe) {
		t.Fatalf("expected UnassignedParentError, got %v", err)
	}
	if upe.Role != "sire" {
		t.Fatalf("role = %q, want sire", upe.Role)
	}
	if cyclic.Persisted() {
		t.Fatal("rejected creature received an identity")
	}
}

func TestMemoryStoreParentBeforeChild(t *testing.T) {
	m := NewMemoryStore()
	sire := founder(genetics.SexMale, "BB")
	dam := founder(genetics.SexFemale, "bb")
	if err := m.PersistBatch([]*creatures.Creature{sire, dam}); err != nil {
		t.Fatalf("persist founders: %v", err)
	}

	child := &creatures.Creature{
		Sex:      genetics.SexFemale,
		Genome:   map[int]string{0: "Bb"},
		Parent1:  sire.ID,
		Parent2:  dam.ID,
		Lifespan: 10,
	}
	if err := m.PersistBatch([]*creatures.Creature{child}); err != nil {
		t.Fatalf("persist child: %v", err)
	}
	if !child.Persisted() {
		t.Fatal("child has no identity after persist")
	}
}

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "run.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTestDB(t)
	cat := coatCatalog(t)

	runID, err := s.BeginRun(42, 10)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}
	if err := s.SaveTraits(cat); err != nil {
		t.Fatalf("SaveTraits: %v", err)
	}

	sire := founder(genetics.SexMale, "BB")
	dam := founder(genetics.SexFemale, "bb")
	if err := s.PersistBatch([]*creatures.Creature{sire, dam}); err != nil {
		t.Fatalf("persist founders: %v", err)
	}
	child := &creatures.Creature{
		Sex:             genetics.SexFemale,
		Genome:          map[int]string{0: "Bb"},
		Parent1:         sire.ID,
		Parent2:         dam.ID,
		ConceptionCycle: 1,
		BirthCycle:      4,
		Lifespan:        10,
		Owner:           "random-1",
	}
	if err := s.PersistBatch([]*creatures.Creature{child}); err != nil {
		t.Fatalf("persist child: %v", err)
	}

	stats := population.CycleStats{
		Cycle:           1,
		PopulationSize:  3,
		EligibleMales:   1,
		EligibleFemales: 1,
		Births:          0,
		Deaths:          0,
		Traits: []population.TraitStats{{
			TraitID:             0,
			GenotypeFrequencies: map[string]float64{"BB": 1.0 / 3, "bb": 1.0 / 3, "Bb": 1.0 / 3},
			AlleleFrequencies:   map[string]float64{"B": 0.5, "b": 0.5},
			Heterozygosity:      1.0 / 3,
			GenotypeDiversity:   3,
		}},
	}
	if err := s.PersistCycleStats(stats); err != nil {
		t.Fatalf("PersistCycleStats: %v", err)
	}
	if err := s.FinishRun("completed", 1, 3); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != runID || runs[0].Status != "completed" {
		t.Fatalf("runs = %+v", runs)
	}

	cycles, err := s.CycleSeries(runID)
	if err != nil {
		t.Fatalf("CycleSeries: %v", err)
	}
	if len(cycles) != 1 || cycles[0].PopulationSize != 3 {
		t.Fatalf("cycles = %+v", cycles)
	}

	series, err := s.TraitSeries(runID, 0)
	if err != nil {
		t.Fatalf("TraitSeries: %v", err)
	}
	if len(series) != 1 || series[0].GenotypeDiversity != 3 {
		t.Fatalf("trait series = %+v", series)
	}

	traits, err := s.RunTraits(runID)
	if err != nil {
		t.Fatalf("RunTraits: %v", err)
	}
	if len(traits) != 1 || traits[0].Name != "coat" {
		t.Fatalf("traits = %+v", traits)
	}
}

func TestSQLiteRejectsOrphanedOffspring(t *testing.T) {
	s := openTestDB(t)
	if _, err := s.BeginRun(1, 1); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	orphan := &creatures.Creature{
		Sex:      genetics.SexMale,
		Genome:   map[int]string{0: "Bb"},
		Parent1:  99,
		Parent2:  0,
		Lifespan: 10,
	}
	err := s.PersistBatch([]*creatures.Creature{orphan})
	var upe creatures.UnassignedParentError
	if !errors.As(err, &upe) {
		t.Fatalf("expected UnassignedParentError, got %v", err)
	}
	if upe.Role != "dam" {
		t.Fatalf("role = %q, want dam", upe.Role)
	}
}

func TestAssignIdentityIsIdempotent(t *testing.T) {
	s := openTestDB(t)
	if _, err := s.BeginRun(1, 1); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	c := founder(genetics.SexMale, "BB")
	id1, err := s.AssignIdentity(c)
	if err != nil {
		t.Fatalf("AssignIdentity: %v", err)
	}
	id2, err := s.AssignIdentity(c)
	if err != nil {
		t.Fatalf("AssignIdentity (repeat): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("repeat assignment changed identity: %d vs %d", id1, id2)
	}
}
