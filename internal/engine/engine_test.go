package engine

import (
	"testing"

	"github.com/talgya/gene-sim/internal/breeding"
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/persistence"
	"github.com/talgya/gene-sim/internal/population"
)

func coatCatalog(t *testing.T) *genetics.Catalog {
	t.Helper()
	cat, err := genetics.NewCatalog([]genetics.Trait{{
		ID:   0,
		Name: "coat",
		Kind: genetics.SimpleMendelian,
		Genotypes: []genetics.Genotype{
			{Code: "BB", Phenotype: "black", InitialFreq: 0.25},
			{Code: "Bb", Phenotype: "black", InitialFreq: 0.5},
			{Code: "bb", Phenotype: "brown", InitialFreq: 0.25},
		},
	}})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return cat
}

func shortLifecycle() creatures.Lifecycle {
	return creatures.Lifecycle{
		GestationCycles:    2,
		NursingCycles:      1,
		MaturityCycles:     3,
		MaxFertilityMale:   50,
		MaxFertilityFemale: 40,
		LifespanMin:        30,
		LifespanMax:        30,
		NearingEndCycles:   2,
	}
}

func newFounder(sex genetics.Sex, genotype, owner string, lc creatures.Lifecycle) *creatures.Creature {
	return &creatures.Creature{
		Sex:               sex,
		Genome:            map[int]string{0: genotype},
		MaturityCycle:     lc.MaturityCycles,
		MaxFertilityCycle: lc.MaxFertilityAge(sex),
		Lifespan:          lc.LifespanMin,
		Owner:             owner,
		Alive:             true,
	}
}

// newSim persists the founders, seeds a population with them, and wires a
// simulation over a memory store.
func newSim(t *testing.T, founders []*creatures.Creature, breeders []breeding.Breeder, seed int64) (*Simulation, *persistence.MemoryStore) {
	t.Helper()
	cat := coatCatalog(t)
	lc := shortLifecycle()

	store := persistence.NewMemoryStore()
	if err := store.PersistBatch(founders); err != nil {
		t.Fatalf("persist founders: %v", err)
	}
	pop := population.New()
	pop.Add(founders, 0)

	return New(cat, lc, pop, breeders, store, entropy.New(seed), 0.12), store
}

func TestRecessiveFrequencyNeverRises(t *testing.T) {
	lc := shortLifecycle()
	founders := []*creatures.Creature{
		newFounder(genetics.SexMale, "BB", "random-1", lc),
		newFounder(genetics.SexFemale, "BB", "random-1", lc),
		newFounder(genetics.SexFemale, "bb", "random-1", lc),
	}
	sim, store := newSim(t, founders, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 7)

	// Enough cycles for several litters to be conceived and born.
	if _, err := sim.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}

	offspringCount := len(store.Creatures) - 3
	if offspringCount == 0 {
		t.Fatal("no offspring were produced")
	}

	// BB×BB gives BB and BB×bb gives Bb, so no new bb can appear: its
	// frequency over all creatures must not exceed the starting 1/3.
	bb := 0
	for _, c := range store.Creatures {
		if c.Genome[0] == "bb" {
			bb++
		}
	}
	if bb != 1 {
		t.Fatalf("bb count = %d, want exactly the founding dam", bb)
	}
	freq := float64(bb) / float64(len(store.Creatures))
	if freq > 1.0/3.0 {
		t.Fatalf("bb frequency %v exceeds starting value", freq)
	}
	if limit := 1.0 / float64(3+offspringCount); freq > limit {
		t.Fatalf("bb frequency %v exceeds %v", freq, limit)
	}
}

func TestDeterministicReplay(t *testing.T) {
	lc := shortLifecycle()
	build := func() (*Simulation, *persistence.MemoryStore) {
		founders := []*creatures.Creature{
			newFounder(genetics.SexMale, "Bb", "random-1", lc),
			newFounder(genetics.SexMale, "BB", "avoidance-1", lc),
			newFounder(genetics.SexFemale, "Bb", "random-1", lc),
			newFounder(genetics.SexFemale, "bb", "avoidance-1", lc),
		}
		return newSim(t, founders, []breeding.Breeder{
			breeding.NewRandomBreeder("random-1"),
			breeding.NewInbreedingAvoidanceBreeder("avoidance-1", 0.25),
		}, 99)
	}

	simA, storeA := build()
	simB, storeB := build()
	statsA, err := simA.Run(8)
	if err != nil {
		t.Fatalf("run A: %v", err)
	}
	statsB, err := simB.Run(8)
	if err != nil {
		t.Fatalf("run B: %v", err)
	}

	if len(storeA.Creatures) != len(storeB.Creatures) {
		t.Fatalf("creature counts diverged: %d vs %d", len(storeA.Creatures), len(storeB.Creatures))
	}
	for i := range storeA.Creatures {
		a, b := storeA.Creatures[i], storeB.Creatures[i]
		if a.Sex != b.Sex || a.Genome[0] != b.Genome[0] ||
			a.Parent1 != b.Parent1 || a.Parent2 != b.Parent2 ||
			a.Lifespan != b.Lifespan {
			t.Fatalf("creature %d diverged between identical seeds", i)
		}
	}
	for i := range statsA {
		if statsA[i].PopulationSize != statsB[i].PopulationSize ||
			statsA[i].Births != statsB[i].Births ||
			statsA[i].Deaths != statsB[i].Deaths {
			t.Fatalf("cycle %d stats diverged", i)
		}
	}
}

func TestMonogamyPerCycle(t *testing.T) {
	lc := shortLifecycle()
	founders := []*creatures.Creature{
		newFounder(genetics.SexMale, "Bb", "random-1", lc),
		newFounder(genetics.SexMale, "BB", "random-1", lc),
		newFounder(genetics.SexFemale, "Bb", "random-1", lc),
		newFounder(genetics.SexFemale, "bb", "random-1", lc),
		newFounder(genetics.SexFemale, "BB", "random-1", lc),
	}
	sim, store := newSim(t, founders, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 5)

	before := len(store.Creatures)
	// Advance to the first cycle where everyone is mature.
	for i := 0; i < lc.MaturityCycles+1; i++ {
		if _, err := sim.RunCycle(); err != nil {
			t.Fatalf("RunCycle: %v", err)
		}
	}

	// Within any single cycle, each sire appears at most once.
	byCycle := make(map[int]map[int64]bool)
	for _, c := range store.Creatures[before:] {
		sires := byCycle[c.ConceptionCycle]
		if sires == nil {
			sires = make(map[int64]bool)
			byCycle[c.ConceptionCycle] = sires
		}
		if sires[c.Parent1] {
			t.Fatalf("sire %d mated twice in cycle %d", c.Parent1, c.ConceptionCycle)
		}
		sires[c.Parent1] = true
	}
	if len(byCycle) == 0 {
		t.Fatal("no offspring were conceived")
	}
}

func TestDamTimersStampedAtConception(t *testing.T) {
	lc := shortLifecycle()
	dam := newFounder(genetics.SexFemale, "bb", "random-1", lc)
	founders := []*creatures.Creature{
		newFounder(genetics.SexMale, "BB", "random-1", lc),
		dam,
	}
	sim, store := newSim(t, founders, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 3)

	// Run until the single pair conceives.
	conceptionCycle := -1
	for i := 0; i < lc.MaturityCycles+2; i++ {
		before := len(store.Creatures)
		if _, err := sim.RunCycle(); err != nil {
			t.Fatalf("RunCycle: %v", err)
		}
		if len(store.Creatures) > before {
			conceptionCycle = i
			break
		}
	}
	if conceptionCycle < 0 {
		t.Fatal("no conception happened")
	}

	if want := conceptionCycle + lc.GestationCycles; dam.GestationEndCycle != want {
		t.Fatalf("gestation end = %d, want %d", dam.GestationEndCycle, want)
	}
	if want := dam.GestationEndCycle + lc.NursingCycles; dam.NursingEndCycle != want {
		t.Fatalf("nursing end = %d, want %d", dam.NursingEndCycle, want)
	}
	// The dam is out of the pool until nursing ends.
	if dam.Eligible(conceptionCycle + 1) {
		t.Fatal("gestating dam still eligible")
	}
	if !dam.Eligible(dam.NursingEndCycle) {
		t.Fatal("dam not eligible after nursing ends")
	}
}

func TestEligibleCountsCapturedBeforePairing(t *testing.T) {
	lc := shortLifecycle()
	sire := newFounder(genetics.SexMale, "BB", "random-1", lc)
	sire.MaturityCycle = 0
	damA := newFounder(genetics.SexFemale, "bb", "random-1", lc)
	damA.MaturityCycle = 0
	damB := newFounder(genetics.SexFemale, "Bb", "random-1", lc)
	damB.MaturityCycle = 0

	sim, store := newSim(t, []*creatures.Creature{sire, damA, damB},
		[]breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 17)

	stats, err := sim.RunCycle()
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(store.Creatures) != 4 {
		t.Fatalf("persisted %d creatures, want 3 founders + 1 offspring", len(store.Creatures))
	}

	// The mated dam's gestation timer is stamped at conception, but the
	// reported counts are the pool sizes from before pairing.
	if stats.EligibleMales != 1 || stats.EligibleFemales != 2 {
		t.Fatalf("eligible counts = (%d, %d), want (1, 2)",
			stats.EligibleMales, stats.EligibleFemales)
	}
}

func TestDispositionTransfersOffspringOutOfPool(t *testing.T) {
	lc := shortLifecycle()
	founders := []*creatures.Creature{
		newFounder(genetics.SexMale, "BB", "random-1", lc),
		newFounder(genetics.SexFemale, "bb", "random-1", lc),
	}
	sim, store := newSim(t, founders, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 11)

	for i := 0; i < lc.MaturityCycles+2; i++ {
		if _, err := sim.RunCycle(); err != nil {
			t.Fatalf("RunCycle: %v", err)
		}
	}

	// No founder is nearing its fertility end, so every offspring is
	// transferred: persisted, but never part of the working pool.
	if len(store.Creatures) <= 2 {
		t.Fatal("no offspring were persisted")
	}
	if sim.Population.Size() != 2 {
		t.Fatalf("population size = %d, want only the 2 founders", sim.Population.Size())
	}
}

func TestDispositionRetainsReplacementNearFertilityEnd(t *testing.T) {
	lc := shortLifecycle()
	sire := newFounder(genetics.SexMale, "BB", "random-1", lc)
	// Mature immediately and within the nearing-end window from cycle 0.
	sire.MaturityCycle = 0
	sire.MaxFertilityCycle = lc.NearingEndCycles
	dam := newFounder(genetics.SexFemale, "bb", "random-1", lc)
	dam.MaturityCycle = 0

	sim, store := newSim(t, []*creatures.Creature{sire, dam}, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 13)

	if _, err := sim.RunCycle(); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(store.Creatures) != 3 {
		t.Fatalf("persisted %d creatures, want 3", len(store.Creatures))
	}
	// The single offspring is retained as the sire's replacement.
	if sim.Population.Size() != 3 {
		t.Fatalf("population size = %d, want 3 (replacement retained)", sim.Population.Size())
	}
	child := store.Creatures[2]
	if child.Owner != "random-1" {
		t.Fatalf("replacement owner = %q, want random-1", child.Owner)
	}
}

func TestEmptyPoolIsNotAnError(t *testing.T) {
	lc := shortLifecycle()
	founders := []*creatures.Creature{
		newFounder(genetics.SexMale, "BB", "random-1", lc),
	}
	sim, store := newSim(t, founders, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 1)

	stats, err := sim.Run(5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats) != 5 {
		t.Fatalf("got %d cycle stats, want 5", len(stats))
	}
	if len(store.Creatures) != 1 {
		t.Fatalf("creatures = %d, want just the lone founder", len(store.Creatures))
	}
}

func TestGenotypeFrequenciesSumToOneEachCycle(t *testing.T) {
	lc := shortLifecycle()
	founders := []*creatures.Creature{
		newFounder(genetics.SexMale, "Bb", "random-1", lc),
		newFounder(genetics.SexFemale, "Bb", "random-1", lc),
		newFounder(genetics.SexFemale, "bb", "random-1", lc),
	}
	sim, _ := newSim(t, founders, []breeding.Breeder{breeding.NewRandomBreeder("random-1")}, 21)

	stats, err := sim.Run(12)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, st := range stats {
		if st.PopulationSize == 0 {
			continue
		}
		sum := 0.0
		for _, f := range st.Traits[0].GenotypeFrequencies {
			sum += f
		}
		if sum < 0.999 || sum > 1.001 {
			t.Fatalf("cycle %d: genotype frequencies sum to %v", st.Cycle, sum)
		}
	}
}
