// Package engine runs the cycle state machine: pairing, conception,
// disposition, ownership churn, statistics, persistence, and eviction, in a
// fixed order each cycle.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/gene-sim/internal/breeding"
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/persistence"
	"github.com/talgya/gene-sim/internal/population"
)

// Simulation wires the run's components together and owns all mutation of
// the population. One Simulation runs one seed; the single entropy stream is
// threaded through every stochastic decision in cycle order, so an identical
// seed and configuration replays bit-identically.
type Simulation struct {
	Catalog    *genetics.Catalog
	Lifecycle  creatures.Lifecycle
	Population *population.Population
	Breeders   []breeding.Breeder
	Sink       persistence.Sink
	Stream     *entropy.Stream

	// ChurnProbability is the per-creature, per-cycle chance of an
	// ownership transfer.
	ChurnProbability float64

	// owners caches the breeder owner tags in configuration order; churn
	// and disposition draw new owners from it.
	owners []string

	cycle int
}

// New creates a simulation over an already-populated population. Founders
// must be persisted (and owner-tagged) before the first cycle runs.
func New(cat *genetics.Catalog, lc creatures.Lifecycle, pop *population.Population, breeders []breeding.Breeder, sink persistence.Sink, stream *entropy.Stream, churn float64) *Simulation {
	owners := make([]string, len(breeders))
	for i, b := range breeders {
		owners[i] = b.Owner()
	}
	return &Simulation{
		Catalog:          cat,
		Lifecycle:        lc,
		Population:       pop,
		Breeders:         breeders,
		Sink:             sink,
		Stream:           stream,
		ChurnProbability: churn,
		owners:           owners,
	}
}

// Cycle returns the next cycle number to execute.
func (s *Simulation) Cycle() int {
	return s.cycle
}

// Run executes the given number of cycles and returns every cycle's
// statistics snapshot. A failed cycle aborts the run.
func (s *Simulation) Run(cycles int) ([]population.CycleStats, error) {
	out := make([]population.CycleStats, 0, cycles)
	for i := 0; i < cycles; i++ {
		stats, err := s.RunCycle()
		if err != nil {
			return out, fmt.Errorf("cycle %d: %w", s.cycle, err)
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *Simulation) logCycleReport(stats population.CycleStats, pairs, conceived, forced int) {
	slog.Info("cycle report",
		"cycle", stats.Cycle,
		"population", stats.PopulationSize,
		"eligible_males", stats.EligibleMales,
		"eligible_females", stats.EligibleFemales,
		"pairs", pairs,
		"conceived", conceived,
		"births", stats.Births,
		"deaths", stats.Deaths,
		"forced_pairs", forced,
	)
}
