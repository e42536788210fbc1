// Package persistence implements the engine's output boundary: identity
// assignment and batch writes for creatures, plus per-cycle statistics. Three
// stores share the contract: in-memory (tests), SQLite (default), and
// Postgres.
package persistence

import (
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/population"
)

// Sink is the engine-facing write contract. The engine never reads back from
// the sink mid-cycle. Batches must preserve parent-before-child ordering;
// persisting a creature whose parent has no identity is a fatal invariant
// breach.
type Sink interface {
	// AssignIdentity persists one creature and stamps its identity.
	AssignIdentity(c *creatures.Creature) (int64, error)
	// PersistBatch persists the cycle's new creatures in order.
	PersistBatch(cs []*creatures.Creature) error
	// PersistCycleStats records one cycle's statistics snapshot.
	PersistCycleStats(stats population.CycleStats) error
}

// Store is the full run-scoped surface the binaries use: the sink plus run
// bookkeeping.
type Store interface {
	Sink
	// BeginRun opens a run record and returns its identifier.
	BeginRun(seed int64, cycles int) (string, error)
	// SaveTraits records the run's trait catalog.
	SaveTraits(cat *genetics.Catalog) error
	// FinishRun closes the run record with its outcome.
	FinishRun(status string, cyclesCompleted, finalPopulation int) error
	Close() error
}

// checkParents enforces the referential-integrity precondition on a creature
// about to be written. Self-parenting needs no check here: the creature's
// identity does not exist yet, so a parent reference to it fails the
// known-identity check in the memory store and the foreign keys in the
// database stores.
func checkParents(c *creatures.Creature) error {
	if c.Founder() {
		return nil
	}
	if c.Parent1 == creatures.Unassigned {
		return creatures.UnassignedParentError{Role: "sire"}
	}
	if c.Parent2 == creatures.Unassigned {
		return creatures.UnassignedParentError{Role: "dam"}
	}
	return nil
}
