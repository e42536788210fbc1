// Package breeding implements the pluggable pairing strategies. Each breeder
// receives read-only eligible pools, an explicit draw stream, and a quota; it
// never mutates its inputs and never under-fills a quota while both pools are
// non-empty.
package breeding

import (
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
)

// Pair is one selected mating.
type Pair struct {
	Sire *creatures.Creature
	Dam  *creatures.Creature
}

// Breeder selects mating pairs from pre-filtered eligible pools. An empty
// pool on either side yields an empty result; otherwise exactly count pairs
// are returned.
type Breeder interface {
	// Name identifies the strategy.
	Name() string
	// Owner is the tag stamped onto offspring this breeder produces.
	Owner() string
	SelectPairs(males, females []*creatures.Creature, count int, stream *entropy.Stream) []Pair
}

// Target names the phenotype a phenotype-directed breeder selects toward for
// one trait.
type Target struct {
	TraitID   int
	Phenotype string
}

// NumericRange requires a numeric phenotype to fall inside [Min, Max].
type NumericRange struct {
	TraitID int
	Min     float64
	Max     float64
}

// retryBudgetPerPair bounds constrained selection loops. A breeder gets
// count × retryBudgetPerPair draws to satisfy its constraints; any shortfall
// after that is filled with unrestricted draws.
const retryBudgetPerPair = 100

func pick(pool []*creatures.Creature, stream *entropy.Stream) *creatures.Creature {
	return pool[stream.Intn(len(pool))]
}
