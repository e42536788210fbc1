package breeding

import (
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/genetics"
)

// UnrestrictedPhenotypeBreeder applies the same target-phenotype pool filter
// as the kennel club but draws immediately, with no retry loop and no further
// constraints.
type UnrestrictedPhenotypeBreeder struct {
	owner   string
	catalog *genetics.Catalog
	targets []Target
}

// NewUnrestrictedPhenotypeBreeder creates an unconstrained phenotype-directed
// breeder.
func NewUnrestrictedPhenotypeBreeder(owner string, catalog *genetics.Catalog, targets []Target) *UnrestrictedPhenotypeBreeder {
	return &UnrestrictedPhenotypeBreeder{owner: owner, catalog: catalog, targets: targets}
}

func (b *UnrestrictedPhenotypeBreeder) Name() string  { return "unrestricted_phenotype" }
func (b *UnrestrictedPhenotypeBreeder) Owner() string { return b.owner }

func (b *UnrestrictedPhenotypeBreeder) SelectPairs(males, females []*creatures.Creature, count int, stream *entropy.Stream) []Pair {
	if len(males) == 0 || len(females) == 0 {
		return nil
	}

	matchingMales := filterByTargets(males, b.catalog, b.targets)
	matchingFemales := filterByTargets(females, b.catalog, b.targets)
	if len(matchingMales) == 0 {
		matchingMales = males
	}
	if len(matchingFemales) == 0 {
		matchingFemales = females
	}

	pairs := make([]Pair, 0, count)
	for i := 0; i < count; i++ {
		pairs = append(pairs, Pair{Sire: pick(matchingMales, stream), Dam: pick(matchingFemales, stream)})
	}
	return pairs
}
