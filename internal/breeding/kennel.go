package breeding

import (
	"strconv"

	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/genetics"
)

// KennelClubBreeder selects toward target phenotypes under club guidelines:
// an optional inbreeding ceiling and optional numeric phenotype ranges. Pools
// are first filtered to creatures matching every target phenotype; an empty
// filtered pool falls back to the full eligible pool. Constraint retries
// share the standard budget, and any shortfall is filled from the
// unrestricted pools.
type KennelClubBreeder struct {
	owner   string
	catalog *genetics.Catalog
	targets []Target

	// MaxInbreeding is nil when the club sets no ceiling.
	maxInbreeding *float64
	ranges        []NumericRange
}

// NewKennelClubBreeder creates a constrained phenotype-directed breeder.
func NewKennelClubBreeder(owner string, catalog *genetics.Catalog, targets []Target, maxInbreeding *float64, ranges []NumericRange) *KennelClubBreeder {
	return &KennelClubBreeder{
		owner:         owner,
		catalog:       catalog,
		targets:       targets,
		maxInbreeding: maxInbreeding,
		ranges:        ranges,
	}
}

func (b *KennelClubBreeder) Name() string  { return "kennel_club" }
func (b *KennelClubBreeder) Owner() string { return b.owner }

func (b *KennelClubBreeder) SelectPairs(males, females []*creatures.Creature, count int, stream *entropy.Stream) []Pair {
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
	budget := count * retryBudgetPerPair
	for attempts := 0; len(pairs) < count && attempts < budget; attempts++ {
		sire := pick(matchingMales, stream)
		dam := pick(matchingFemales, stream)

		if b.maxInbreeding != nil &&
			creatures.InbreedingCoefficient(sire, dam) > *b.maxInbreeding {
			continue
		}
		if len(b.ranges) > 0 &&
			(!matchesRanges(sire, b.catalog, b.ranges) || !matchesRanges(dam, b.catalog, b.ranges)) {
			continue
		}
		pairs = append(pairs, Pair{Sire: sire, Dam: dam})
	}

	// Unmet quota falls back to the unrestricted pools.
	for len(pairs) < count {
		pairs = append(pairs, Pair{Sire: pick(males, stream), Dam: pick(females, stream)})
	}
	return pairs
}

// filterByTargets keeps creatures whose phenotype matches every target.
func filterByTargets(pool []*creatures.Creature, cat *genetics.Catalog, targets []Target) []*creatures.Creature {
	if len(targets) == 0 {
		return pool
	}
	var out []*creatures.Creature
	for _, c := range pool {
		if matchesTargets(c, cat, targets) {
			out = append(out, c)
		}
	}
	return out
}

func matchesTargets(c *creatures.Creature, cat *genetics.Catalog, targets []Target) bool {
	for _, target := range targets {
		code, ok := c.Genome[target.TraitID]
		if !ok {
			return false
		}
		phenotype, err := cat.PhenotypeOf(target.TraitID, code, c.Sex)
		if err != nil || phenotype != target.Phenotype {
			return false
		}
	}
	return true
}

// matchesRanges checks numeric phenotype ranges. Non-numeric phenotypes are
// not range-checked.
func matchesRanges(c *creatures.Creature, cat *genetics.Catalog, ranges []NumericRange) bool {
	for _, r := range ranges {
		code, ok := c.Genome[r.TraitID]
		if !ok {
			return false
		}
		phenotype, err := cat.PhenotypeOf(r.TraitID, code, c.Sex)
		if err != nil {
			return false
		}
		v, err := strconv.ParseFloat(phenotype, 64)
		if err != nil {
			continue
		}
		if v < r.Min || v > r.Max {
			return false
		}
	}
	return true
}
