package breeding

import (
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
)

// InbreedingAvoidanceBreeder accepts only pairs whose prospective offspring
// inbreeding coefficient stays at or below a configured ceiling. When the
// retry budget runs out, the shortfall is filled with unrestricted draws;
// over-ceiling pairs forced in that way are counted, not hidden.
type InbreedingAvoidanceBreeder struct {
	owner   string
	ceiling float64
	forced  int
}

// NewInbreedingAvoidanceBreeder creates an avoidance breeder with the given
// owner tag and inbreeding ceiling.
func NewInbreedingAvoidanceBreeder(owner string, ceiling float64) *InbreedingAvoidanceBreeder {
	return &InbreedingAvoidanceBreeder{owner: owner, ceiling: ceiling}
}

func (b *InbreedingAvoidanceBreeder) Name() string  { return "inbreeding_avoidance" }
func (b *InbreedingAvoidanceBreeder) Owner() string { return b.owner }

// TakeForcedPairs returns the number of over-ceiling pairs forced by budget
// exhaustion since the last call, and resets the counter.
func (b *InbreedingAvoidanceBreeder) TakeForcedPairs() int {
	n := b.forced
	b.forced = 0
	return n
}

func (b *InbreedingAvoidanceBreeder) SelectPairs(males, females []*creatures.Creature, count int, stream *entropy.Stream) []Pair {
	if len(males) == 0 || len(females) == 0 {
		return nil
	}

	pairs := make([]Pair, 0, count)
	budget := count * retryBudgetPerPair
	for attempts := 0; len(pairs) < count && attempts < budget; attempts++ {
		sire := pick(males, stream)
		dam := pick(females, stream)
		if creatures.InbreedingCoefficient(sire, dam) <= b.ceiling {
			pairs = append(pairs, Pair{Sire: sire, Dam: dam})
		}
	}

	// Budget exhausted: fill the quota with unrestricted draws.
	for len(pairs) < count {
		sire := pick(males, stream)
		dam := pick(females, stream)
		if creatures.InbreedingCoefficient(sire, dam) > b.ceiling {
			b.forced++
		}
		pairs = append(pairs, Pair{Sire: sire, Dam: dam})
	}
	return pairs
}
