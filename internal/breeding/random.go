package breeding

import (
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/entropy"
)

// RandomBreeder pairs eligible males and females uniformly with no selection
// bias.
type RandomBreeder struct {
	owner string
}

// NewRandomBreeder creates an unrestricted random breeder with the given
// owner tag.
func NewRandomBreeder(owner string) *RandomBreeder {
	return &RandomBreeder{owner: owner}
}

func (b *RandomBreeder) Name() string  { return "random" }
func (b *RandomBreeder) Owner() string { return b.owner }

func (b *RandomBreeder) SelectPairs(males, females []*creatures.Creature, count int, stream *entropy.Stream) []Pair {
	if len(males) == 0 || len(females) == 0 {
		return nil
	}
	pairs := make([]Pair, 0, count)
	for i := 0; i < count; i++ {
		pairs = append(pairs, Pair{Sire: pick(males, stream), Dam: pick(females, stream)})
	}
	return pairs
}
