package creatures

import (
	"fmt"

	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/genetics"
)

// NewOffspring synthesizes one offspring conceived this cycle. Both parents
// must already carry assigned identities. Draw order is fixed: sex first,
// then per trait a paternal and a maternal gamete in catalog order, then the
// lifespan. Changing this order breaks replay.
func NewOffspring(sire, dam *Creature, conceptionCycle int, cat *genetics.Catalog, lc Lifecycle, stream *entropy.Stream) (*Creature, error) {
	if !sire.Persisted() {
		return nil, UnassignedParentError{Role: "sire"}
	}
	if !dam.Persisted() {
		return nil, UnassignedParentError{Role: "dam"}
	}

	sex := genetics.SexMale
	if stream.Intn(2) == 1 {
		sex = genetics.SexFemale
	}

	genome := make(map[int]string, len(cat.Traits()))
	for _, t := range cat.Traits() {
		paternal, err := cat.Gamete(t.ID, sire.Genome[t.ID], sire.Sex, stream)
		if err != nil {
			return nil, fmt.Errorf("sire gamete for trait %d: %w", t.ID, err)
		}
		maternal, err := cat.Gamete(t.ID, dam.Genome[t.ID], dam.Sex, stream)
		if err != nil {
			return nil, fmt.Errorf("dam gamete for trait %d: %w", t.ID, err)
		}
		code, err := cat.Combine(t.ID, paternal, maternal, sex)
		if err != nil {
			return nil, fmt.Errorf("combine trait %d: %w", t.ID, err)
		}
		genome[t.ID] = code
	}

	birth := conceptionCycle + lc.GestationCycles
	return &Creature{
		Sex:               sex,
		Genome:            genome,
		Parent1:           sire.ID,
		Parent2:           dam.ID,
		ConceptionCycle:   conceptionCycle,
		BirthCycle:        birth,
		MaturityCycle:     birth + lc.MaturityCycles,
		MaxFertilityCycle: birth + lc.MaxFertilityAge(sex),
		Lifespan:          lc.SampleLifespan(stream),
		InbreedingCoeff:   InbreedingCoefficient(sire, dam),
		Alive:             true,
	}, nil
}
