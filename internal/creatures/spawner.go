package creatures

import (
	"fmt"

	"github.com/talgya/gene-sim/internal/entropy"
	"github.com/talgya/gene-sim/internal/genetics"
)

// Spawner builds the founder generation: creatures with no parents,
// conceived and born at cycle zero, with genomes drawn from the catalog's
// initial frequencies.
type Spawner struct {
	Catalog   *genetics.Catalog
	Lifecycle Lifecycle

	// MaleRatio is the normalized probability a founder draws male.
	MaleRatio float64
}

// SpawnFounders creates count founders. Draw order per founder is fixed: sex,
// then one genotype per trait in catalog order, then the lifespan.
func (s *Spawner) SpawnFounders(count int, stream *entropy.Stream) ([]*Creature, error) {
	founders := make([]*Creature, 0, count)
	for i := 0; i < count; i++ {
		sex := genetics.SexFemale
		if stream.Float64() < s.MaleRatio {
			sex = genetics.SexMale
		}

		genome := make(map[int]string, len(s.Catalog.Traits()))
		for _, t := range s.Catalog.Traits() {
			code, err := s.Catalog.SampleGenotype(t.ID, sex, stream)
			if err != nil {
				return nil, fmt.Errorf("spawn founder %d: %w", i, err)
			}
			genome[t.ID] = code
		}

		founders = append(founders, &Creature{
			Sex:               sex,
			Genome:            genome,
			ConceptionCycle:   0,
			BirthCycle:        0,
			MaturityCycle:     s.Lifecycle.MaturityCycles,
			MaxFertilityCycle: s.Lifecycle.MaxFertilityAge(sex),
			Lifespan:          s.Lifecycle.SampleLifespan(stream),
			Alive:             true,
		})
	}
	return founders, nil
}
