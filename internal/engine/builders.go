package engine

import (
	"fmt"

	"github.com/talgya/gene-sim/internal/breeding"
	"github.com/talgya/gene-sim/internal/config"
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
)

// BuildBreeders instantiates the configured breeders in a fixed order:
// random, inbreeding avoidance, kennel club, unrestricted phenotype. The
// order determines quota-remainder assignment and owner-tag numbering, so it
// never varies between runs.
func BuildBreeders(cfg *config.Config, cat *genetics.Catalog) []breeding.Breeder {
	targets := make([]breeding.Target, 0, len(cfg.TargetPhenotypes))
	for _, tp := range cfg.TargetPhenotypes {
		targets = append(targets, breeding.Target{TraitID: tp.TraitID, Phenotype: tp.Phenotype})
	}

	var maxInbreeding *float64
	var ranges []breeding.NumericRange
	if kc := cfg.Breeders.KennelClubConfig; kc != nil {
		maxInbreeding = kc.MaxInbreedingCoefficient
		for _, pr := range kc.PhenotypeRanges {
			ranges = append(ranges, breeding.NumericRange{TraitID: pr.TraitID, Min: pr.Min, Max: pr.Max})
		}
	}

	var breeders []breeding.Breeder
	for i := 0; i < cfg.Breeders.Random; i++ {
		breeders = append(breeders, breeding.NewRandomBreeder(ownerTag("random", i)))
	}
	for i := 0; i < cfg.Breeders.InbreedingAvoidance; i++ {
		breeders = append(breeders, breeding.NewInbreedingAvoidanceBreeder(
			ownerTag("avoidance", i), *cfg.Breeders.InbreedingCeiling))
	}
	for i := 0; i < cfg.Breeders.KennelClub; i++ {
		breeders = append(breeders, breeding.NewKennelClubBreeder(
			ownerTag("kennel", i), cat, targets, maxInbreeding, ranges))
	}
	for i := 0; i < cfg.Breeders.UnrestrictedPhenotype; i++ {
		breeders = append(breeders, breeding.NewUnrestrictedPhenotypeBreeder(
			ownerTag("phenotype", i), cat, targets))
	}
	return breeders
}

func ownerTag(strategy string, i int) string {
	return fmt.Sprintf("%s-%d", strategy, i+1)
}

// AssignFounderOwners distributes founders round-robin across the breeders'
// owner tags.
func AssignFounderOwners(founders []*creatures.Creature, breeders []breeding.Breeder) {
	if len(breeders) == 0 {
		return
	}
	for i, f := range founders {
		f.Owner = breeders[i%len(breeders)].Owner()
	}
}
