package population

import (
	"github.com/talgya/gene-sim/internal/genetics"
)

// TraitStats holds one trait's frequency metrics for one cycle.
type TraitStats struct {
	TraitID             int
	GenotypeFrequencies map[string]float64
	AlleleFrequencies   map[string]float64
	Heterozygosity      float64
	GenotypeDiversity   int
}

// CycleStats is the immutable per-cycle snapshot. It is computed before the
// cycle's eviction, so counts and frequencies reflect the pre-removal
// population, and it is never mutated afterward.
type CycleStats struct {
	Cycle           int
	PopulationSize  int
	EligibleMales   int
	EligibleFemales int
	Births          int
	Deaths          int
	Traits          []TraitStats
}

// Snapshot computes the cycle's statistics with full re-scans of the working
// set. The eligible counts are supplied by the caller from the pools captured
// before pairing, because conception stamps dam timers mid-cycle and a
// re-filter here would drop every dam that conceived. Traits are scanned in
// catalog order so snapshots replay identically.
func (p *Population) Snapshot(cat *genetics.Catalog, now, eligibleMales, eligibleFemales, births, deaths int) CycleStats {
	stats := CycleStats{
		Cycle:           now,
		PopulationSize:  p.Size(),
		EligibleMales:   eligibleMales,
		EligibleFemales: eligibleFemales,
		Births:          births,
		Deaths:          deaths,
	}
	for _, t := range cat.Traits() {
		stats.Traits = append(stats.Traits, TraitStats{
			TraitID:             t.ID,
			GenotypeFrequencies: p.genotypeFrequencies(t.ID),
			AlleleFrequencies:   p.alleleFrequencies(cat, t.ID),
			Heterozygosity:      p.heterozygosity(t.ID),
			GenotypeDiversity:   p.genotypeDiversity(t.ID),
		})
	}
	return stats
}

func (p *Population) genotypeFrequencies(traitID int) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, c := range p.members {
		code, ok := c.Genome[traitID]
		if !ok {
			continue
		}
		counts[code]++
		total++
	}
	freqs := make(map[string]float64, len(counts))
	if total == 0 {
		return freqs
	}
	for code, n := range counts {
		freqs[code] = float64(n) / float64(total)
	}
	return freqs
}

func (p *Population) alleleFrequencies(cat *genetics.Catalog, traitID int) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, c := range p.members {
		code, ok := c.Genome[traitID]
		if !ok {
			continue
		}
		alleles, err := cat.Alleles(traitID, code, c.Sex)
		if err != nil {
			continue
		}
		for _, a := range alleles {
			counts[a]++
			total++
		}
	}
	freqs := make(map[string]float64, len(counts))
	if total == 0 {
		return freqs
	}
	for a, n := range counts {
		freqs[a] = float64(n) / float64(total)
	}
	return freqs
}

// heterozygosity is the fraction of carriers whose code has any
// differing-allele locus under the plain mid-split rule, for every trait
// kind.
func (p *Population) heterozygosity(traitID int) float64 {
	het, total := 0, 0
	for _, c := range p.members {
		code, ok := c.Genome[traitID]
		if !ok {
			continue
		}
		total++
		if genetics.Heterozygous(code) {
			het++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(het) / float64(total)
}

func (p *Population) genotypeDiversity(traitID int) int {
	distinct := make(map[string]struct{})
	for _, c := range p.members {
		if code, ok := c.Genome[traitID]; ok {
			distinct[code] = struct{}{}
		}
	}
	return len(distinct)
}
