// Package config loads and validates simulation configuration from YAML or
// JSON files. The engine never re-validates its inputs, so everything it
// assumes about the configuration is enforced here.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
)

// Config is the complete, validated configuration of one simulation run.
type Config struct {
	Seed                  int64    `yaml:"seed" json:"seed"`
	Cycles                int      `yaml:"cycles" json:"cycles"`
	InitialPopulationSize int      `yaml:"initial_population_size" json:"initial_population_size"`
	InitialSexRatio       SexRatio `yaml:"initial_sex_ratio" json:"initial_sex_ratio"`

	Creature CreatureConfig `yaml:"creature" json:"creature"`
	Breeders BreederCounts  `yaml:"breeders" json:"breeders"`

	TargetPhenotypes []TargetPhenotype `yaml:"target_phenotypes" json:"target_phenotypes"`
	Traits           []TraitConfig     `yaml:"traits" json:"traits"`
}

// SexRatio is the founder sex distribution. Normalized to sum to 1.0.
type SexRatio struct {
	Male   float64 `yaml:"male" json:"male"`
	Female float64 `yaml:"female" json:"female"`
}

// PerSex holds a cycle count that differs between the sexes.
type PerSex struct {
	Male   int `yaml:"male" json:"male"`
	Female int `yaml:"female" json:"female"`
}

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// CreatureConfig holds the cycle-denominated lifecycle constants shared by
// every creature in the run.
type CreatureConfig struct {
	GestationCycles           int     `yaml:"gestation_cycles" json:"gestation_cycles"`
	NursingCycles             int     `yaml:"nursing_cycles" json:"nursing_cycles"`
	MaturityCycles            int     `yaml:"maturity_cycles" json:"maturity_cycles"`
	MaxFertilityAgeCycles     PerSex  `yaml:"max_fertility_age_cycles" json:"max_fertility_age_cycles"`
	LifespanCycles            Range   `yaml:"lifespan_cycles" json:"lifespan_cycles"`
	NearingEndCycles          int     `yaml:"nearing_end_cycles" json:"nearing_end_cycles"`
	OwnershipChurnProbability float64 `yaml:"ownership_churn_probability" json:"ownership_churn_probability"`
}

// BreederCounts configures how many breeders of each strategy take part, plus
// the constraint knobs of the constrained strategies.
type BreederCounts struct {
	Random                int `yaml:"random" json:"random"`
	InbreedingAvoidance   int `yaml:"inbreeding_avoidance" json:"inbreeding_avoidance"`
	KennelClub            int `yaml:"kennel_club" json:"kennel_club"`
	UnrestrictedPhenotype int `yaml:"unrestricted_phenotype" json:"unrestricted_phenotype"`

	// InbreedingCeiling caps the offspring inbreeding coefficient the
	// avoidance breeder accepts. Defaults to 0.25 when omitted.
	InbreedingCeiling *float64 `yaml:"inbreeding_ceiling" json:"inbreeding_ceiling"`

	KennelClubConfig *KennelClubConfig `yaml:"kennel_club_config" json:"kennel_club_config"`
}

// KennelClubConfig constrains the kennel-club breeder beyond the shared
// target phenotypes.
type KennelClubConfig struct {
	MaxInbreedingCoefficient *float64         `yaml:"max_inbreeding_coefficient" json:"max_inbreeding_coefficient"`
	PhenotypeRanges          []PhenotypeRange `yaml:"phenotype_ranges" json:"phenotype_ranges"`
}

// PhenotypeRange requires a numeric phenotype to fall inside [Min, Max].
type PhenotypeRange struct {
	TraitID int     `yaml:"trait_id" json:"trait_id"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
}

// TargetPhenotype names the phenotype the phenotype-directed breeders select
// toward for one trait.
type TargetPhenotype struct {
	TraitID   int    `yaml:"trait_id" json:"trait_id"`
	Phenotype string `yaml:"phenotype" json:"phenotype"`
}

// TraitConfig is the on-disk form of one trait definition.
type TraitConfig struct {
	TraitID   int              `yaml:"trait_id" json:"trait_id"`
	Name      string           `yaml:"name" json:"name"`
	Type      string           `yaml:"trait_type" json:"trait_type"`
	Genotypes []GenotypeConfig `yaml:"genotypes" json:"genotypes"`
}

// GenotypeConfig is the on-disk form of one genotype table row.
type GenotypeConfig struct {
	Genotype    string  `yaml:"genotype" json:"genotype"`
	Phenotype   string  `yaml:"phenotype" json:"phenotype"`
	InitialFreq float64 `yaml:"initial_freq" json:"initial_freq"`
	Sex         string  `yaml:"sex,omitempty" json:"sex,omitempty"`
}

// defaultInbreedingCeiling is applied when breeders.inbreeding_ceiling is
// omitted.
const defaultInbreedingCeiling = 0.25

// Load reads, validates, and normalizes a configuration file. JSON is chosen
// for a .json extension, YAML otherwise.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

// Validate checks every structural rule the engine relies on. It runs before
// normalization, so frequency sums only need to be positive here.
func (c *Config) Validate() error {
	if c.Cycles < 1 {
		return fmt.Errorf("config: cycles must be a positive integer, got %d", c.Cycles)
	}
	if c.InitialPopulationSize < 1 {
		return fmt.Errorf("config: initial_population_size must be a positive integer, got %d", c.InitialPopulationSize)
	}
	if c.InitialSexRatio.Male < 0 || c.InitialSexRatio.Male > 1 ||
		c.InitialSexRatio.Female < 0 || c.InitialSexRatio.Female > 1 {
		return fmt.Errorf("config: initial_sex_ratio values must be between 0 and 1")
	}
	if c.InitialSexRatio.Male+c.InitialSexRatio.Female <= 0 {
		return fmt.Errorf("config: initial_sex_ratio must have positive total")
	}

	cr := c.Creature
	if cr.GestationCycles < 1 {
		return fmt.Errorf("config: creature.gestation_cycles must be positive")
	}
	if cr.NursingCycles < 0 {
		return fmt.Errorf("config: creature.nursing_cycles must be non-negative")
	}
	if cr.MaturityCycles < 1 {
		return fmt.Errorf("config: creature.maturity_cycles must be positive")
	}
	if cr.MaxFertilityAgeCycles.Male < 1 || cr.MaxFertilityAgeCycles.Female < 1 {
		return fmt.Errorf("config: creature.max_fertility_age_cycles must be positive for both sexes")
	}
	if cr.LifespanCycles.Min < 1 || cr.LifespanCycles.Max < 1 {
		return fmt.Errorf("config: creature.lifespan_cycles min and max must be positive")
	}
	if cr.LifespanCycles.Min > cr.LifespanCycles.Max {
		return fmt.Errorf("config: creature.lifespan_cycles min %d exceeds max %d",
			cr.LifespanCycles.Min, cr.LifespanCycles.Max)
	}
	if cr.NearingEndCycles < 0 {
		return fmt.Errorf("config: creature.nearing_end_cycles must be non-negative")
	}
	if cr.OwnershipChurnProbability < 0 || cr.OwnershipChurnProbability > 1 {
		return fmt.Errorf("config: creature.ownership_churn_probability must be between 0 and 1")
	}

	b := c.Breeders
	if b.Random < 0 || b.InbreedingAvoidance < 0 || b.KennelClub < 0 || b.UnrestrictedPhenotype < 0 {
		return fmt.Errorf("config: breeder counts must be non-negative")
	}
	if b.Random+b.InbreedingAvoidance+b.KennelClub+b.UnrestrictedPhenotype < 1 {
		return fmt.Errorf("config: at least one breeder is required")
	}
	if b.InbreedingCeiling != nil && (*b.InbreedingCeiling < 0 || *b.InbreedingCeiling > 1) {
		return fmt.Errorf("config: breeders.inbreeding_ceiling must be between 0 and 1")
	}
	if kc := b.KennelClubConfig; kc != nil {
		if kc.MaxInbreedingCoefficient != nil &&
			(*kc.MaxInbreedingCoefficient < 0 || *kc.MaxInbreedingCoefficient > 1) {
			return fmt.Errorf("config: kennel_club_config.max_inbreeding_coefficient must be between 0 and 1")
		}
		for _, pr := range kc.PhenotypeRanges {
			if pr.Min > pr.Max {
				return fmt.Errorf("config: kennel_club_config phenotype range for trait %d has min > max", pr.TraitID)
			}
		}
	}

	if len(c.Traits) == 0 {
		return fmt.Errorf("config: traits must be a non-empty list")
	}
	seen := make(map[int]struct{}, len(c.Traits))
	for _, t := range c.Traits {
		if t.TraitID < 0 || t.TraitID > 99 {
			return fmt.Errorf("config: trait_id must be between 0 and 99, got %d", t.TraitID)
		}
		if _, dup := seen[t.TraitID]; dup {
			return fmt.Errorf("config: duplicate trait_id %d", t.TraitID)
		}
		seen[t.TraitID] = struct{}{}

		if t.Name == "" {
			return fmt.Errorf("config: trait %d missing name", t.TraitID)
		}
		if !genetics.Kind(t.Type).Valid() {
			return fmt.Errorf("config: trait %d has invalid trait_type %q", t.TraitID, t.Type)
		}
		if len(t.Genotypes) == 0 {
			return fmt.Errorf("config: trait %d must have a non-empty genotypes list", t.TraitID)
		}

		codes := make(map[string]struct{}, len(t.Genotypes))
		total := 0.0
		for _, g := range t.Genotypes {
			if g.Genotype == "" || g.Phenotype == "" {
				return fmt.Errorf("config: trait %d has a genotype with missing fields", t.TraitID)
			}
			key := g.Genotype + "/" + g.Sex
			if _, dup := codes[key]; dup {
				return fmt.Errorf("config: trait %d has duplicate genotype %q", t.TraitID, g.Genotype)
			}
			codes[key] = struct{}{}
			if g.InitialFreq < 0 {
				return fmt.Errorf("config: trait %d genotype %q has negative initial_freq", t.TraitID, g.Genotype)
			}
			if genetics.Kind(t.Type) == genetics.SexLinked {
				if _, err := genetics.ParseSex(g.Sex); err != nil {
					return fmt.Errorf("config: trait %d genotype %q: sex-linked genotypes need sex \"male\" or \"female\", got %q",
						t.TraitID, g.Genotype, g.Sex)
				}
			}
			total += g.InitialFreq
		}
		if total <= 0 {
			return fmt.Errorf("config: trait %d has zero total genotype frequency", t.TraitID)
		}
	}

	for _, tp := range c.TargetPhenotypes {
		if _, ok := seen[tp.TraitID]; !ok {
			return fmt.Errorf("config: target phenotype references unknown trait %d", tp.TraitID)
		}
	}
	return nil
}

// normalize scales the sex ratio and per-trait genotype frequencies to sum to
// 1.0 and fills defaulted knobs.
func (c *Config) normalize() {
	total := c.InitialSexRatio.Male + c.InitialSexRatio.Female
	c.InitialSexRatio.Male /= total
	c.InitialSexRatio.Female /= total

	for ti := range c.Traits {
		t := &c.Traits[ti]
		sum := 0.0
		for _, g := range t.Genotypes {
			sum += g.InitialFreq
		}
		if math.Abs(sum-1.0) > 1e-9 {
			for gi := range t.Genotypes {
				t.Genotypes[gi].InitialFreq /= sum
			}
		}
	}

	if c.Breeders.InbreedingCeiling == nil {
		v := defaultInbreedingCeiling
		c.Breeders.InbreedingCeiling = &v
	}
}

// Catalog converts the trait definitions into a genetics catalog.
func (c *Config) Catalog() (*genetics.Catalog, error) {
	traits := make([]genetics.Trait, 0, len(c.Traits))
	for _, tc := range c.Traits {
		t := genetics.Trait{
			ID:   tc.TraitID,
			Name: tc.Name,
			Kind: genetics.Kind(tc.Type),
		}
		for _, gc := range tc.Genotypes {
			g := genetics.Genotype{
				Code:        gc.Genotype,
				Phenotype:   gc.Phenotype,
				InitialFreq: gc.InitialFreq,
			}
			if gc.Sex != "" {
				sex, err := genetics.ParseSex(gc.Sex)
				if err != nil {
					return nil, fmt.Errorf("config: trait %d genotype %q: %w", tc.TraitID, gc.Genotype, err)
				}
				g.Sex = &sex
			}
			t.Genotypes = append(t.Genotypes, g)
		}
		traits = append(traits, t)
	}
	return genetics.NewCatalog(traits)
}

// Lifecycle converts the creature constants into the timers package form.
func (c *Config) Lifecycle() creatures.Lifecycle {
	cr := c.Creature
	return creatures.Lifecycle{
		GestationCycles:    cr.GestationCycles,
		NursingCycles:      cr.NursingCycles,
		MaturityCycles:     cr.MaturityCycles,
		MaxFertilityMale:   cr.MaxFertilityAgeCycles.Male,
		MaxFertilityFemale: cr.MaxFertilityAgeCycles.Female,
		LifespanMin:        cr.LifespanCycles.Min,
		LifespanMax:        cr.LifespanCycles.Max,
		NearingEndCycles:   cr.NearingEndCycles,
	}
}
