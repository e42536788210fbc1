// Package genetics defines the trait catalog: the genotype↔phenotype mapping
// and the gamete/combination algebra for each inheritance pattern.
package genetics

import (
	"fmt"
	"math"
)

// Kind identifies the inheritance pattern of a trait.
type Kind string

const (
	SimpleMendelian     Kind = "SIMPLE_MENDELIAN"
	IncompleteDominance Kind = "INCOMPLETE_DOMINANCE"
	Codominance         Kind = "CODOMINANCE"
	SexLinked           Kind = "SEX_LINKED"
	Polygenic           Kind = "POLYGENIC"
)

// Valid reports whether k is one of the five supported patterns.
func (k Kind) Valid() bool {
	switch k {
	case SimpleMendelian, IncompleteDominance, Codominance, SexLinked, Polygenic:
		return true
	}
	return false
}

// Sex represents biological sex.
type Sex uint8

const (
	SexMale   Sex = 0
	SexFemale Sex = 1
)

func (s Sex) String() string {
	if s == SexFemale {
		return "female"
	}
	return "male"
}

// ParseSex converts the wire/config representation of a sex.
func ParseSex(v string) (Sex, error) {
	switch v {
	case "male":
		return SexMale, nil
	case "female":
		return SexFemale, nil
	}
	return SexMale, fmt.Errorf("invalid sex %q", v)
}

// Genotype maps one genotype code to its phenotype and starting frequency.
// Sex is set only for sex-linked traits, where the same code can express
// differently (or exist only) in one sex.
type Genotype struct {
	Code        string
	Phenotype   string
	InitialFreq float64
	Sex         *Sex
}

// Trait is one heritable trait with its full genotype table.
type Trait struct {
	ID        int
	Name      string
	Kind      Kind
	Genotypes []Genotype
}

// freqTolerance is the allowed drift of the genotype frequency sum from 1.0.
const freqTolerance = 0.001

// Validate checks the structural invariants of a trait definition.
func (t Trait) Validate() error {
	if t.ID < 0 || t.ID > 99 {
		return fmt.Errorf("trait %d: id must be between 0 and 99", t.ID)
	}
	if t.Name == "" {
		return fmt.Errorf("trait %d: name is required", t.ID)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("trait %d: invalid kind %q", t.ID, t.Kind)
	}
	if len(t.Genotypes) == 0 {
		return fmt.Errorf("trait %d: at least one genotype is required", t.ID)
	}

	seen := make(map[string]struct{}, len(t.Genotypes))
	sum := 0.0
	for _, g := range t.Genotypes {
		key := g.Code
		if g.Sex != nil {
			key = g.Code + "/" + g.Sex.String()
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("trait %d: duplicate genotype %q", t.ID, g.Code)
		}
		seen[key] = struct{}{}

		if g.Code == "" {
			return fmt.Errorf("trait %d: empty genotype code", t.ID)
		}
		if g.InitialFreq < 0 || g.InitialFreq > 1 {
			return fmt.Errorf("trait %d: genotype %q frequency %v out of range", t.ID, g.Code, g.InitialFreq)
		}
		if t.Kind == SexLinked && g.Sex == nil {
			return fmt.Errorf("trait %d: sex-linked genotype %q must declare a sex", t.ID, g.Code)
		}
		sum += g.InitialFreq
	}
	if math.Abs(sum-1.0) > freqTolerance {
		return fmt.Errorf("trait %d: genotype frequencies sum to %v, expected 1.0", t.ID, sum)
	}
	return nil
}

// LookupError reports a genotype or phenotype query that has no entry in the
// catalog for the given trait/sex combination. It is never silently defaulted.
type LookupError struct {
	TraitID int
	Code    string
	Sex     Sex
}

func (e LookupError) Error() string {
	return fmt.Sprintf("trait %d: no genotype %q for sex %s", e.TraitID, e.Code, e.Sex)
}
