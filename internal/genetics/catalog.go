package genetics

import (
	"fmt"
	"sort"
	"strings"
)

// locusSep separates the loci of a polygenic genotype code.
const locusSep = "_"

// Catalog indexes the traits of a run and implements the inheritance algebra
// over their genotype codes. It is immutable after construction; every method
// iterates traits in declaration order so that draws replay deterministically.
type Catalog struct {
	order []Trait
	byID  map[int]*Trait
}

// NewCatalog validates each trait and builds the index. Trait IDs must be
// unique across the catalog.
func NewCatalog(traits []Trait) (*Catalog, error) {
	c := &Catalog{
		order: make([]Trait, len(traits)),
		byID:  make(map[int]*Trait, len(traits)),
	}
	copy(c.order, traits)
	for i := range c.order {
		t := &c.order[i]
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate trait id %d", t.ID)
		}
		c.byID[t.ID] = t
	}
	return c, nil
}

// Traits returns the traits in declaration order.
func (c *Catalog) Traits() []Trait {
	return c.order
}

// Trait returns the trait with the given id.
func (c *Catalog) Trait(id int) (Trait, bool) {
	t, ok := c.byID[id]
	if !ok {
		return Trait{}, false
	}
	return *t, true
}

// PhenotypeOf resolves a genotype code to its phenotype. For sex-linked
// traits the entry must match the carrier's sex; a missing entry is a fatal
// lookup error, never a defaulted value.
func (c *Catalog) PhenotypeOf(traitID int, code string, sex Sex) (string, error) {
	t, ok := c.byID[traitID]
	if !ok {
		return "", fmt.Errorf("unknown trait id %d", traitID)
	}
	for _, g := range t.Genotypes {
		if g.Code != code {
			continue
		}
		if t.Kind == SexLinked && (g.Sex == nil || *g.Sex != sex) {
			continue
		}
		return g.Phenotype, nil
	}
	return "", LookupError{TraitID: traitID, Code: code, Sex: sex}
}

// SampleGenotype draws a genotype code for a new founder weighted by the
// initial frequencies. Sex-linked traits draw only from the entries declared
// for the founder's sex, renormalized over that subset.
func (c *Catalog) SampleGenotype(traitID int, sex Sex, stream weightedSource) (string, error) {
	t, ok := c.byID[traitID]
	if !ok {
		return "", fmt.Errorf("unknown trait id %d", traitID)
	}
	total := 0.0
	for _, g := range t.Genotypes {
		if t.Kind == SexLinked && (g.Sex == nil || *g.Sex != sex) {
			continue
		}
		total += g.InitialFreq
	}
	if total <= 0 {
		return "", LookupError{TraitID: traitID, Code: "", Sex: sex}
	}
	roll := stream.Float64() * total
	acc := 0.0
	last := ""
	for _, g := range t.Genotypes {
		if t.Kind == SexLinked && (g.Sex == nil || *g.Sex != sex) {
			continue
		}
		acc += g.InitialFreq
		last = g.Code
		if roll < acc {
			return g.Code, nil
		}
	}
	// Floating-point shortfall lands on the final eligible entry.
	return last, nil
}

// weightedSource is the draw surface SampleGenotype and Gamete need from the
// run's entropy stream.
type weightedSource interface {
	Float64() float64
	Intn(n int) int
}

// Gamete produces the allele contribution a parent passes for one trait.
//
// Sex-linked males are haploid carriers: their whole code passes through.
// Polygenic codes contribute one allele per locus. Everything else splits the
// diploid code down the middle and draws one half.
func (c *Catalog) Gamete(traitID int, code string, sex Sex, stream weightedSource) (string, error) {
	t, ok := c.byID[traitID]
	if !ok {
		return "", fmt.Errorf("unknown trait id %d", traitID)
	}
	switch t.Kind {
	case SexLinked:
		if sex == SexMale {
			return code, nil
		}
		a, b := splitDiploid(code)
		return pickOne(a, b, stream), nil
	case Polygenic:
		loci := strings.Split(code, locusSep)
		picks := make([]string, len(loci))
		for i, locus := range loci {
			a, b := splitDiploid(locus)
			picks[i] = pickOne(a, b, stream)
		}
		return strings.Join(picks, locusSep), nil
	default:
		a, b := splitDiploid(code)
		return pickOne(a, b, stream), nil
	}
}

// Combine joins a paternal and a maternal gamete into the child's genotype
// code. Sex-linked sons take only the maternal allele; daughters and all
// autosomal codes combine both gametes in canonical sorted order.
func (c *Catalog) Combine(traitID int, paternal, maternal string, child Sex) (string, error) {
	t, ok := c.byID[traitID]
	if !ok {
		return "", fmt.Errorf("unknown trait id %d", traitID)
	}
	switch t.Kind {
	case SexLinked:
		if child == SexMale {
			return maternal, nil
		}
		return canonical(paternal, maternal), nil
	case Polygenic:
		p := strings.Split(paternal, locusSep)
		m := strings.Split(maternal, locusSep)
		if len(p) != len(m) {
			return "", fmt.Errorf("trait %d: gamete locus mismatch %q vs %q", traitID, paternal, maternal)
		}
		loci := make([]string, len(p))
		for i := range p {
			loci[i] = canonical(p[i], m[i])
		}
		return strings.Join(loci, locusSep), nil
	default:
		return canonical(paternal, maternal), nil
	}
}

// Alleles expands a genotype code into its individual alleles for frequency
// accounting. Sex-linked males count their single allele once; sex-linked
// females split two-character codes and otherwise count the whole token.
func (c *Catalog) Alleles(traitID int, code string, sex Sex) ([]string, error) {
	t, ok := c.byID[traitID]
	if !ok {
		return nil, fmt.Errorf("unknown trait id %d", traitID)
	}
	switch t.Kind {
	case SexLinked:
		if sex == SexMale {
			return []string{code}, nil
		}
		if len(code) == 2 {
			return []string{code[:1], code[1:]}, nil
		}
		return []string{code}, nil
	case Polygenic:
		loci := strings.Split(code, locusSep)
		out := make([]string, 0, 2*len(loci))
		for _, locus := range loci {
			a, b := splitDiploid(locus)
			out = append(out, a, b)
		}
		return out, nil
	default:
		a, b := splitDiploid(code)
		return []string{a, b}, nil
	}
}

// Heterozygous reports whether any locus of the code carries two distinct
// alleles.
func Heterozygous(code string) bool {
	for _, locus := range strings.Split(code, locusSep) {
		a, b := splitDiploid(locus)
		if a != b {
			return true
		}
	}
	return false
}

// splitDiploid splits a single-locus diploid code down the middle.
func splitDiploid(code string) (string, string) {
	half := len(code) / 2
	return code[:half], code[half:]
}

func pickOne(a, b string, stream weightedSource) string {
	if stream.Intn(2) == 0 {
		return a
	}
	return b
}

// canonical joins two alleles in sorted order so "bB" and "Bb" name the same
// genotype.
func canonical(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + pair[1]
}
