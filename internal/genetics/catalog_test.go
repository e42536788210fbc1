package genetics

import (
	"errors"
	"testing"

	"github.com/talgya/gene-sim/internal/entropy"
)

func sexPtr(s Sex) *Sex { return &s }

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]Trait{
		{
			ID:   0,
			Name: "coat",
			Kind: SimpleMendelian,
			Genotypes: []Genotype{
				{Code: "BB", Phenotype: "black", InitialFreq: 0.25},
				{Code: "Bb", Phenotype: "black", InitialFreq: 0.5},
				{Code: "bb", Phenotype: "brown", InitialFreq: 0.25},
			},
		},
		{
			ID:   1,
			Name: "vision",
			Kind: SexLinked,
			Genotypes: []Genotype{
				{Code: "XR", Phenotype: "normal", InitialFreq: 0.3, Sex: sexPtr(SexMale)},
				{Code: "Xr", Phenotype: "colorblind", InitialFreq: 0.2, Sex: sexPtr(SexMale)},
				{Code: "XRXR", Phenotype: "normal", InitialFreq: 0.2, Sex: sexPtr(SexFemale)},
				{Code: "XRXr", Phenotype: "carrier", InitialFreq: 0.2, Sex: sexPtr(SexFemale)},
				{Code: "XrXr", Phenotype: "colorblind", InitialFreq: 0.1, Sex: sexPtr(SexFemale)},
			},
		},
		{
			ID:   2,
			Name: "size",
			Kind: Polygenic,
			Genotypes: []Genotype{
				{Code: "AA_BB", Phenotype: "large", InitialFreq: 0.5},
				{Code: "Aa_Bb", Phenotype: "medium", InitialFreq: 0.3},
				{Code: "aa_bb", Phenotype: "small", InitialFreq: 0.2},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return cat
}

func TestNewCatalogRejectsDuplicateIDs(t *testing.T) {
	_, err := NewCatalog([]Trait{
		{ID: 3, Name: "a", Kind: SimpleMendelian, Genotypes: []Genotype{{Code: "AA", Phenotype: "x", InitialFreq: 1}}},
		{ID: 3, Name: "b", Kind: SimpleMendelian, Genotypes: []Genotype{{Code: "BB", Phenotype: "y", InitialFreq: 1}}},
	})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestTraitValidate(t *testing.T) {
	cases := []struct {
		name  string
		trait Trait
		ok    bool
	}{
		{
			name: "valid",
			trait: Trait{ID: 0, Name: "coat", Kind: SimpleMendelian, Genotypes: []Genotype{
				{Code: "BB", Phenotype: "black", InitialFreq: 0.5},
				{Code: "bb", Phenotype: "brown", InitialFreq: 0.5},
			}},
			ok: true,
		},
		{
			name: "id out of range",
			trait: Trait{ID: 100, Name: "coat", Kind: SimpleMendelian, Genotypes: []Genotype{
				{Code: "BB", Phenotype: "black", InitialFreq: 1},
			}},
		},
		{
			name: "frequencies off",
			trait: Trait{ID: 0, Name: "coat", Kind: SimpleMendelian, Genotypes: []Genotype{
				{Code: "BB", Phenotype: "black", InitialFreq: 0.5},
				{Code: "bb", Phenotype: "brown", InitialFreq: 0.4},
			}},
		},
		{
			name: "sex-linked without sex",
			trait: Trait{ID: 0, Name: "vision", Kind: SexLinked, Genotypes: []Genotype{
				{Code: "XR", Phenotype: "normal", InitialFreq: 1},
			}},
		},
		{
			name:  "no genotypes",
			trait: Trait{ID: 0, Name: "coat", Kind: SimpleMendelian},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.trait.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPhenotypeOf(t *testing.T) {
	cat := testCatalog(t)

	got, err := cat.PhenotypeOf(0, "Bb", SexMale)
	if err != nil {
		t.Fatalf("PhenotypeOf: %v", err)
	}
	if got != "black" {
		t.Fatalf("phenotype = %q, want black", got)
	}

	// Same code, different expression by sex.
	got, err = cat.PhenotypeOf(1, "XRXr", SexFemale)
	if err != nil {
		t.Fatalf("PhenotypeOf: %v", err)
	}
	if got != "carrier" {
		t.Fatalf("phenotype = %q, want carrier", got)
	}

	_, err = cat.PhenotypeOf(1, "XRXr", SexMale)
	var lookup LookupError
	if !errors.As(err, &lookup) {
		t.Fatalf("expected LookupError, got %v", err)
	}
	if lookup.TraitID != 1 || lookup.Code != "XRXr" {
		t.Fatalf("lookup error carries %+v", lookup)
	}
}

func TestCombineCanonicalOrder(t *testing.T) {
	cat := testCatalog(t)
	got, err := cat.Combine(0, "b", "B", SexMale)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got != "Bb" {
		t.Fatalf("Combine(b, B) = %q, want Bb", got)
	}
}

func TestCombineSexLinked(t *testing.T) {
	cat := testCatalog(t)

	// Sons take only the maternal allele.
	got, err := cat.Combine(1, "XR", "Xr", SexMale)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got != "Xr" {
		t.Fatalf("son genotype = %q, want Xr", got)
	}

	// Daughters combine both.
	got, err = cat.Combine(1, "XR", "Xr", SexFemale)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got != "XRXr" {
		t.Fatalf("daughter genotype = %q, want XRXr", got)
	}
}

func TestCombinePolygenicPerLocus(t *testing.T) {
	cat := testCatalog(t)
	got, err := cat.Combine(2, "a_B", "A_b", SexFemale)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if got != "Aa_Bb" {
		t.Fatalf("Combine = %q, want Aa_Bb", got)
	}
}

func TestGameteSexLinkedMalePassthrough(t *testing.T) {
	cat := testCatalog(t)
	stream := entropy.New(1)
	got, err := cat.Gamete(1, "Xr", SexMale, stream)
	if err != nil {
		t.Fatalf("Gamete: %v", err)
	}
	if got != "Xr" {
		t.Fatalf("male gamete = %q, want Xr", got)
	}
}

func TestGameteDrawsFromBothHalves(t *testing.T) {
	cat := testCatalog(t)
	stream := entropy.New(42)
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		g, err := cat.Gamete(0, "Bb", SexMale, stream)
		if err != nil {
			t.Fatalf("Gamete: %v", err)
		}
		if g != "B" && g != "b" {
			t.Fatalf("unexpected gamete %q", g)
		}
		seen[g] = true
	}
	if !seen["B"] || !seen["b"] {
		t.Fatalf("gametes never covered both alleles: %v", seen)
	}
}

func TestGametePolygenic(t *testing.T) {
	cat := testCatalog(t)
	stream := entropy.New(7)
	for i := 0; i < 32; i++ {
		g, err := cat.Gamete(2, "Aa_Bb", SexFemale, stream)
		if err != nil {
			t.Fatalf("Gamete: %v", err)
		}
		switch g {
		case "A_B", "A_b", "a_B", "a_b":
		default:
			t.Fatalf("unexpected polygenic gamete %q", g)
		}
	}
}

func TestSampleGenotypeRespectsSex(t *testing.T) {
	cat := testCatalog(t)
	stream := entropy.New(99)
	for i := 0; i < 64; i++ {
		code, err := cat.SampleGenotype(1, SexMale, stream)
		if err != nil {
			t.Fatalf("SampleGenotype: %v", err)
		}
		if code != "XR" && code != "Xr" {
			t.Fatalf("male founder drew female genotype %q", code)
		}
	}
}

func TestSampleGenotypeDeterministic(t *testing.T) {
	cat := testCatalog(t)
	a := entropy.New(5)
	b := entropy.New(5)
	for i := 0; i < 32; i++ {
		ga, _ := cat.SampleGenotype(0, SexFemale, a)
		gb, _ := cat.SampleGenotype(0, SexFemale, b)
		if ga != gb {
			t.Fatalf("draw %d diverged: %q vs %q", i, ga, gb)
		}
	}
}

func TestAlleles(t *testing.T) {
	cat := testCatalog(t)
	cases := []struct {
		traitID int
		code    string
		sex     Sex
		want    []string
	}{
		{0, "Bb", SexMale, []string{"B", "b"}},
		{1, "Xr", SexMale, []string{"Xr"}},
		{1, "XRXr", SexFemale, []string{"XRXr"}},
		{2, "Aa_Bb", SexFemale, []string{"A", "a", "B", "b"}},
	}
	for _, tc := range cases {
		got, err := cat.Alleles(tc.traitID, tc.code, tc.sex)
		if err != nil {
			t.Fatalf("Alleles(%d, %q): %v", tc.traitID, tc.code, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("Alleles(%d, %q) = %v, want %v", tc.traitID, tc.code, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("Alleles(%d, %q) = %v, want %v", tc.traitID, tc.code, got, tc.want)
			}
		}
	}
}

func TestHeterozygous(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"BB", false},
		{"Bb", true},
		{"AA_BB", false},
		{"AA_Bb", true},
	}
	for _, tc := range cases {
		if got := Heterozygous(tc.code); got != tc.want {
			t.Fatalf("Heterozygous(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
