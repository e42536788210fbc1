package creatures

import "fmt"

// UnassignedParentError reports an attempt to synthesize or persist an
// offspring whose parent has no assigned identity. It signals a broken
// parent-before-child ordering invariant and aborts the run.
type UnassignedParentError struct {
	Role string // "sire" or "dam"
}

func (e UnassignedParentError) Error() string {
	return fmt.Sprintf("lineage: %s has no assigned identity; parents must be persisted before their offspring", e.Role)
}

// RelationshipCoefficient returns the coefficient of relationship r between
// two creatures using a bounded two-generation approximation: 0.5 for full
// siblings or a parent-offspring pair, 0.25 for half siblings, 0 otherwise.
// Deeper pedigree relations are deliberately not traversed.
func RelationshipCoefficient(a, b *Creature) float64 {
	// Full siblings share the identical parent pair.
	if a.Parent1 != Unassigned &&
		a.Parent1 == b.Parent1 && a.Parent2 == b.Parent2 {
		return 0.5
	}

	// Parent-offspring in either direction.
	if a.Persisted() && (a.ID == b.Parent1 || a.ID == b.Parent2) {
		return 0.5
	}
	if b.Persisted() && (b.ID == a.Parent1 || b.ID == a.Parent2) {
		return 0.5
	}

	// Half siblings share exactly one parent.
	if (a.Parent1 != Unassigned && (a.Parent1 == b.Parent1 || a.Parent1 == b.Parent2)) ||
		(a.Parent2 != Unassigned && (a.Parent2 == b.Parent1 || a.Parent2 == b.Parent2)) {
		return 0.25
	}

	return 0.0
}

// InbreedingCoefficient computes the prospective offspring's coefficient F
// using Wright's formula, F = 0.5 × (1+F₁) × (1+F₂) × r, clamped to [0, 1].
func InbreedingCoefficient(sire, dam *Creature) float64 {
	r := RelationshipCoefficient(sire, dam)
	f := 0.5 * (1 + sire.InbreedingCoeff) * (1 + dam.InbreedingCoeff) * r
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
