// Package creatures holds the individual model: genome, lineage, lifecycle
// timers, and founder/offspring construction.
package creatures

import (
	"github.com/talgya/gene-sim/internal/genetics"
)

// Unassigned is the identity of a creature that has not been persisted yet.
// Real identities are assigned by the persistence sink and are always
// positive.
const Unassigned int64 = 0

// Creature is one individual. Timers are absolute cycle numbers stamped at
// creation (or, for the gestation/nursing pair, at conception); state like
// "gestating" or "juvenile" is derived from them, never stored.
type Creature struct {
	ID int64

	Sex    genetics.Sex
	Genome map[int]string

	// Parent identities. Both zero iff founder.
	Parent1 int64
	Parent2 int64

	ConceptionCycle int
	BirthCycle      int

	MaturityCycle     int
	MaxFertilityCycle int
	GestationEndCycle int
	NursingEndCycle   int

	// Lifespan in cycles, sampled at creation. The creature ages out at
	// BirthCycle + Lifespan.
	Lifespan int

	InbreedingCoeff float64
	Owner           string
	Alive           bool
}

// Lifecycle carries the cycle-denominated constants shared by every creature
// in a run.
type Lifecycle struct {
	GestationCycles    int
	NursingCycles      int
	MaturityCycles     int
	MaxFertilityMale   int
	MaxFertilityFemale int
	LifespanMin        int
	LifespanMax        int
	NearingEndCycles   int
}

// MaxFertilityAge returns the fertility window length for the given sex.
func (lc Lifecycle) MaxFertilityAge(sex genetics.Sex) int {
	if sex == genetics.SexFemale {
		return lc.MaxFertilityFemale
	}
	return lc.MaxFertilityMale
}

// lifespanSource is the draw surface lifespan sampling needs.
type lifespanSource interface {
	Between(min, max int) int
}

// SampleLifespan draws a lifespan uniformly from the configured range.
func (lc Lifecycle) SampleLifespan(stream lifespanSource) int {
	return stream.Between(lc.LifespanMin, lc.LifespanMax)
}

// Founder reports whether the creature is an initial-population member.
func (c *Creature) Founder() bool {
	return c.Parent1 == Unassigned && c.Parent2 == Unassigned
}

// Persisted reports whether the sink has assigned this creature an identity.
func (c *Creature) Persisted() bool {
	return c.ID != Unassigned
}

// Born reports whether the creature has materialized by the given cycle.
func (c *Creature) Born(now int) bool {
	return c.BirthCycle <= now
}

// Eligible reports whether the creature can breed this cycle: alive, born,
// sexually mature, inside its fertility window, and (for females) past any
// gestation and nursing obligations.
func (c *Creature) Eligible(now int) bool {
	if !c.Alive || !c.Born(now) {
		return false
	}
	if now < c.MaturityCycle || now >= c.MaxFertilityCycle {
		return false
	}
	if c.Sex == genetics.SexFemale {
		if now < c.GestationEndCycle || now < c.NursingEndCycle {
			return false
		}
	}
	return true
}

// NearingFertilityEnd reports whether the creature sits inside the trailing
// window before its fertility expires. Owners of such creatures retain one
// offspring as a replacement.
func (c *Creature) NearingFertilityEnd(now int, lc Lifecycle) bool {
	return now >= c.MaxFertilityCycle-lc.NearingEndCycles && now < c.MaxFertilityCycle
}

// ExpiryCycle is the cycle at which the creature ages out of the population.
func (c *Creature) ExpiryCycle() int {
	return c.BirthCycle + c.Lifespan
}
