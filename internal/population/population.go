// Package population holds the live working set, the aging-out schedule, and
// the per-cycle statistics scans.
package population

import (
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
)

// Population is the working pool plus the aging-out ring: bucket i holds the
// creatures expiring i cycles from now. Each live creature occupies exactly
// one bucket, at index birth_cycle + lifespan − current_cycle. The cycle
// engine is the only writer.
type Population struct {
	members []*creatures.Creature
	ageOut  [][]*creatures.Creature
}

// New creates an empty population.
func New() *Population {
	return &Population{}
}

// Size returns the working-set size.
func (p *Population) Size() int {
	return len(p.members)
}

// Members returns the working set. Callers must treat it as read-only.
func (p *Population) Members() []*creatures.Creature {
	return p.members
}

// Add appends creatures to the working set and slots each into its aging
// bucket, growing the ring on demand.
func (p *Population) Add(cs []*creatures.Creature, now int) {
	p.members = append(p.members, cs...)
	for _, c := range cs {
		idx := c.ExpiryCycle() - now
		if idx < 0 {
			idx = 0
		}
		for len(p.ageOut) <= idx {
			p.ageOut = append(p.ageOut, nil)
		}
		p.ageOut[idx] = append(p.ageOut[idx], c)
	}
}

// EligibleMales returns the males able to breed this cycle.
func (p *Population) EligibleMales(now int) []*creatures.Creature {
	return p.eligible(now, genetics.SexMale)
}

// EligibleFemales returns the females able to breed this cycle.
func (p *Population) EligibleFemales(now int) []*creatures.Creature {
	return p.eligible(now, genetics.SexFemale)
}

func (p *Population) eligible(now int, sex genetics.Sex) []*creatures.Creature {
	var out []*creatures.Creature
	for _, c := range p.members {
		if c.Sex == sex && c.Eligible(now) {
			out = append(out, c)
		}
	}
	return out
}

// AgedOut returns the creatures expiring this cycle without removing them.
// The result is a copy; mutating it cannot corrupt the aging ring.
func (p *Population) AgedOut() []*creatures.Creature {
	if len(p.ageOut) == 0 || len(p.ageOut[0]) == 0 {
		return nil
	}
	return append([]*creatures.Creature(nil), p.ageOut[0]...)
}

// EvictAgedOut removes this cycle's expiring creatures from the working set
// and shifts every bucket down by one. The evicted creatures were persisted
// at creation, so no write happens here. Returns the evicted creatures.
func (p *Population) EvictAgedOut() []*creatures.Creature {
	evicted := p.AgedOut()
	if len(evicted) > 0 {
		gone := make(map[*creatures.Creature]struct{}, len(evicted))
		for _, c := range evicted {
			c.Alive = false
			gone[c] = struct{}{}
		}
		kept := p.members[:0]
		for _, c := range p.members {
			if _, dead := gone[c]; !dead {
				kept = append(kept, c)
			}
		}
		p.members = kept
	}
	if len(p.ageOut) > 0 {
		p.ageOut = p.ageOut[1:]
	}
	return evicted
}
