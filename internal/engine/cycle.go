package engine

import (
	"fmt"

	"github.com/talgya/gene-sim/internal/breeding"
	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/population"
)

// RunCycle executes one complete cycle transition. The nine steps run in a
// fixed order and each step's output feeds the next; a failed step aborts the
// cycle and the run. Statistics are snapshotted before eviction, so the
// returned counts reflect the pre-removal population.
func (s *Simulation) RunCycle() (population.CycleStats, error) {
	now := s.cycle

	// 1. Materialize births: creatures conceived gestation-length cycles ago
	// become live members this cycle.
	births := 0
	for _, c := range s.Population.Members() {
		if c.BirthCycle == now && now > 0 {
			births++
		}
	}

	// 2. Eligible pools.
	males := s.Population.EligibleMales(now)
	females := s.Population.EligibleFemales(now)

	// 3. Pairing across breeders.
	pairs, forced := s.selectPairs(males, females)

	// 4. Conception.
	offspring, parentOf, err := s.conceive(pairs, now)
	if err != nil {
		return population.CycleStats{}, err
	}
	conceived := len(offspring)

	// 5. Disposition: retained replacements join the pool, the rest are
	// transferred out of breeder hands.
	retained := s.disposition(offspring, parentOf, now)
	s.Population.Add(retained, now)

	// 6. Ownership churn over the whole working set.
	s.churnOwnership()

	// 7. Statistics snapshot, before eviction. Eligible counts are the
	// step-2 pool sizes, not a re-filter: conception already stamped the
	// mated dams' timers.
	deaths := len(s.Population.AgedOut())
	stats := s.Population.Snapshot(s.Catalog, now, len(males), len(females), births, deaths)

	// 8. Persist the cycle's creatures and stats. Offspring stay in
	// conception order; their parents were persisted in earlier cycles, so
	// parent-before-child holds within the batch.
	if err := s.Sink.PersistBatch(offspring); err != nil {
		return population.CycleStats{}, fmt.Errorf("persist offspring: %w", err)
	}
	if err := s.Sink.PersistCycleStats(stats); err != nil {
		return population.CycleStats{}, fmt.Errorf("persist stats: %w", err)
	}

	// 9. Evict aged-out creatures and advance the aging ring.
	s.Population.EvictAgedOut()

	s.logCycleReport(stats, len(pairs), conceived, forced)
	s.cycle++
	return stats, nil
}

// selectPairs distributes the cycle's pairing quota across the breeders.
// The quota is min(pool sizes), integer-divided with the remainder going to
// the first breeders in configuration order. Sires already selected are
// withheld from later breeders so a male mates at most once per cycle.
func (s *Simulation) selectPairs(males, females []*creatures.Creature) ([]breeding.Pair, int) {
	quota := len(males)
	if len(females) < quota {
		quota = len(females)
	}
	if quota == 0 || len(s.Breeders) == 0 {
		return nil, 0
	}

	base := quota / len(s.Breeders)
	rem := quota % len(s.Breeders)

	avail := males
	var pairs []breeding.Pair
	forced := 0
	for i, b := range s.Breeders {
		share := base
		if i < rem {
			share++
		}
		if share == 0 || len(avail) == 0 {
			continue
		}

		selected := b.SelectPairs(avail, females, share, s.Stream)
		if iab, ok := b.(*breeding.InbreedingAvoidanceBreeder); ok {
			forced += iab.TakeForcedPairs()
		}
		pairs = append(pairs, selected...)

		taken := make(map[*creatures.Creature]struct{}, len(selected))
		for _, p := range selected {
			taken[p.Sire] = struct{}{}
		}
		var next []*creatures.Creature
		for _, m := range avail {
			if _, ok := taken[m]; !ok {
				next = append(next, m)
			}
		}
		avail = next
	}
	return pairs, forced
}

// conceive synthesizes offspring for the cycle's pairs. A pair whose sire
// already mated this cycle is skipped; dams get their gestation and nursing
// timers stamped at conception, and offspring take provisional ownership from
// the sire.
func (s *Simulation) conceive(pairs []breeding.Pair, now int) ([]*creatures.Creature, map[*creatures.Creature]breeding.Pair, error) {
	mated := make(map[*creatures.Creature]struct{}, len(pairs))
	parentOf := make(map[*creatures.Creature]breeding.Pair, len(pairs))
	var offspring []*creatures.Creature

	for _, p := range pairs {
		if _, dup := mated[p.Sire]; dup {
			continue
		}
		mated[p.Sire] = struct{}{}

		p.Dam.GestationEndCycle = now + s.Lifecycle.GestationCycles
		p.Dam.NursingEndCycle = p.Dam.GestationEndCycle + s.Lifecycle.NursingCycles

		child, err := creatures.NewOffspring(p.Sire, p.Dam, now, s.Catalog, s.Lifecycle, s.Stream)
		if err != nil {
			return nil, nil, fmt.Errorf("conceive: %w", err)
		}
		child.Owner = p.Sire.Owner
		offspring = append(offspring, child)
		parentOf[child] = p
	}
	return offspring, parentOf, nil
}

// disposition applies the replacement rule per owning breeder: an owner whose
// breeding stock is nearing the end of its fertility keeps exactly one
// offspring as a replacement and transfers the rest; every other owner
// transfers all offspring. Transferred offspring leave the working pool (they
// are still persisted) with a new owner tag. Returns the retained offspring.
func (s *Simulation) disposition(offspring []*creatures.Creature, parentOf map[*creatures.Creature]breeding.Pair, now int) []*creatures.Creature {
	// Group by owner in first-seen order so the walk replays identically.
	var ownerOrder []string
	byOwner := make(map[string][]*creatures.Creature)
	for _, child := range offspring {
		if _, seen := byOwner[child.Owner]; !seen {
			ownerOrder = append(ownerOrder, child.Owner)
		}
		byOwner[child.Owner] = append(byOwner[child.Owner], child)
	}

	var retained []*creatures.Creature
	for _, owner := range ownerOrder {
		group := byOwner[owner]

		nearingEnd := false
		for _, child := range group {
			p := parentOf[child]
			if p.Sire.Owner == owner && p.Sire.NearingFertilityEnd(now, s.Lifecycle) {
				nearingEnd = true
				break
			}
			if p.Dam.Owner == owner && p.Dam.NearingFertilityEnd(now, s.Lifecycle) {
				nearingEnd = true
				break
			}
		}

		transfer := group
		if nearingEnd {
			retained = append(retained, group[0])
			transfer = group[1:]
		}
		for _, child := range transfer {
			child.Owner = s.otherOwner(child.Owner)
		}
	}
	return retained
}

// churnOwnership runs an independent Bernoulli draw per live creature; a hit
// reassigns it to a uniformly chosen different owner. One draw per creature
// happens regardless of outcome, keeping the stream order fixed.
func (s *Simulation) churnOwnership() {
	for _, c := range s.Population.Members() {
		if c.Owner == "" {
			continue
		}
		if s.Stream.Chance(s.ChurnProbability) {
			c.Owner = s.otherOwner(c.Owner)
		}
	}
}

func (s *Simulation) otherOwner(current string) string {
	others := make([]string, 0, len(s.owners))
	for _, o := range s.owners {
		if o != current {
			others = append(others, o)
		}
	}
	if len(others) == 0 {
		return current
	}
	return others[s.Stream.Intn(len(others))]
}
