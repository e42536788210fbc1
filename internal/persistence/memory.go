package persistence

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/gene-sim/internal/creatures"
	"github.com/talgya/gene-sim/internal/genetics"
	"github.com/talgya/gene-sim/internal/population"
)

// MemoryStore keeps everything in process. It enforces the same
// parent-before-child precondition as the database stores, which makes it the
// test double of choice for engine tests.
type MemoryStore struct {
	nextID    int64
	known     map[int64]struct{}
	Creatures []*creatures.Creature
	Stats     []population.CycleStats
	Traits    []genetics.Trait
	RunID     string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{known: make(map[int64]struct{})}
}

func (m *MemoryStore) BeginRun(seed int64, cycles int) (string, error) {
	m.RunID = uuid.NewString()
	return m.RunID, nil
}

func (m *MemoryStore) SaveTraits(cat *genetics.Catalog) error {
	m.Traits = append([]genetics.Trait(nil), cat.Traits()...)
	return nil
}

func (m *MemoryStore) AssignIdentity(c *creatures.Creature) (int64, error) {
	if c.Persisted() {
		return c.ID, nil
	}
	if err := checkParents(c); err != nil {
		return 0, err
	}
	if !c.Founder() {
		if _, ok := m.known[c.Parent1]; !ok {
			return 0, fmt.Errorf("parent %d persisted out of order: %w",
				c.Parent1, creatures.UnassignedParentError{Role: "sire"})
		}
		if _, ok := m.known[c.Parent2]; !ok {
			return 0, fmt.Errorf("parent %d persisted out of order: %w",
				c.Parent2, creatures.UnassignedParentError{Role: "dam"})
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.known[c.ID] = struct{}{}
	m.Creatures = append(m.Creatures, c)
	return c.ID, nil
}

func (m *MemoryStore) PersistBatch(cs []*creatures.Creature) error {
	for _, c := range cs {
		if _, err := m.AssignIdentity(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) PersistCycleStats(stats population.CycleStats) error {
	m.Stats = append(m.Stats, stats)
	return nil
}

func (m *MemoryStore) FinishRun(status string, cyclesCompleted, finalPopulation int) error {
	return nil
}

func (m *MemoryStore) Close() error { return nil }
