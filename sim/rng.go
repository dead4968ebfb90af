package sim

import (
	"hash/fnv"
	"math/rand/v2"
)

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey, configuration and optimizer answers
// draw identical curves and auction outcomes.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemAuction is the random stream for curve draws and win draws.
	SubsystemAuction = "auction"
)

// PartitionedRNG provides deterministic, isolated random sources per subsystem.
//
// Derivation: PCG seeded with (masterSeed, fnv1a64(subsystemName)).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.PCG
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.PCG),
	}
}

// ForSubsystem returns the source for the named subsystem. The same name
// always returns the same source (cached). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) rand.Source {
	if src, ok := p.subsystems[name]; ok {
		return src
	}
	src := rand.NewPCG(uint64(p.key), fnv1a64(name))
	p.subsystems[name] = src
	return src
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
