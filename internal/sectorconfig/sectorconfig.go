// Package sectorconfig implements SectorConfig: the single source of truth
// for decay and maintenance parameters, read far more often than written.
package sectorconfig

import (
	"sync"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// Config is a concurrency-safe cell holding a domain.DecayConfig snapshot.
// Readers receive an immutable copy; an Update either fully applies or fully
// rejects, so no reader ever observes a partially-updated config.
type Config struct {
	mu  sync.RWMutex
	cfg domain.DecayConfig
}

// New creates a Config seeded with the given initial value. Callers usually
// pass domain.DefaultDecayConfig().
func New(initial domain.DecayConfig) (*Config, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &Config{cfg: initial}, nil
}

// Get returns an immutable snapshot of the current configuration.
func (c *Config) Get() domain.DecayConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked()
}

func (c *Config) copyLocked() domain.DecayConfig {
	out := c.cfg
	out.SectorMultipliers = make(map[domain.Sector]float64, len(c.cfg.SectorMultipliers))
	for k, v := range c.cfg.SectorMultipliers {
		out.SectorMultipliers[k] = v
	}
	return out
}

// Partial is a sparse update; nil/zero fields are left unchanged except
// SectorMultipliers entries, which are merged key-by-key.
type Partial struct {
	BaseLambda         *float64
	SectorMultipliers  map[domain.Sector]float64
	ReinforcementBoost *float64
	MinimumStrength    *float64
	PruningThreshold   *float64
}

// Update merges p into the current config and validates the result
// atomically: either the whole update applies, or InvalidConfig is returned
// and nothing changes.
func (c *Config) Update(p Partial) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.copyLocked()
	if p.BaseLambda != nil {
		next.BaseLambda = *p.BaseLambda
	}
	for sector, mult := range p.SectorMultipliers {
		next.SectorMultipliers[sector] = mult
	}
	if p.ReinforcementBoost != nil {
		next.ReinforcementBoost = *p.ReinforcementBoost
	}
	if p.MinimumStrength != nil {
		next.MinimumStrength = *p.MinimumStrength
	}
	if p.PruningThreshold != nil {
		next.PruningThreshold = *p.PruningThreshold
	}

	if err := next.Validate(); err != nil {
		return err
	}
	c.cfg = next
	return nil
}

// EffectiveDecayRate returns BaseLambda * Multipliers[sector].
func (c *Config) EffectiveDecayRate(sector domain.Sector) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mult, ok := c.cfg.SectorMultipliers[sector]
	if !ok {
		return 0, domain.ErrUnknownSector
	}
	return c.cfg.BaseLambda * mult, nil
}

// ResetToDefaults restores domain.DefaultDecayConfig().
func (c *Config) ResetToDefaults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = domain.DefaultDecayConfig()
}
