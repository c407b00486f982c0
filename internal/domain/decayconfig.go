package domain

// DecayConfig holds the parameters SectorConfig validates, stores, and
// serves snapshots of.
type DecayConfig struct {
	BaseLambda        float64
	SectorMultipliers map[Sector]float64
	ReinforcementBoost float64
	MinimumStrength   float64
	PruningThreshold  float64
}

// DefaultDecayConfig mirrors the multipliers observed in the corpus's sector
// tables (episodic/emotional decay fastest, reflective slowest).
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		BaseLambda: 0.02,
		SectorMultipliers: map[Sector]float64{
			SectorEpisodic:   1.5,
			SectorSemantic:   1.0,
			SectorProcedural: 1.0,
			SectorEmotional:  1.5,
			SectorReflective: 0.5,
		},
		ReinforcementBoost: 0.1,
		MinimumStrength:    0.01,
		PruningThreshold:   0.1,
	}
}

// Validate checks the invariants named in the data model: non-negative base
// lambda, one strictly positive multiplier per sector, non-negative
// reinforcement boost, a floor in [0,1], and threshold >= floor.
func (c DecayConfig) Validate() error {
	if c.BaseLambda < 0 {
		return &Error{Code: CodeInvalidConfig, Message: "base lambda must be >= 0"}
	}
	if c.ReinforcementBoost < 0 {
		return &Error{Code: CodeInvalidConfig, Message: "reinforcement boost must be >= 0"}
	}
	if c.MinimumStrength < 0 || c.MinimumStrength > 1 {
		return &Error{Code: CodeInvalidConfig, Message: "minimum strength must be in [0,1]"}
	}
	if c.PruningThreshold < 0 || c.PruningThreshold > 1 {
		return &Error{Code: CodeInvalidConfig, Message: "pruning threshold must be in [0,1]"}
	}
	if c.PruningThreshold < c.MinimumStrength {
		return &Error{Code: CodeInvalidConfig, Message: "pruning threshold must be >= minimum strength"}
	}
	for _, sector := range AllSectors {
		mult, ok := c.SectorMultipliers[sector]
		if !ok {
			return &Error{Code: CodeInvalidConfig, Message: "missing multiplier for sector " + string(sector)}
		}
		if mult <= 0 {
			return &Error{Code: CodeInvalidConfig, Message: "multiplier for sector " + string(sector) + " must be > 0"}
		}
	}
	return nil
}
