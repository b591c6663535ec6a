package review

import (
	"fmt"

	"github.com/brandguard/brandguard/internal/models"
)

// StaticConfigs serves evaluation configs from an in-memory set. The default
// ruleset is always present; projects reference configs by ID.
type StaticConfigs struct {
	configs map[string]*models.EvaluationConfig
}

// NewStaticConfigs builds a config provider holding the default ruleset plus
// any extras. Extras must validate; an extra sharing the default's ID
// replaces it.
func NewStaticConfigs(extras ...*models.EvaluationConfig) (*StaticConfigs, error) {
	def := models.DefaultEvaluationConfig()
	configs := map[string]*models.EvaluationConfig{def.ID: def}

	for _, cfg := range extras {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config %q: %w", cfg.ID, err)
		}
		configs[cfg.ID] = cfg
	}
	return &StaticConfigs{configs: configs}, nil
}

// ConfigByID resolves a config.
func (s *StaticConfigs) ConfigByID(id string) (*models.EvaluationConfig, error) {
	cfg, ok := s.configs[id]
	if !ok {
		return nil, fmt.Errorf("evaluation config not found: %s", id)
	}
	return cfg, nil
}

// DefaultConfigID returns the ID of the built-in ruleset.
func (s *StaticConfigs) DefaultConfigID() string {
	return models.DefaultEvaluationConfig().ID
}
