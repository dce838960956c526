package config

import "fmt"

// PipelineLimits enforces system-wide resource constraints on the extraction
// pipeline.
type PipelineLimits struct {
	MaxConcurrentLLMCalls int `yaml:"max_concurrent_llm_calls" json:"max_concurrent_llm_calls"` // per-novel LLM call semaphore size, always 1 per spec
	MaxConcurrentNovels   int `yaml:"max_concurrent_novels" json:"max_concurrent_novels"`        // how many AnalysisTasks may run at once
	MaxFactsInValidator   int `yaml:"max_facts_in_validator" json:"max_facts_in_validator"`       // Mangle engine fact limit
	MaxSolverLocations    int `yaml:"max_solver_locations" json:"max_solver_locations"`           // cap on DE constraint solver input size (spec §4.12)
}

// ValidatePipelineLimits checks that limits are within acceptable ranges.
func (c *Config) ValidatePipelineLimits() error {
	if c.Limits.MaxConcurrentLLMCalls < 1 {
		return fmt.Errorf("max_concurrent_llm_calls must be >= 1")
	}
	if c.Limits.MaxConcurrentNovels < 1 {
		return fmt.Errorf("max_concurrent_novels must be >= 1")
	}
	if c.Limits.MaxFactsInValidator < 1000 {
		return fmt.Errorf("max_facts_in_validator must be >= 1000")
	}
	if c.Limits.MaxSolverLocations < 1 {
		return fmt.Errorf("max_solver_locations must be >= 1")
	}
	return nil
}
