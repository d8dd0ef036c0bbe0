package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// RoundConfig holds the per-round timing and inventory settings. All fields
// have safe defaults so the server runs without a config file.
type RoundConfig struct {
	WarmUpSeconds       int `json:"warmup_seconds"`
	ObstacleRowSeconds  int `json:"obstacle_row_seconds"`
	AccelerationSeconds int `json:"acceleration_seconds"`

	// FinishSecondsByValue maps a pack point value to its question timer.
	FinishSecondsByValue map[int]int `json:"finish_seconds_by_value"`
	// FinishPackValues lists the selectable pack point values.
	FinishPackValues []int `json:"finish_pack_values"`
	// FinishPacksPerValue is the starting inventory per pack value.
	FinishPacksPerValue int `json:"finish_packs_per_value"`
	// FinishQuestionsPerPack is the number of questions drawn per pack.
	FinishQuestionsPerPack int `json:"finish_questions_per_pack"`
}

var (
	cfg      *RoundConfig
	loadOnce sync.Once
	loadErr  error
)

// DefaultRoundConfig returns the canonical round settings.
func DefaultRoundConfig() *RoundConfig {
	return &RoundConfig{
		WarmUpSeconds:          60,
		ObstacleRowSeconds:     15,
		AccelerationSeconds:    30,
		FinishSecondsByValue:   map[int]int{40: 15, 60: 20, 80: 30},
		FinishPackValues:       []int{40, 60, 80},
		FinishPacksPerValue:    4,
		FinishQuestionsPerPack: 3,
	}
}

// LoadRoundConfig loads round settings from the given path. Missing fields
// fall back to defaults. Safe to call more than once; only the first call
// reads the file.
func LoadRoundConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read round config: %w", err)
			return
		}

		c := DefaultRoundConfig()
		if err := json.Unmarshal(data, c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal round config: %w", err)
			return
		}
		cfg = c
	})
	return loadErr
}

// GetRoundConfig returns the loaded configuration, or defaults when no file
// was loaded successfully.
func GetRoundConfig() *RoundConfig {
	if cfg == nil {
		return DefaultRoundConfig()
	}
	return cfg
}

// FinishSeconds returns the question timer for a pack value.
func (c *RoundConfig) FinishSeconds(value int) int {
	if secs, ok := c.FinishSecondsByValue[value]; ok {
		return secs
	}
	return 30
}

// ValidFinishPackValue reports whether the value is a selectable pack type.
func (c *RoundConfig) ValidFinishPackValue(value int) bool {
	for _, v := range c.FinishPackValues {
		if v == value {
			return true
		}
	}
	return false
}
