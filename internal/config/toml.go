// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tabhero/internal/model"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Defaults applied when a setting is absent.
const (
	DefaultMethod            = model.MethodQuality
	DefaultFixedScore        = 10.0
	DefaultBaseScorePerChar  = 0.5
	DefaultMinScore          = 1.0
	DefaultMaxScore          = 1000.0
	DefaultRandomMinScore    = 5.0
	DefaultRandomMaxScore    = 100.0
	DefaultAnimationDuration = 1500 * time.Millisecond
	DefaultAnimationStyle    = model.AnimationFloating
	DefaultScoreColor        = "#4CAF50"
	DefaultScoreDecoration   = "🎯"
	DefaultLogLevel          = "info"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Enabled   *bool           `toml:"enabled"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Animation AnimationConfig `toml:"animation"`
	Store     StoreConfig     `toml:"store"`
	Log       LogConfig       `toml:"log"`
}

// ScoringConfig maps scoring settings.
type ScoringConfig struct {
	Method           *string  `toml:"method"`
	FixedScore       *float64 `toml:"fixed-score"`
	BaseScorePerChar *float64 `toml:"base-score-per-char"`
	MinScore         *float64 `toml:"min-score"`
	MaxScore         *float64 `toml:"max-score"`
	RandomMinScore   *float64 `toml:"random-min-score"`
	RandomMaxScore   *float64 `toml:"random-max-score"`
}

// AnimationConfig maps score popup settings.
type AnimationConfig struct {
	Show       *bool   `toml:"show"`
	DurationMs *int    `toml:"duration-ms"`
	Style      *string `toml:"style"`
	Color      *string `toml:"color"`
	Decoration *string `toml:"decoration"`
}

// StoreConfig maps persistence settings.
type StoreConfig struct {
	Backend *string `toml:"backend"`
	Path    *string `toml:"path"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Resolve fills absent settings with defaults.
// An unknown score method is kept so the calculator can fall back on its own.
func Resolve(fc FileConfig) model.Config {
	cfg := Defaults()
	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}

	s := fc.Scoring
	if s.Method != nil {
		cfg.Method = model.ScoreMethod(strings.ToLower(strings.TrimSpace(*s.Method)))
	}
	setFloat(&cfg.FixedScore, s.FixedScore)
	setFloat(&cfg.BaseScorePerChar, s.BaseScorePerChar)
	setFloat(&cfg.MinScore, s.MinScore)
	setFloat(&cfg.MaxScore, s.MaxScore)
	setFloat(&cfg.RandomMinScore, s.RandomMinScore)
	setFloat(&cfg.RandomMaxScore, s.RandomMaxScore)

	a := fc.Animation
	if a.Show != nil {
		cfg.ShowAnimation = *a.Show
	}
	if a.DurationMs != nil && *a.DurationMs > 0 {
		cfg.AnimationDuration = time.Duration(*a.DurationMs) * time.Millisecond
	}
	if a.Style != nil && model.AnimationStyle(*a.Style) == model.AnimationFade {
		cfg.AnimationStyle = model.AnimationFade
	}
	if a.Color != nil && *a.Color != "" {
		cfg.ScoreColor = *a.Color
	}
	if a.Decoration != nil {
		cfg.ScoreDecoration = *a.Decoration
	}

	if fc.Store.Backend != nil && *fc.Store.Backend == BackendBolt {
		cfg.StoreBackend = BackendBolt
	}
	if fc.Store.Path != nil {
		cfg.StorePath = *fc.Store.Path
	}
	if fc.Log.Level != nil && *fc.Log.Level != "" {
		cfg.LogLevel = *fc.Log.Level
	}
	return cfg
}

// Defaults returns the configuration used when no file exists.
func Defaults() model.Config {
	return model.Config{
		Enabled:           true,
		Method:            DefaultMethod,
		FixedScore:        DefaultFixedScore,
		BaseScorePerChar:  DefaultBaseScorePerChar,
		MinScore:          DefaultMinScore,
		MaxScore:          DefaultMaxScore,
		RandomMinScore:    DefaultRandomMinScore,
		RandomMaxScore:    DefaultRandomMaxScore,
		ShowAnimation:     true,
		AnimationDuration: DefaultAnimationDuration,
		AnimationStyle:    DefaultAnimationStyle,
		ScoreColor:        DefaultScoreColor,
		ScoreDecoration:   DefaultScoreDecoration,
		StoreBackend:      BackendSQLite,
		LogLevel:          DefaultLogLevel,
	}
}

func setFloat(target *float64, value *float64) {
	if value == nil {
		return
	}
	*target = *value
}
