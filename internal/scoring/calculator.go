// Package scoring turns accepted completion text into a bounded score.
package scoring

import (
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/verte-zerg/tabhero/internal/config"
	"github.com/verte-zerg/tabhero/internal/model"
)

const (
	multiLineFactor = 1.2
	patternBonus    = 2.0
)

// Structural patterns rewarded by the quality method. Each one that matches
// adds patternBonus, independently of the others.
var qualityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\{.*\}`),
	regexp.MustCompile(`(?s)\(.*\)`),
	regexp.MustCompile(`(?s)\[.*\]`),
	regexp.MustCompile(`function|const|let|var|class|interface|type`),
}

// Calculator scores accepted text using the configuration in effect at call time.
type Calculator struct {
	src config.Source

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customises a Calculator.
type Option func(*Calculator)

// WithRand sets the random source used by the random method.
func WithRand(rnd *rand.Rand) Option {
	return func(c *Calculator) {
		c.rnd = rnd
	}
}

// New returns a Calculator reading configuration from src.
func New(src config.Source, opts ...Option) *Calculator {
	c := &Calculator{
		src: src,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate scores text. The result is always within [MinScore, MaxScore].
func (c *Calculator) Calculate(text string) model.ScoreResult {
	cfg := c.src.Current()

	var raw float64
	method := cfg.Method
	switch method {
	case model.MethodFixed:
		raw = cfg.FixedScore
	case model.MethodRandom:
		raw = c.randomScore(cfg)
	case model.MethodQuality:
		raw = QualityScore(text, cfg)
	default:
		method = model.MethodQuality
		raw = QualityScore(text, cfg)
	}

	return model.ScoreResult{
		Score:  Clamp(raw, cfg.MinScore, cfg.MaxScore),
		Method: method,
	}
}

func (c *Calculator) randomScore(cfg model.Config) float64 {
	c.mu.Lock()
	u := c.rnd.Float64()
	c.mu.Unlock()
	return cfg.RandomMinScore + u*(cfg.RandomMaxScore-cfg.RandomMinScore)
}

// QualityScore is the unclamped quality formula: characters times the
// per-character base, a multi-line multiplier, plus structural bonuses.
// Empty text scores MinScore.
func QualityScore(text string, cfg model.Config) float64 {
	if text == "" {
		return cfg.MinScore
	}
	score := float64(utf8.RuneCountInString(text)) * cfg.BaseScorePerChar
	if LineCount(text) > 1 {
		score *= multiLineFactor
	}
	return score + PatternBonus(text)
}

// PatternBonus returns the structural bonus for text, between 0 and 8.
func PatternBonus(text string) float64 {
	bonus := 0.0
	for _, re := range qualityPatterns {
		if re.MatchString(text) {
			bonus += patternBonus
		}
	}
	return bonus
}

// LineCount returns the number of lines text spans.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

// Clamp bounds score to [minScore, maxScore] and rounds half up.
func Clamp(score, minScore, maxScore float64) int {
	bounded := math.Max(minScore, math.Min(maxScore, score))
	return int(math.Floor(bounded + 0.5))
}
