// Package model defines shared data structures.
package model

import "time"

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// IsEmpty reports whether the range covers no text.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// ContentChange is one replacement inside a change event.
type ContentChange struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// Document identifies an edited document at a specific version.
type Document struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Text    string `json:"text,omitempty"`
}

// ChangeEvent is a batch of edits applied to a document.
type ChangeEvent struct {
	Document Document        `json:"document"`
	Changes  []ContentChange `json:"changes"`
}

// AcceptanceEvent describes an insertion classified as an accepted completion.
type AcceptanceEvent struct {
	Text     string
	Position Position
	Document Document
}

// ScoreMethod selects how accepted text is scored.
type ScoreMethod string

const (
	MethodQuality ScoreMethod = "quality"
	MethodFixed   ScoreMethod = "fixed"
	MethodRandom  ScoreMethod = "random"
)

// ParseScoreMethod maps a config value to a known method.
func ParseScoreMethod(s string) (ScoreMethod, bool) {
	switch ScoreMethod(s) {
	case MethodQuality, MethodFixed, MethodRandom:
		return ScoreMethod(s), true
	default:
		return "", false
	}
}

// ScoreResult is a bounded score and the method that produced it.
type ScoreResult struct {
	Score  int
	Method ScoreMethod
}

// AnimationStyle selects how score popups move.
type AnimationStyle string

const (
	AnimationFloating AnimationStyle = "floating"
	AnimationFade     AnimationStyle = "fade"
)

// Config is a resolved configuration snapshot.
type Config struct {
	Enabled bool

	Method           ScoreMethod
	FixedScore       float64
	BaseScorePerChar float64
	MinScore         float64
	MaxScore         float64
	RandomMinScore   float64
	RandomMaxScore   float64

	ShowAnimation     bool
	AnimationDuration time.Duration
	AnimationStyle    AnimationStyle
	ScoreColor        string
	ScoreDecoration   string

	StoreBackend string
	StorePath    string
	LogLevel     string
}

// SessionStats are the counters for the running session.
type SessionStats struct {
	Score     int
	Tabs      int
	StartTime time.Time
	TPM       float64
	Rank      string
}

// AllTimeStats are the persisted lifetime counters.
type AllTimeStats struct {
	Score       int     `json:"score"`
	Tabs        int     `json:"tabs"`
	HighestTPM  float64 `json:"highestTPM"`
	HighestRank string  `json:"highestRank"`
}

// Acceptance is a history record of one scored completion.
type Acceptance struct {
	SessionID   string
	AcceptedAt  time.Time
	DocumentURI string
	Chars       int
	Lines       int
	Score       int
	Method      ScoreMethod
}

// SessionSummary aggregates the history of one session.
type SessionSummary struct {
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
	Score     int
	Tabs      int
}
