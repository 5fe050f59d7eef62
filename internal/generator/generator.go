// Package generator builds synthetic editor activity for demos.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/tabhero/internal/detector"
	"github.com/verte-zerg/tabhero/internal/model"
)

// Kind classifies a generated edit.
type Kind int

const (
	// Keystroke is one to three typed characters.
	Keystroke Kind = iota
	// Completion is an accepted inline suggestion.
	Completion
	// Paste replaces a selection.
	Paste
	// MultiCursor inserts the same text at several cursors.
	MultiCursor
	// Stale repeats an already-seen document version.
	Stale
)

func (k Kind) String() string {
	switch k {
	case Keystroke:
		return "keystroke"
	case Completion:
		return "completion"
	case Paste:
		return "paste"
	case MultiCursor:
		return "multi-cursor"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Step is one generated change event.
type Step struct {
	Kind  Kind
	Event model.ChangeEvent
}

var kindWeights = []struct {
	kind   Kind
	weight float64
}{
	{Keystroke, 10},
	{Completion, 5},
	{Paste, 1},
	{MultiCursor, 1},
	{Stale, 1},
}

var keystrokes = []string{"a", "e", "t", "n", " ", ".", "()", "{}", "if", "x :", "\n"}

type document struct {
	uri     string
	version int
	cursor  model.Position
	last    *model.ChangeEvent
}

// Generator produces randomized editor activity.
type Generator struct {
	rnd  *rand.Rand
	docs []*document
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		docs: []*document{
			{uri: "file:///demo/main.go"},
			{uri: "file:///demo/server.ts"},
			{uri: "file:///demo/handlers.py"},
		},
	}
}

// Next returns the next edit.
func (g *Generator) Next() Step {
	doc := g.docs[g.rnd.Intn(len(g.docs))]
	kind := g.pickKind()
	if kind == Stale && doc.last == nil {
		kind = Keystroke
	}

	var changes []model.ContentChange
	switch kind {
	case Keystroke:
		changes = []model.ContentChange{g.insertAt(doc, keystrokes[g.rnd.Intn(len(keystrokes))])}
	case Completion:
		changes = []model.ContentChange{g.insertAt(doc, g.snippet())}
	case Paste:
		start := doc.cursor
		end := model.Position{Line: start.Line, Character: start.Character + 1 + g.rnd.Intn(8)}
		text := g.snippet()
		changes = []model.ContentChange{{Range: model.Range{Start: start, End: end}, Text: text}}
		doc.cursor = detector.EndPosition(start, text)
	case MultiCursor:
		text := g.snippet()
		first := doc.cursor
		second := model.Position{Line: first.Line + 2, Character: first.Character}
		changes = []model.ContentChange{
			{Range: model.Range{Start: first, End: first}, Text: text},
			{Range: model.Range{Start: second, End: second}, Text: text},
		}
		doc.cursor = detector.EndPosition(second, text)
	case Stale:
		return Step{Kind: Stale, Event: *doc.last}
	}

	doc.version++
	ev := model.ChangeEvent{
		Document: model.Document{URI: doc.uri, Version: doc.version},
		Changes:  changes,
	}
	doc.last = &ev
	return Step{Kind: kind, Event: ev}
}

// Generate returns count consecutive steps.
func (g *Generator) Generate(count int) []Step {
	result := make([]Step, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, g.Next())
	}
	return result
}

// Run calls emit with a new step every interval until count steps have been
// produced (count <= 0 runs forever) or ctx is done.
func (g *Generator) Run(ctx context.Context, interval time.Duration, count int, emit func(Step)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 0; count <= 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit(g.Next())
		}
	}
	return nil
}

func (g *Generator) insertAt(doc *document, text string) model.ContentChange {
	pos := doc.cursor
	doc.cursor = detector.EndPosition(pos, text)
	return model.ContentChange{Range: model.Range{Start: pos, End: pos}, Text: text}
}

func (g *Generator) snippet() string {
	return snippets[g.rnd.Intn(len(snippets))]
}

func (g *Generator) pickKind() Kind {
	total := 0.0
	for _, kw := range kindWeights {
		total += kw.weight
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	for _, kw := range kindWeights {
		acc += kw.weight
		if r <= acc {
			return kw.kind
		}
	}
	return kindWeights[len(kindWeights)-1].kind
}
