// Package engine connects the feed, the completion detector, the score
// calculator and the stats tracker.
package engine

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/verte-zerg/tabhero/internal/config"
	"github.com/verte-zerg/tabhero/internal/detector"
	"github.com/verte-zerg/tabhero/internal/logging"
	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/scoring"
)

// Scorer turns accepted text into points.
type Scorer interface {
	Calculate(text string) model.ScoreResult
}

// Tracker accumulates scores.
type Tracker interface {
	AddScore(score int)
	ResetSession()
}

// History persists scored acceptances.
type History interface {
	RecordAcceptance(ctx context.Context, a model.Acceptance) error
}

// ScoreEvent is published for every scored acceptance.
type ScoreEvent struct {
	Acceptance model.AcceptanceEvent
	Result     model.ScoreResult
	Record     model.Acceptance
}

type scoreListener struct {
	id int
	fn func(ScoreEvent)
}

// Engine scores acceptances reported by its detector.
type Engine struct {
	cfg      config.Source
	detector *detector.Detector
	scorer   Scorer
	tracker  Tracker
	history  History
	logger   *log.Logger
	now      func() time.Time

	// feedMu orders feed records against session resets.
	feedMu sync.Mutex

	mu        sync.Mutex
	sessionID string

	subMu  sync.Mutex
	nextID int
	subs   []scoreListener

	stop func()
}

// Option customises an Engine.
type Option func(*Engine)

// WithHistory records every scored acceptance in h.
func WithHistory(h History) Option {
	return func(e *Engine) {
		e.history = h
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSessionID fixes the id of the first session.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// New subscribes a new engine to det.
func New(src config.Source, det *detector.Detector, scorer Scorer, tracker Tracker, opts ...Option) *Engine {
	e := &Engine{
		cfg:      src,
		detector: det,
		scorer:   scorer,
		tracker:  tracker,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDiscard(e.logger)
	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}
	e.stop = det.Subscribe(e.handleAcceptance)
	return e
}

// Close detaches the engine from its detector.
func (e *Engine) Close() {
	e.stop()
}

// OnChange implements feed.Handler.
func (e *Engine) OnChange(ev model.ChangeEvent) {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()
	e.detector.OnDocumentChange(ev)
}

// OnSnapshot implements feed.Handler.
func (e *Engine) OnSnapshot(doc model.Document) {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()
	e.detector.Observe(doc)
}

// OnError implements feed.Handler.
func (e *Engine) OnError(err error) {
	e.logger.Warn("skipping feed record", "err", err)
}

// SessionID returns the id stamped on history records.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// ResetSession starts a new session in the tracker and the history. It waits
// for the record being processed, so every update from the old session is
// delivered before the reset. Listeners must not call it.
func (e *Engine) ResetSession() {
	e.feedMu.Lock()
	defer e.feedMu.Unlock()

	e.mu.Lock()
	e.sessionID = uuid.NewString()
	id := e.sessionID
	e.mu.Unlock()

	e.tracker.ResetSession()
	e.logger.Info("session reset", "session", id)
}

// Subscribe registers fn for every scored acceptance.
func (e *Engine) Subscribe(fn func(ScoreEvent)) (unsubscribe func()) {
	e.subMu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, scoreListener{id: id, fn: fn})
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i], e.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (e *Engine) handleAcceptance(ev model.AcceptanceEvent) {
	if !e.cfg.Current().Enabled {
		e.logger.Debug("scoring disabled, ignoring acceptance", "uri", ev.Document.URI)
		return
	}

	result := e.scorer.Calculate(ev.Text)
	e.tracker.AddScore(result.Score)

	rec := model.Acceptance{
		SessionID:   e.SessionID(),
		AcceptedAt:  e.now(),
		DocumentURI: ev.Document.URI,
		Chars:       utf8.RuneCountInString(ev.Text),
		Lines:       scoring.LineCount(ev.Text),
		Score:       result.Score,
		Method:      result.Method,
	}
	if e.history != nil {
		if err := e.history.RecordAcceptance(context.Background(), rec); err != nil {
			e.logger.Error("failed to record acceptance", "err", err)
		}
	}
	e.logger.Info("completion scored", "uri", rec.DocumentURI, "chars", rec.Chars, "score", rec.Score, "method", rec.Method)

	e.publish(ScoreEvent{Acceptance: ev, Result: result, Record: rec})
}

func (e *Engine) publish(ev ScoreEvent) {
	e.subMu.Lock()
	subs := make([]scoreListener, len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("score listener failed", "panic", r)
				}
			}()
			s.fn(ev)
		}()
	}
}
