package stats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tabhero/internal/logging"
	"github.com/verte-zerg/tabhero/internal/model"
)

// AllTimeStatsKey is the store key of the lifetime record.
const AllTimeStatsKey = "tabHero.allTimeStats"

// Store is the persistent key-value store holding the lifetime record.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// UpdateFunc receives stats after every change.
type UpdateFunc func(session model.SessionStats, allTime model.AllTimeStats)

type subscriber struct {
	id int
	fn UpdateFunc
}

// Tracker owns the session counters and the persisted lifetime record.
type Tracker struct {
	store  Store
	logger *log.Logger
	now    func() time.Time

	mu           sync.Mutex
	sessionScore int
	sessionTabs  int
	sessionStart time.Time

	subMu  sync.Mutex
	nextID int
	subs   []subscriber
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger used for persistence and subscriber failures.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker starts a fresh session backed by st.
func NewTracker(st Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: st,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.OrDiscard(t.logger)
	t.sessionStart = t.now()

	all := t.AllTimeStats()
	t.logger.Debug("loaded lifetime stats", "score", all.Score, "tabs", all.Tabs, "highestRank", all.HighestRank)
	return t
}

// AddScore records one accepted completion worth score points.
func (t *Tracker) AddScore(score int) {
	t.mu.Lock()
	now := t.now()
	t.sessionScore += score
	t.sessionTabs++

	tpm := TabsPerMinute(t.sessionTabs, now.Sub(t.sessionStart))
	rank := RankFor(t.sessionScore)

	all := t.loadAllTime()
	all.Score += score
	all.Tabs++
	if tpm > all.HighestTPM {
		all.HighestTPM = tpm
	}
	if IsRankHigher(rank, all.HighestRank) {
		all.HighestRank = rank
	}
	t.saveAllTime(all)

	session := t.sessionLocked(now)
	t.mu.Unlock()

	t.notify(session, all)
}

// ResetSession zeroes the session counters. Lifetime stats are untouched.
func (t *Tracker) ResetSession() {
	t.mu.Lock()
	t.sessionScore = 0
	t.sessionTabs = 0
	t.sessionStart = t.now()
	session := t.sessionLocked(t.sessionStart)
	t.mu.Unlock()

	t.notify(session, t.AllTimeStats())
}

// SessionStats returns the current session counters.
func (t *Tracker) SessionStats() model.SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionLocked(t.now())
}

// CalculateTPM returns the session's tabs per minute.
func (t *Tracker) CalculateTPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TabsPerMinute(t.sessionTabs, t.now().Sub(t.sessionStart))
}

// Rank returns the rank for score.
func (t *Tracker) Rank(score int) string {
	return RankFor(score)
}

// AllTimeStats reads the lifetime record from the store.
func (t *Tracker) AllTimeStats() model.AllTimeStats {
	return t.loadAllTime()
}

// Subscribe registers fn and calls it immediately with the current stats.
func (t *Tracker) Subscribe(fn UpdateFunc) (unsubscribe func()) {
	t.subMu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber{id: id, fn: fn})
	t.subMu.Unlock()

	t.call(fn, t.SessionStats(), t.AllTimeStats())

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subMu.Lock()
			defer t.subMu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (t *Tracker) sessionLocked(now time.Time) model.SessionStats {
	return model.SessionStats{
		Score:     t.sessionScore,
		Tabs:      t.sessionTabs,
		StartTime: t.sessionStart,
		TPM:       TabsPerMinute(t.sessionTabs, now.Sub(t.sessionStart)),
		Rank:      RankFor(t.sessionScore),
	}
}

func (t *Tracker) notify(session model.SessionStats, all model.AllTimeStats) {
	t.subMu.Lock()
	subs := make([]subscriber, len(t.subs))
	copy(subs, t.subs)
	t.subMu.Unlock()

	for _, s := range subs {
		t.call(s.fn, session, all)
	}
}

func (t *Tracker) call(fn UpdateFunc, session model.SessionStats, all model.AllTimeStats) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("stats subscriber failed", "panic", r)
		}
	}()
	fn(session, all)
}

// loadAllTime decodes the stored record field by field so that a missing or
// malformed field falls back to its default without discarding the rest.
func (t *Tracker) loadAllTime() model.AllTimeStats {
	all := model.AllTimeStats{HighestRank: BaseRank()}
	data, ok, err := t.store.Get(context.Background(), AllTimeStatsKey)
	if err != nil {
		t.logger.Warn("failed to read lifetime stats", "err", err)
		return all
	}
	if !ok {
		return all
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.logger.Warn("ignoring unreadable lifetime stats", "err", err)
		return all
	}

	var highestTPM float64
	all.Score = decodeCounter(fields, "score")
	all.Tabs = decodeCounter(fields, "tabs")
	decodeField(fields, "highestTPM", &highestTPM)
	all.HighestTPM = highestTPM

	var highestRank string
	decodeField(fields, "highestRank", &highestRank)
	if highestRank == "" {
		// Records written before highestRank existed.
		highestRank = RankFor(all.Score)
	}
	all.HighestRank = highestRank
	return all
}

func (t *Tracker) saveAllTime(all model.AllTimeStats) {
	data, err := json.Marshal(all)
	if err != nil {
		t.logger.Error("failed to encode lifetime stats", "err", err)
		return
	}
	if err := t.store.Set(context.Background(), AllTimeStatsKey, data); err != nil {
		t.logger.Error("failed to save lifetime stats", "err", err)
	}
}

// maxCounter is the largest count a float64 field holds exactly.
const maxCounter = 1 << 53

// decodeCounter reads a non-negative count. Values outside [0, maxCounter]
// fall back to zero.
func decodeCounter(fields map[string]json.RawMessage, name string) int {
	var v float64
	decodeField(fields, name, &v)
	if v < 0 || v > maxCounter {
		return 0
	}
	return int(v)
}

func decodeField(fields map[string]json.RawMessage, name string, target any) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	// A malformed field keeps the zero value.
	_ = json.Unmarshal(raw, target)
}
