package stats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("read failed")
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("write failed")
}

func storedAllTime(t *testing.T, st Store) map[string]any {
	t.Helper()
	data, ok, err := st.Get(context.Background(), AllTimeStatsKey)
	require.NoError(t, err)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestAddScoreFromEmptyStore(t *testing.T) {
	st := store.NewMemory()
	tr := NewTracker(st, WithClock(newFakeClock().Now))

	tr.AddScore(10)

	session := tr.SessionStats()
	assert.Equal(t, 10, session.Score)
	assert.Equal(t, 1, session.Tabs)
	assert.Equal(t, "Roadie", session.Rank)

	all := tr.AllTimeStats()
	assert.Equal(t, 10, all.Score)
	assert.Equal(t, 1, all.Tabs)
	assert.Equal(t, "Roadie", all.HighestRank)
	assert.InDelta(t, 1, all.HighestTPM, 1e-9)

	raw := storedAllTime(t, st)
	assert.Equal(t, float64(10), raw["score"])
	assert.Equal(t, float64(1), raw["tabs"])
	assert.Equal(t, "Roadie", raw["highestRank"])
	assert.Contains(t, raw, "highestTPM")
}

func TestSessionRankThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{500, "Roadie"},
		{501, "Rhythm Rookie"},
		{50000, "Tab Legend"},
	}
	for _, tc := range tests {
		tr := NewTracker(store.NewMemory())
		tr.AddScore(tc.score)
		assert.Equal(t, tc.want, tr.SessionStats().Rank, "score %d", tc.score)
	}
}

func TestHighestRankNeverDecreases(t *testing.T) {
	st := store.NewMemory()
	tr := NewTracker(st)
	tr.AddScore(2500)
	assert.Equal(t, "Expert", tr.AllTimeStats().HighestRank)

	tr.ResetSession()
	tr.AddScore(5)
	assert.Equal(t, "Roadie", tr.SessionStats().Rank)
	assert.Equal(t, "Expert", tr.AllTimeStats().HighestRank)

	again := NewTracker(st)
	again.AddScore(1)
	assert.Equal(t, "Expert", again.AllTimeStats().HighestRank)
	assert.Equal(t, 2506, again.AllTimeStats().Score)
}

func TestHighestTPMKeepsMaximum(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(store.NewMemory(), WithClock(clock.Now))
	for i := 0; i < 5; i++ {
		tr.AddScore(1)
	}
	assert.InDelta(t, 5, tr.AllTimeStats().HighestTPM, 1e-9)

	clock.Advance(10 * time.Minute)
	tr.AddScore(1)
	assert.InDelta(t, 0.6, tr.CalculateTPM(), 1e-9)
	assert.InDelta(t, 5, tr.AllTimeStats().HighestTPM, 1e-9)
}

func TestCalculateTPM(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(store.NewMemory(), WithClock(clock.Now))
	assert.Equal(t, float64(0), tr.CalculateTPM())

	tr.AddScore(3)
	tr.AddScore(3)
	assert.Equal(t, float64(2), tr.CalculateTPM())

	clock.Advance(2 * time.Minute)
	assert.InDelta(t, 1, tr.CalculateTPM(), 1e-9)
	assert.InDelta(t, 1, tr.SessionStats().TPM, 1e-9)
}

func TestLegacyRecordBackfillsHighestRank(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), AllTimeStatsKey,
		[]byte(`{"score":1200,"tabs":40,"highestTPM":3.5}`)))

	tr := NewTracker(st)
	all := tr.AllTimeStats()
	assert.Equal(t, 1200, all.Score)
	assert.Equal(t, 40, all.Tabs)
	assert.InDelta(t, 3.5, all.HighestTPM, 1e-9)
	assert.Equal(t, "Tab Warrior", all.HighestRank)
}

func TestMalformedFieldsFallBackToDefaults(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), AllTimeStatsKey,
		[]byte(`{"score":"lots","tabs":7,"highestRank":"Expert"}`)))

	all := NewTracker(st).AllTimeStats()
	assert.Equal(t, 0, all.Score)
	assert.Equal(t, 7, all.Tabs)
	assert.Equal(t, "Expert", all.HighestRank)

	require.NoError(t, st.Set(context.Background(), AllTimeStatsKey, []byte(`not json`)))
	all = NewTracker(st).AllTimeStats()
	assert.Equal(t, model.AllTimeStats{HighestRank: "Roadie"}, all)
}

func TestOutOfRangeCountersFallBackToZero(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), AllTimeStatsKey,
		[]byte(`{"score":1e300,"tabs":-5,"highestTPM":2.5,"highestRank":"Expert"}`)))

	all := NewTracker(st).AllTimeStats()
	assert.Equal(t, 0, all.Score)
	assert.Equal(t, 0, all.Tabs)
	assert.InDelta(t, 2.5, all.HighestTPM, 1e-9)
	assert.Equal(t, "Expert", all.HighestRank)
}

func TestStoreFailuresDoNotPanic(t *testing.T) {
	tr := NewTracker(failingStore{})
	assert.NotPanics(t, func() {
		tr.AddScore(4)
	})
	assert.Equal(t, 4, tr.SessionStats().Score)
	assert.Equal(t, model.AllTimeStats{HighestRank: "Roadie"}, tr.AllTimeStats())
}

func TestSubscribeCallsImmediatelyAndOnUpdate(t *testing.T) {
	tr := NewTracker(store.NewMemory())
	var sessions []model.SessionStats
	unsubscribe := tr.Subscribe(func(s model.SessionStats, _ model.AllTimeStats) {
		sessions = append(sessions, s)
	})
	require.Len(t, sessions, 1)
	assert.Equal(t, 0, sessions[0].Score)

	tr.AddScore(7)
	require.Len(t, sessions, 2)
	assert.Equal(t, 7, sessions[1].Score)

	unsubscribe()
	unsubscribe()
	tr.AddScore(7)
	assert.Len(t, sessions, 2)
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	tr := NewTracker(store.NewMemory())
	calls := 0
	tr.Subscribe(func(model.SessionStats, model.AllTimeStats) {
		panic("boom")
	})
	tr.Subscribe(func(model.SessionStats, model.AllTimeStats) {
		calls++
	})

	assert.NotPanics(t, func() {
		tr.AddScore(1)
	})
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, tr.SessionStats().Tabs)
}

func TestResetSessionKeepsLifetime(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(store.NewMemory(), WithClock(clock.Now))
	tr.AddScore(600)
	clock.Advance(time.Minute)

	var got model.SessionStats
	tr.Subscribe(func(s model.SessionStats, _ model.AllTimeStats) {
		got = s
	})
	tr.ResetSession()

	assert.Equal(t, 0, got.Score)
	assert.Equal(t, 0, got.Tabs)
	assert.Equal(t, "Roadie", got.Rank)
	assert.True(t, got.StartTime.Equal(clock.Now()))
	assert.Equal(t, 600, tr.AllTimeStats().Score)
	assert.Equal(t, "Rhythm Rookie", tr.AllTimeStats().HighestRank)
}

func TestTrackerRank(t *testing.T) {
	tr := NewTracker(store.NewMemory())
	assert.Equal(t, "Combo King", tr.Rank(5001))
}
