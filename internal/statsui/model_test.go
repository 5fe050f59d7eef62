package statsui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/store"
)

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestOverviewShowsBothCards(t *testing.T) {
	m := sized(NewModel(
		model.SessionStats{Score: 750, Tabs: 30, TPM: 4.5, Rank: "Rhythm Rookie"},
		model.AllTimeStats{Score: 12000, Tabs: 900, HighestTPM: 9.25, HighestRank: "Shredder"},
		nil,
	))
	out := m.View()
	for _, want := range []string{"Session", "All Time", "Rhythm Rookie", "Shredder", "750", "12000", "4.5", "Next: Tab Warrior at 1001 (251 to go)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("overview missing %q:\n%s", want, out)
		}
	}
	if got := lipgloss.Height(out); got != 40 {
		t.Fatalf("expected view to fill 40 rows, got %d", got)
	}
}

func TestTopRankMessage(t *testing.T) {
	m := sized(NewModel(model.SessionStats{Score: 60000, Rank: "Tab Legend"}, model.AllTimeStats{HighestRank: "Tab Legend"}, nil))
	if !strings.Contains(m.View(), "Top rank reached") {
		t.Fatalf("expected top rank message")
	}
}

func TestTabNavigation(t *testing.T) {
	m := sized(NewModel(model.SessionStats{Rank: "Roadie"}, model.AllTimeStats{HighestRank: "Expert"}, nil))

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	out := m.View()
	if !strings.Contains(out, "Combo King") || !strings.Contains(out, "highest ever") {
		t.Fatalf("expected rank table:\n%s", out)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "No completions recorded yet.") {
		t.Fatalf("expected empty history message")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabOverview {
		t.Fatalf("expected navigation to wrap to overview, got %d", m.activeTab)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabHistory {
		t.Fatalf("expected navigation to wrap to history, got %d", m.activeTab)
	}
}

func TestHistoryTab(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := st.RecordAcceptance(ctx, model.Acceptance{
			SessionID:   "s",
			AcceptedAt:  base.Add(time.Duration(i) * time.Minute),
			DocumentURI: "file:///repo/internal/server/handlers.go",
			Chars:       20 + i,
			Lines:       1,
			Score:       10 + i,
			Method:      model.MethodQuality,
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	m := sized(NewModel(model.SessionStats{Rank: "Roadie"}, model.AllTimeStats{HighestRank: "Roadie"}, st))
	if len(m.report.Recent) != 4 {
		t.Fatalf("expected 4 acceptances, got %d", len(m.report.Recent))
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	out := m.View()
	for _, want := range []string{"handlers.go", "quality", "Scores", "TPM"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q:\n%s", want, out)
		}
	}
}

func TestSetStatsUpdatesOverview(t *testing.T) {
	m := sized(NewModel(model.SessionStats{Rank: "Roadie"}, model.AllTimeStats{HighestRank: "Roadie"}, nil))
	m.SetStats(model.SessionStats{Score: 2100, Tabs: 3, Rank: "Expert"}, model.AllTimeStats{Score: 2100, HighestRank: "Expert"})
	if !strings.Contains(m.View(), "Expert") {
		t.Fatalf("expected updated rank in overview")
	}
}

func TestQuitKey(t *testing.T) {
	m := sized(NewModel(model.SessionStats{}, model.AllTimeStats{}, nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestRankColorFallback(t *testing.T) {
	if RankColor("Guitar God") != RankColor("Roadie") {
		t.Fatalf("expected unknown rank to use base colour")
	}
	if RankColor("Shredder") != lipgloss.Color("#ffd700") {
		t.Fatalf("unexpected shredder colour")
	}
}
