package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/tabhero/internal/model"
)

func TestRenderFooterFormats(t *testing.T) {
	m := NewModel(
		model.SessionStats{Score: 620, Tabs: 12, TPM: 3.3, Rank: "Rhythm Rookie"},
		model.AllTimeStats{Score: 4100, HighestRank: "Expert"},
		Options{},
	)
	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Score 620", "Tabs 12", "TPM 3.3", "Rank", "Rhythm Rookie", "All-time 4100 pts", "best Expert"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
