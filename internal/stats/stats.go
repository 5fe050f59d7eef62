// Package stats tracks session and lifetime scores, ranks and reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/tabhero/internal/model"
)

const sparkChars = " .:-=+*#%@"

// TabsPerMinute returns accepted completions per minute over elapsed,
// rounded to one decimal. While elapsed rounds to zero minutes the raw tab
// count is returned instead of dividing by a near-zero duration.
func TabsPerMinute(tabs int, elapsed time.Duration) float64 {
	if tabs == 0 {
		return 0
	}
	minutes := elapsed.Minutes()
	if math.Round(minutes) <= 0 {
		return float64(tabs)
	}
	return math.Round(float64(tabs)/minutes*10) / 10
}

// SessionTPM computes the tabs per minute of a recorded session.
func SessionTPM(s model.SessionSummary) float64 {
	return TabsPerMinute(s.Tabs, s.EndedAt.Sub(s.StartedAt))
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the session and lifetime counters.
func RenderSummary(w io.Writer, session model.SessionStats, all model.AllTimeStats) error {
	lines := []string{
		"Session",
		fmt.Sprintf("Rank: %s", session.Rank),
		fmt.Sprintf("Score: %d", session.Score),
		fmt.Sprintf("Tabs: %d", session.Tabs),
		fmt.Sprintf("TPM: %.1f", session.TPM),
		"",
		"All Time",
		fmt.Sprintf("Highest Rank: %s", all.HighestRank),
		fmt.Sprintf("Total Score: %d", all.Score),
		fmt.Sprintf("Total Tabs: %d", all.Tabs),
		fmt.Sprintf("Highest TPM: %.1f", all.HighestTPM),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderRankTable prints the rank ladder, marking the current and highest ranks.
func RenderRankTable(w io.Writer, current, highest string) error {
	headers := []string{"", "Rank", "Min Score"}
	rows := make([][]string, 0, len(rankThresholds))
	for _, r := range rankThresholds {
		// Two fixed cells keep the name column aligned whatever is marked.
		cur, hi := " ", " "
		if r.Name == current {
			cur = "*"
		}
		if r.Name == highest {
			hi = "+"
		}
		rows = append(rows, []string{cur + hi, r.Name, fmt.Sprintf("%d", r.MinScore)})
	}
	return textTable{headers: headers, rows: rows, rightAlign: map[int]bool{2: true}}.write(w)
}

// RenderSessionTable prints one row per recorded session, newest last.
func RenderSessionTable(w io.Writer, sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"Started", "Tabs", "Score", "TPM", "Rank"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.Tabs),
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%.1f", SessionTPM(s)),
			RankFor(s.Score),
		})
	}
	return textTable{headers: headers, rows: rows, rightAlign: map[int]bool{1: true, 2: true, 3: true}}.write(w)
}
