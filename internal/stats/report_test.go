package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tabhero.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Hour)
		for j := 0; j < 4; j++ {
			a := model.Acceptance{
				SessionID:   []string{"a", "b", "c"}[i],
				AcceptedAt:  start.Add(time.Duration(j) * 30 * time.Second),
				DocumentURI: "file:///main.go",
				Chars:       12,
				Lines:       1,
				Score:       10 * (i + 1),
				Method:      model.MethodFixed,
			}
			if err := st.RecordAcceptance(ctx, a); err != nil {
				t.Fatalf("record acceptance: %v", err)
			}
		}
	}

	report, err := BuildReport(ctx, st, 8)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Recent) != 8 {
		t.Fatalf("expected 8 recent acceptances, got %d", len(report.Recent))
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != "b" || report.Sessions[1].SessionID != "c" {
		t.Fatalf("unexpected session order: %+v", report.Sessions)
	}
	if report.Sessions[1].Score != 120 || report.Sessions[1].Tabs != 4 {
		t.Fatalf("unexpected totals: %+v", report.Sessions[1])
	}
	if got := report.Sessions[1].EndedAt.Sub(report.Sessions[1].StartedAt); got != 90*time.Second {
		t.Fatalf("unexpected session span: %v", got)
	}
}

func TestSummarizeSessionsEmpty(t *testing.T) {
	if got := SummarizeSessions(nil); len(got) != 0 {
		t.Fatalf("expected no sessions, got %+v", got)
	}
}

func TestSeries(t *testing.T) {
	acceptances := []model.Acceptance{{Score: 3}, {Score: 7}}
	scores := ScoreSeries(acceptances)
	if len(scores) != 2 || scores[0] != 3 || scores[1] != 7 {
		t.Fatalf("unexpected score series: %v", scores)
	}

	start := time.Unix(0, 0)
	sessions := []model.SessionSummary{
		{StartedAt: start, EndedAt: start.Add(2 * time.Minute), Tabs: 10},
		{StartedAt: start, EndedAt: start, Tabs: 3},
	}
	tpm := TPMSeries(sessions)
	if tpm[0] != 5 || tpm[1] != 3 {
		t.Fatalf("unexpected tpm series: %v", tpm)
	}
}
