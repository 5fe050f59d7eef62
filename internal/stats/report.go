package stats

import (
	"context"
	"sort"

	"github.com/verte-zerg/tabhero/internal/model"
)

// HistoryReader lists recorded acceptances, oldest first.
type HistoryReader interface {
	ListAcceptances(ctx context.Context, limit int) ([]model.Acceptance, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Recent   []model.Acceptance
	Sessions []model.SessionSummary
}

// BuildReport loads the last limit acceptances and groups them by session.
func BuildReport(ctx context.Context, h HistoryReader, limit int) (Report, error) {
	recent, err := h.ListAcceptances(ctx, limit)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Recent:   recent,
		Sessions: SummarizeSessions(recent),
	}, nil
}

// SummarizeSessions groups acceptances by session, ordered by start time.
func SummarizeSessions(acceptances []model.Acceptance) []model.SessionSummary {
	byID := map[string]*model.SessionSummary{}
	for _, a := range acceptances {
		s, ok := byID[a.SessionID]
		if !ok {
			s = &model.SessionSummary{
				SessionID: a.SessionID,
				StartedAt: a.AcceptedAt,
				EndedAt:   a.AcceptedAt,
			}
			byID[a.SessionID] = s
		}
		if a.AcceptedAt.Before(s.StartedAt) {
			s.StartedAt = a.AcceptedAt
		}
		if a.AcceptedAt.After(s.EndedAt) {
			s.EndedAt = a.AcceptedAt
		}
		s.Score += a.Score
		s.Tabs++
	}
	out := make([]model.SessionSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// ScoreSeries returns the score of each acceptance in order.
func ScoreSeries(acceptances []model.Acceptance) []float64 {
	out := make([]float64, len(acceptances))
	for i, a := range acceptances {
		out[i] = float64(a.Score)
	}
	return out
}

// TPMSeries returns the tabs per minute of each session in order.
func TPMSeries(sessions []model.SessionSummary) []float64 {
	out := make([]float64, len(sessions))
	for i, s := range sessions {
		out[i] = SessionTPM(s)
	}
	return out
}
