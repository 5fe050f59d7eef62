package stats

// Rank is one tier of the rank ladder.
type Rank struct {
	Name     string
	MinScore int
}

// rankThresholds is the only definition of the ladder. It must stay sorted
// ascending by MinScore and start at 0.
var rankThresholds = []Rank{
	{Name: "Roadie", MinScore: 0},
	{Name: "Rhythm Rookie", MinScore: 501},
	{Name: "Tab Warrior", MinScore: 1001},
	{Name: "Expert", MinScore: 2001},
	{Name: "Combo King", MinScore: 5001},
	{Name: "Shredder", MinScore: 10001},
	{Name: "Tab Hero", MinScore: 25001},
	{Name: "Tab Legend", MinScore: 50000},
}

// Ranks returns a copy of the rank ladder, lowest first.
func Ranks() []Rank {
	out := make([]Rank, len(rankThresholds))
	copy(out, rankThresholds)
	return out
}

// BaseRank is the rank every counter starts at.
func BaseRank() string {
	return rankThresholds[0].Name
}

// RankFor returns the highest rank whose minimum is at or below score.
func RankFor(score int) string {
	for i := len(rankThresholds) - 1; i >= 0; i-- {
		if score >= rankThresholds[i].MinScore {
			return rankThresholds[i].Name
		}
	}
	return BaseRank()
}

// RankIndex returns the ladder position of name. Unknown names rank as 0.
func RankIndex(name string) int {
	for i, r := range rankThresholds {
		if r.Name == name {
			return i
		}
	}
	return 0
}

// IsRankHigher reports whether a sits strictly above b on the ladder.
func IsRankHigher(a, b string) bool {
	return RankIndex(a) > RankIndex(b)
}

// NextRank returns the tier after the one score falls in, and false when
// score is already at the top tier.
func NextRank(score int) (Rank, bool) {
	idx := RankIndex(RankFor(score))
	if idx+1 >= len(rankThresholds) {
		return Rank{}, false
	}
	return rankThresholds[idx+1], true
}

// RankProgress returns how far score has moved from its tier's minimum
// toward the next tier, in [0, 1]. The top tier reports 1.
func RankProgress(score int) float64 {
	current := rankThresholds[RankIndex(RankFor(score))]
	next, ok := NextRank(score)
	if !ok {
		return 1
	}
	span := next.MinScore - current.MinScore
	if span <= 0 {
		return 1
	}
	p := float64(score-current.MinScore) / float64(span)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
