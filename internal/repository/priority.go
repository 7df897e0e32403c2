package repository

import (
	"sort"

	"github.com/carter2099/best-bets/internal/models"
)

// AnalysisOrderSQL selects the next token to analyse. It must stay in step with AnalysisLess.
const AnalysisOrderSQL = "CASE WHEN last_analysis_at IS NULL THEN 1 ELSE 0 END DESC, " +
	"is_new DESC, " +
	"score DESC NULLS LAST, " +
	"last_analysis_at ASC NULLS FIRST, " +
	"address ASC"

// RankOrderSQL orders scored tokens for ranking. It must stay in step with RankLess.
const RankOrderSQL = "score DESC, address ASC"

// AnalysisLess reports whether a should be analysed before b: never analysed first,
// then newly discovered, then higher score (nil last), then least recently analysed
// (nil first). Address breaks remaining ties.
func AnalysisLess(a, b *models.Token) bool {
	aNever, bNever := a.LastAnalysisAt == nil, b.LastAnalysisAt == nil
	if aNever != bNever {
		return aNever
	}
	if a.IsNew != b.IsNew {
		return a.IsNew
	}
	switch {
	case a.Score != nil && b.Score == nil:
		return true
	case a.Score == nil && b.Score != nil:
		return false
	case a.Score != nil && b.Score != nil && *a.Score != *b.Score:
		return *a.Score > *b.Score
	}
	switch {
	case aNever && !bNever:
		return true
	case !aNever && bNever:
		return false
	case !aNever && !bNever && !a.LastAnalysisAt.Equal(*b.LastAnalysisAt):
		return a.LastAnalysisAt.Before(*b.LastAnalysisAt)
	}
	return a.Address < b.Address
}

// RankLess orders scored tokens by score descending with address as the stable tie-break.
func RankLess(a, b *models.Token) bool {
	if *a.Score != *b.Score {
		return *a.Score > *b.Score
	}
	return a.Address < b.Address
}

// AssignRanks returns address -> rank for the first k scored tokens. Unscored tokens
// are ignored; every token absent from the result is unranked.
func AssignRanks(tokens []*models.Token, k int) map[string]int {
	scored := make([]*models.Token, 0, len(tokens))
	for _, t := range tokens {
		if t != nil && t.Score != nil {
			scored = append(scored, t)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return RankLess(scored[i], scored[j]) })
	out := make(map[string]int, k)
	for i, t := range scored {
		if i >= k {
			break
		}
		out[t.Address] = i + 1
	}
	return out
}
