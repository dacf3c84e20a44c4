package retrieval

import (
	"sort"
	"strings"

	"docquery/internal/models"
)

const (
	entityBoost  = 2
	topicBoost   = 3
	keywordBoost = 2

	yesNoTopKCap = 10
	listTopKCap  = 25
)

// AdjustTopK tunes the candidate count by intent: yes/no questions need
// fewer candidates, list questions need more.
func AdjustTopK(intent models.QueryIntent, base int) int {
	switch {
	case intent.QuestionType == models.QuestionYesNo:
		return min(base, yesNoTopKCap)
	case intent.AnswerType == "list":
		return min(base+5, listTopKCap)
	default:
		return base
	}
}

// typeKeywords are the per-question-type boost terms.
var typeKeywords = map[models.QuestionType][]string{
	models.QuestionWhen: {"period", "days", "months", "years"},
	models.QuestionWhat: {"means", "defined", "definition"},
}

// Rerank scores each candidate against the intent and sorts descending by
// score. Candidates with equal score keep their original similarity-order
// position: the sort is stable with an explicit tie-break on OrigIndex.
func Rerank(candidates []models.RetrievedSection, intent models.QueryIntent) []models.RetrievedSection {
	if len(candidates) == 0 {
		return candidates
	}

	ranked := make([]models.RetrievedSection, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].OrigIndex = i
		ranked[i].Score = scoreCandidate(ranked[i].Text, intent)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].OrigIndex < ranked[b].OrigIndex
	})
	return ranked
}

func scoreCandidate(text string, intent models.QueryIntent) int {
	lower := strings.ToLower(text)

	score := 0
	for _, entity := range intent.KeyEntities {
		if strings.Contains(lower, strings.ToLower(entity)) {
			score += entityBoost
		}
	}
	if intent.MainTopic != "" && intent.MainTopic != "general" && strings.Contains(lower, intent.MainTopic) {
		score += topicBoost
	}
	for _, kw := range typeKeywords[intent.QuestionType] {
		if strings.Contains(lower, kw) {
			score += keywordBoost
			break
		}
	}
	return score
}
