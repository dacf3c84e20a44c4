package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/internal/models"
)

func TestAdjustTopK(t *testing.T) {
	yesNo := models.QueryIntent{QuestionType: models.QuestionYesNo, AnswerType: "yes_no"}
	assert.Equal(t, 10, AdjustTopK(yesNo, 15))
	assert.Equal(t, 7, AdjustTopK(yesNo, 7))

	list := models.QueryIntent{QuestionType: models.QuestionWhat, AnswerType: "list"}
	assert.Equal(t, 20, AdjustTopK(list, 15))
	assert.Equal(t, 25, AdjustTopK(list, 23))

	plain := models.QueryIntent{QuestionType: models.QuestionGeneral, AnswerType: "definition"}
	assert.Equal(t, 15, AdjustTopK(plain, 15))
}

func TestRerankScoresAndSorts(t *testing.T) {
	intent := models.QueryIntent{
		MainTopic:    "coverage",
		QuestionType: models.QuestionGeneral,
		KeyEntities:  []string{"claim", "premium", "benefit"},
	}
	candidates := []models.RetrievedSection{
		{ChunkIndex: 1, Text: "The claim process requires coverage confirmation first."},
		{ChunkIndex: 2, Text: "A claim against your coverage must be filed in writing."},
		{ChunkIndex: 3, Text: "Your claim, premium and benefit details fall under coverage rules."},
	}

	ranked := Rerank(candidates, intent)
	require.Len(t, ranked, 3)

	// Candidate 3 matches all three entities plus the topic; the first two
	// tie and keep their similarity order.
	assert.Equal(t, []int{3, 1, 2}, []int{ranked[0].ChunkIndex, ranked[1].ChunkIndex, ranked[2].ChunkIndex})
	assert.Equal(t, 9, ranked[0].Score)
	assert.Equal(t, 5, ranked[1].Score)
	assert.Equal(t, 5, ranked[2].Score)
	assert.Equal(t, 0, ranked[1].OrigIndex)
	assert.Equal(t, 1, ranked[2].OrigIndex)
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	intent := models.QueryIntent{MainTopic: "coverage"}
	candidates := []models.RetrievedSection{
		{ChunkIndex: 1, Text: "nothing relevant"},
		{ChunkIndex: 2, Text: "coverage details"},
	}

	Rerank(candidates, intent)
	assert.Equal(t, 1, candidates[0].ChunkIndex)
	assert.Equal(t, 0, candidates[0].Score)
}

func TestRerankTypeKeywordBoostAppliesOnce(t *testing.T) {
	intent := models.QueryIntent{QuestionType: models.QuestionWhen, MainTopic: "general"}
	ranked := Rerank([]models.RetrievedSection{
		{ChunkIndex: 1, Text: "a period of 30 days and another 12 months"},
	}, intent)
	// Multiple keyword hits still count as a single boost.
	assert.Equal(t, 2, ranked[0].Score)
}

func TestRerankEmpty(t *testing.T) {
	assert.Empty(t, Rerank(nil, models.QueryIntent{}))
}
