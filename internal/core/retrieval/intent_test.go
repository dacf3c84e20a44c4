package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docquery/internal/models"
)

func TestMainTopic(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"What is the grace period for premium payment?", "premium"},
		{"Is there a waiting period for cataract surgery?", "waiting_period"},
		{"Does this policy cover knee replacement?", "coverage"},
		{"What are the exclusions under this plan?", "exclusion"},
		{"How do I file a claim for reimbursement?", "claim"},
		{"Are maternity expenses included?", "maternity"},
		{"Is hospitalization required for day care?", "hospital"},
		{"Tell me about this plan", "general"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mainTopic(tt.question), tt.question)
	}
}

func TestMainTopicFirstHitWins(t *testing.T) {
	// Both premium and claim keywords appear; the taxonomy is ordered and
	// premium comes first.
	assert.Equal(t, "premium", mainTopic("Can I claim the premium back?"))
}

func TestQuestionType(t *testing.T) {
	tests := []struct {
		question string
		want     models.QuestionType
	}{
		{"What is covered?", models.QuestionWhat},
		{"Which plan applies?", models.QuestionWhat},
		{"When does coverage begin?", models.QuestionWhen},
		{"How long is the waiting period?", models.QuestionWhen},
		{"How do I submit documents?", models.QuestionHow},
		{"Does the policy cover dental?", models.QuestionYesNo},
		{"Is there a copay?", models.QuestionYesNo},
		{"Where can I get treated?", models.QuestionWhere},
		{"Why was my claim denied?", models.QuestionWhy},
		{"Tell me about sub-limits", models.QuestionGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, questionType(tt.question), tt.question)
	}
}

func TestKeyEntities(t *testing.T) {
	entities := keyEntities("Is surgery covered after a waiting period of 30 days with a premium of $1,500.00?")
	assert.Contains(t, entities, "surgery")
	assert.Contains(t, entities, "premium")
	assert.Contains(t, entities, "30 days")
	assert.Contains(t, entities, "$1,500.00")
}

func TestKeyEntitiesDeduplicated(t *testing.T) {
	entities := keyEntities("Is surgery covered and is Surgery expensive?")
	count := 0
	for _, e := range entities {
		if e == "surgery" || e == "Surgery" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAnswerType(t *testing.T) {
	assert.Equal(t, "list", answerType("List all exclusions in this policy"))
	assert.Equal(t, "list", answerType("What are the covered procedures?"))
	assert.Equal(t, "yes_no", answerType("Does the plan cover dental?"))
	assert.Equal(t, "duration", answerType("When does the waiting period end?"))
	assert.Equal(t, "definition", answerType("Explain the deductible"))
}

func TestExtractIntentComposes(t *testing.T) {
	intent := ExtractIntent("Does this policy cover cataract surgery?")
	assert.Equal(t, "coverage", intent.MainTopic)
	assert.Equal(t, models.QuestionYesNo, intent.QuestionType)
	assert.Equal(t, "yes_no", intent.AnswerType)
	assert.Contains(t, intent.KeyEntities, "surgery")
}
