package retrieval

import (
	"regexp"
	"strings"

	"docquery/internal/models"
)

// topicEntry pairs a taxonomy topic with its trigger keywords. Order
// matters: the first topic with a keyword hit wins.
type topicEntry struct {
	topic    string
	keywords []string
}

var topicTaxonomy = []topicEntry{
	{"premium", []string{"premium", "payment", "pay"}},
	{"waiting_period", []string{"waiting", "period", "wait"}},
	{"coverage", []string{"cover", "coverage", "covered", "benefit"}},
	{"exclusion", []string{"exclude", "exclusion", "not covered"}},
	{"claim", []string{"claim", "reimbursement"}},
	{"maternity", []string{"maternity", "pregnancy", "childbirth"}},
	{"surgery", []string{"surgery", "operation", "procedure"}},
	{"hospital", []string{"hospital", "hospitalization"}},
	{"pre_existing", []string{"pre-existing", "ped"}},
}

var (
	medicalTermsRE = regexp.MustCompile(`(?i)\b(?:surgery|operation|procedure|treatment|therapy|scan|test)\b`)
	policyTermsRE  = regexp.MustCompile(`(?i)\b(?:premium|deductible|copay|coverage|benefit|claim|exclusion)\b`)
	timeTermsRE    = regexp.MustCompile(`(?i)\b(?:\d+\s*(?:days?|months?|years?)|waiting period|grace period)\b`)
	amountsRE      = regexp.MustCompile(`\$?\d+(?:,\d{3})*(?:\.\d{2})?`)
	listLeadRE     = regexp.MustCompile(`(?i)^(?:list|what are|which are)\b|\blist all\b`)
)

// ExtractIntent derives a lightweight intent from the question. It is pure
// and offline: topic by keyword taxonomy, question type by prefix matching,
// entities by pattern extraction. No network call is ever made here.
func ExtractIntent(question string) models.QueryIntent {
	return models.QueryIntent{
		MainTopic:    mainTopic(question),
		QuestionType: questionType(question),
		KeyEntities:  keyEntities(question),
		AnswerType:   answerType(question),
	}
}

func mainTopic(question string) string {
	q := strings.ToLower(question)
	for _, entry := range topicTaxonomy {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.topic
			}
		}
	}
	return "general"
}

func questionType(question string) models.QuestionType {
	q := strings.ToLower(strings.TrimSpace(question))
	switch {
	case hasAnyPrefix(q, "what", "which"):
		return models.QuestionWhat
	case hasAnyPrefix(q, "when", "how long"):
		return models.QuestionWhen
	case hasAnyPrefix(q, "how"):
		return models.QuestionHow
	case hasAnyPrefix(q, "does", "is", "are", "can"):
		return models.QuestionYesNo
	case hasAnyPrefix(q, "where"):
		return models.QuestionWhere
	case hasAnyPrefix(q, "why"):
		return models.QuestionWhy
	default:
		return models.QuestionGeneral
	}
}

// keyEntities collects medical terms, policy terms, time spans and
// currency-like amounts, deduplicated in first-seen order.
func keyEntities(question string) []string {
	var entities []string
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{medicalTermsRE, policyTermsRE, timeTermsRE, amountsRE} {
		for _, m := range re.FindAllString(question, -1) {
			key := strings.ToLower(m)
			if !seen[key] {
				seen[key] = true
				entities = append(entities, m)
			}
		}
	}
	return entities
}

func answerType(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	switch {
	case listLeadRE.MatchString(q):
		return "list"
	case questionType(question) == models.QuestionYesNo:
		return "yes_no"
	case questionType(question) == models.QuestionWhen:
		return "duration"
	default:
		return "definition"
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
