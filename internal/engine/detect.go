package engine

import "strings"

// QueryType determines how the LLM should shape its answer.
type QueryType int

const (
	QtGeneral    QueryType = iota // default
	QtFact                        // single fact: price, date, number
	QtComparison                  // X vs Y, differences
	QtList                        // enumerate items
	QtHowTo                       // step-by-step
)

var queryTypePatterns = []struct {
	qt       QueryType
	patterns []string
}{
	{QtFact, []string{
		"what is the", "who is", "who was", "when did", "when was", "what year",
		"how many", "how much", "price", "population", "сколько", "когда",
	}},
	{QtComparison, []string{
		" vs ", " versus ", "compare", "comparison", "difference between",
		"better than", "сравни", "разниц",
	}},
	{QtList, []string{
		"list ", "top ", "best ", "examples of", "which ", "types of",
		"alternatives", "перечисли", "какие",
	}},
	{QtHowTo, []string{
		"how to", "how do", "how can", "steps to", "step by step",
		"guide", "tutorial", "как ",
	}},
}

// DetectQueryType classifies a question by simple pattern matching.
// Earlier groups win: "what is the difference" is a fact question.
func DetectQueryType(query string) QueryType {
	q := strings.ToLower(query)
	for _, g := range queryTypePatterns {
		for _, p := range g.patterns {
			if strings.Contains(q, p) {
				return g.qt
			}
		}
	}
	return QtGeneral
}
