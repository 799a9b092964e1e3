package domain

// KeywordMatch is one hit from the static keyword table.
type KeywordMatch struct {
	Category    Category
	Subcategory string
	Confidence  float64
	Keyword     string
}

// CategorizationResult is returned by the categorization handler.
// AIUsed distinguishes keyword provenance from model-assisted results.
type CategorizationResult struct {
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory"`
	Confidence  float64  `json:"confidence"`
	Keywords    []string `json:"keywords"`
	AIUsed      bool     `json:"ai_used"`
}

// KeywordShortCircuitConfidence is the threshold above which a keyword
// match answers without consulting a model provider.
const KeywordShortCircuitConfidence = 0.8
