package domain

import (
	"encoding/json"
	"time"
)

// Category is the closed set the extraction and categorization prompts
// are allowed to answer with. Anything else is coerced to CategoryOther.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryHousing       Category = "housing"
	CategoryHealth        Category = "health"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategorySubscriptions Category = "subscriptions"
	CategoryRestaurant    Category = "restaurant"
	CategoryTravel        Category = "travel"
	CategoryUtilities     Category = "utilities"
	CategoryIncome        Category = "income"
	CategoryOther         Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryFood: {}, CategoryTransport: {}, CategoryHousing: {},
	CategoryHealth: {}, CategoryEntertainment: {}, CategoryShopping: {},
	CategorySubscriptions: {}, CategoryRestaurant: {}, CategoryTravel: {},
	CategoryUtilities: {}, CategoryIncome: {}, CategoryOther: {},
}

// NormalizeCategory maps free-form model output onto the closed enum.
func NormalizeCategory(raw string) Category {
	c := Category(raw)
	if _, ok := knownCategories[c]; ok {
		return c
	}
	// The categorization prompt historically used the singular form.
	if raw == "subscription" {
		return CategorySubscriptions
	}
	return CategoryOther
}

// ReceiptItem is one line item read off a receipt.
type ReceiptItem struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Quantity float64 `json:"quantity"`
}

// ExtractedTransaction is the structured outcome of receipt or voice
// extraction. Amount is negative for an expense, positive for a refund
// or income.
type ExtractedTransaction struct {
	Amount      float64       `json:"amount"`
	Merchant    string        `json:"merchant,omitempty"`
	Date        time.Time     `json:"date"`
	Category    Category      `json:"category"`
	Subcategory string        `json:"subcategory,omitempty"`
	Description string        `json:"description"`
	Currency    string        `json:"currency"`
	Items       []ReceiptItem `json:"items,omitempty"`
	Confidence  float64       `json:"confidence"`
}

// TransactionSource records how a transaction entered the system.
type TransactionSource string

const (
	SourceScan  TransactionSource = "scan"
	SourceVoice TransactionSource = "voice"
)

// Transaction is the persisted record built from an extraction.
type Transaction struct {
	ID           string
	UserID       string
	Amount       float64
	Merchant     string
	Category     Category
	Subcategory  string
	Description  string
	Date         time.Time
	Currency     string
	Source       TransactionSource
	ScanImageURL string
	AIConfidence float64
	Metadata     json.RawMessage
	CreatedAt    time.Time
}

// ExtractedTransactionFromStructured decodes the normalizer's generic
// mapping into a typed extraction, applying the defaults the prompt
// contract allows the model to omit.
func ExtractedTransactionFromStructured(structured map[string]any, now time.Time) (ExtractedTransaction, error) {
	raw, err := json.Marshal(structured)
	if err != nil {
		return ExtractedTransaction{}, WrapError(ErrInvalidInput, "encode structured output", err)
	}

	var decoded struct {
		Amount      float64       `json:"amount"`
		Merchant    string        `json:"merchant"`
		Date        string        `json:"date"`
		Category    string        `json:"category"`
		Subcategory string        `json:"subcategory"`
		Description string        `json:"description"`
		Currency    string        `json:"currency"`
		Items       []ReceiptItem `json:"items"`
		Confidence  float64       `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ExtractedTransaction{}, WrapError(ErrInvalidInput, "decode extraction", err)
	}

	tx := ExtractedTransaction{
		Amount:      decoded.Amount,
		Merchant:    decoded.Merchant,
		Category:    NormalizeCategory(decoded.Category),
		Subcategory: decoded.Subcategory,
		Description: truncate(decoded.Description, 50),
		Currency:    decoded.Currency,
		Items:       decoded.Items,
		Confidence:  clamp01(decoded.Confidence),
		Date:        now,
	}
	if decoded.Date != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, decoded.Date); err == nil {
				tx.Date = parsed
				break
			}
		}
	}
	if tx.Currency == "" {
		tx.Currency = "EUR"
	}
	return tx, nil
}

// truncate cuts on rune boundaries so accented descriptions never end
// in a broken multibyte sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
