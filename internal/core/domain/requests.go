package domain

// AnalyzeRequest is one extraction call: exactly one of ImageURL,
// ImageBase64 or Transcript must be set.
type AnalyzeRequest struct {
	UserID      string `json:"userId"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
}

// CategorizeRequest asks for a category for one bank transaction line.
type CategorizeRequest struct {
	Description  string  `json:"description"`
	MerchantName string  `json:"merchant_name,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
}

// CoachChatRequest is one user turn of a coach conversation.
type CoachChatRequest struct {
	UserID         string     `json:"userId"`
	Message        string     `json:"message"`
	ConversationID string     `json:"conversationId"`
	History        []ChatTurn `json:"conversationHistory"`
}
