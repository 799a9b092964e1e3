package domain

// TaskKind identifies which inference task a request carries. The
// orchestrator treats tasks uniformly; handlers choose the provider
// chain and prompt per task.
type TaskKind string

const (
	TaskExtractReceipt TaskKind = "extract_receipt"
	TaskExtractVoice   TaskKind = "extract_voice"
	TaskCategorize     TaskKind = "categorize"
	TaskChatTurn       TaskKind = "chat_turn"
)

// InferenceRequest is immutable once constructed.
type InferenceRequest struct {
	Task        TaskKind
	System      string
	Prompt      string
	ImageURL    string
	ImageBase64 string
	MaxTokens   int
	Temperature float64
	ForceJSON   bool
}

type ResultKind string

const (
	ResultSuccess       ResultKind = "success"
	ResultRejected      ResultKind = "rejected"
	ResultMalformed     ResultKind = "malformed_output"
	ResultProviderError ResultKind = "provider_error"
)

// InferenceResult is the value returned across the orchestrator
// boundary. Exactly one variant is populated, selected by Kind.
type InferenceResult struct {
	Kind ResultKind

	// ResultSuccess
	Structured map[string]any

	// ResultRejected: the model parsed the input and explicitly
	// declined it ("not_a_receipt", "image_not_clear", ...).
	RejectionTag     string
	RejectionMessage string

	// ResultMalformed
	RawText string

	// ResultProviderError
	Provider string
	Message  string
}

func SuccessResult(structured map[string]any) InferenceResult {
	return InferenceResult{Kind: ResultSuccess, Structured: structured}
}

func RejectedResult(tag, message string) InferenceResult {
	return InferenceResult{Kind: ResultRejected, RejectionTag: tag, RejectionMessage: message}
}

func MalformedResult(rawText string) InferenceResult {
	return InferenceResult{Kind: ResultMalformed, RawText: rawText}
}

func ProviderErrorResult(provider, message string) InferenceResult {
	return InferenceResult{Kind: ResultProviderError, Provider: provider, Message: message}
}
