package domain

import "time"

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message in a coach conversation.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// CoachAction is an embedded structured directive the assistant asks
// the client to execute (create a goal, mark a subscription, show a
// chart). It rides inside the streamed text as an <action> tag.
type CoachAction struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

type ChatEventType string

const (
	ChatEventToken    ChatEventType = "token"
	ChatEventActions  ChatEventType = "actions"
	ChatEventMetadata ChatEventType = "metadata"
)

// ChatStreamEvent is one server-sent frame of a coach chat response.
// Ordering contract: zero or more token events, then at most one
// actions event, then an optional metadata event; the transport closes
// the stream with a literal [DONE] frame.
type ChatStreamEvent struct {
	Type          ChatEventType `json:"type"`
	Content       string        `json:"content,omitempty"`
	Actions       []CoachAction `json:"actions,omitempty"`
	UsingFallback bool          `json:"usingFallback,omitempty"`
}

func TokenEvent(content string) ChatStreamEvent {
	return ChatStreamEvent{Type: ChatEventToken, Content: content}
}

func ActionsEvent(actions []CoachAction) ChatStreamEvent {
	return ChatStreamEvent{Type: ChatEventActions, Actions: actions}
}

func MetadataEvent(usingFallback bool) ChatStreamEvent {
	return ChatStreamEvent{Type: ChatEventMetadata, UsingFallback: usingFallback}
}

// CoachMessage is a persisted assistant reply: the streamed text with
// the action tag removed, plus the parsed actions.
type CoachMessage struct {
	ID             string
	ConversationID string
	UserID         string
	Role           string
	Content        string
	Actions        []CoachAction
	CreatedAt      time.Time
}

// FinancialContext is the per-user snapshot the coach prompt is built
// from. All fields degrade to zero values when reads fail; the chat
// must answer even with an empty picture.
type FinancialContext struct {
	CurrentBalance  float64
	MonthlyIncome   float64
	MonthlyExpenses float64
	TopCategories   []CategorySpending
	Subscriptions   []SubscriptionInfo
	Vampires        []VampireAlert
	Goals           []GoalInfo
	UnreadInsights  []string
}

type CategorySpending struct {
	Category   string
	Amount     float64
	Percentage float64
}

type SubscriptionInfo struct {
	ID           string
	Name         string
	Amount       float64
	BillingCycle string
	IsVampire    bool
	// PreviousAmount is the price before the last change; used to
	// describe vampire subscriptions (price raised without an explicit
	// renewal action from the user).
	PreviousAmount float64
}

type VampireAlert struct {
	SubscriptionID string
	Name           string
	OldAmount      float64
	NewAmount      float64
}

type GoalInfo struct {
	ID                 string
	Name               string
	CurrentAmount      float64
	TargetAmount       float64
	ProgressPercentage float64
}
