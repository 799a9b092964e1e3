package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

const receiptSystemPrompt = "You are an assistant that analyzes store receipts and invoices and returns only valid JSON."

func buildReceiptPrompt(now time.Time) string {
	return fmt.Sprintf(`You are an expert at reading store receipts and invoices.
Analyze this image and return ONLY a valid JSON object with these fields:
{
  "amount": number (total incl. tax, negative for an expense, positive for a refund),
  "merchant": string (store/merchant name),
  "date": string (ISO 8601, use today's date if not visible: %s),
  "category": string (one of: food/transport/housing/health/entertainment/shopping/subscriptions/restaurant/travel/utilities/other),
  "subcategory": string (specific subcategory when identifiable),
  "description": string (short description, max 50 characters),
  "currency": string (EUR by default, or the detected currency),
  "items": array (optional, line items as {name, amount, quantity} when readable),
  "confidence": number (0.0 to 1.0)
}

Rules:
- The amount must be negative for an expense, positive for a refund
- The category must come from the provided list
- If this is not a receipt or an invoice, return {"error": "not_a_receipt"}
- If the image is blurry or unreadable, return {"error": "image_not_clear"}
- Always return valid JSON, even on error`, now.UTC().Format(time.RFC3339))
}

func buildVoicePrompt(transcript string) string {
	return fmt.Sprintf(`You are an expert at extracting financial information.
Analyze this text and return ONLY a valid JSON object:
%q

Return:
{
  "amount": number (negative for an expense),
  "merchant": string (merchant name when mentioned),
  "category": string (food/transport/housing/health/entertainment/shopping/subscriptions/restaurant/travel/utilities/other),
  "description": string (short description),
  "confidence": number (0.0 to 1.0)
}

Examples:
- "I spent 25 euros at McDonald's" -> {"amount": -25, "merchant": "McDonald's", "category": "food", "description": "McDonald's meal", "confidence": 0.95}
- "Fuel 60 euros Total" -> {"amount": -60, "merchant": "Total", "category": "transport", "description": "Fuel", "confidence": 0.9}`, transcript)
}

const categorizeSystemPrompt = "You are a bank transaction categorization assistant. Respond only with JSON."

func buildCategorizePrompt(req domain.CategorizeRequest) string {
	var b strings.Builder
	b.WriteString("Analyze this bank transaction and categorize it.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	if req.MerchantName != "" {
		fmt.Fprintf(&b, "Merchant: %s\n", req.MerchantName)
	}
	if req.Amount != 0 {
		fmt.Fprintf(&b, "Amount: %.2f EUR\n", req.Amount)
	}
	b.WriteString(`
Respond ONLY with JSON in this format:
{
  "category": "food|transport|shopping|housing|subscriptions|health|entertainment|income|other",
  "subcategory": "specific subcategory",
  "confidence": 0.85,
  "keywords": ["word1", "word2"]
}

Possible categories:
- food: restaurant, fast_food, groceries, coffee, delivery
- transport: taxi, train, public, fuel, parking
- shopping: online, electronics, clothing, sports
- housing: rent, energy, insurance, maintenance
- subscriptions: streaming, music, telecom, gym
- health: pharmacy, medical, dental, vision
- entertainment: cinema, travel, events, games
- income: salary, freelance, refund, gift
- other: unknown, fees, transfer`)
	return b.String()
}

func buildCoachSystemPrompt(ctx domain.FinancialContext) string {
	topCats := make([]string, 0, len(ctx.TopCategories))
	for _, c := range ctx.TopCategories {
		topCats = append(topCats, fmt.Sprintf("%s: %.2f EUR (%.0f%%)", c.Category, c.Amount, c.Percentage))
	}
	subs := make([]string, 0, len(ctx.Subscriptions))
	for _, s := range ctx.Subscriptions {
		subs = append(subs, fmt.Sprintf("%s: %.2f EUR/%s", s.Name, s.Amount, s.BillingCycle))
	}
	goals := make([]string, 0, len(ctx.Goals))
	for _, g := range ctx.Goals {
		goals = append(goals, fmt.Sprintf("%s: %.0f/%.0f EUR (%.0f%%)", g.Name, g.CurrentAmount, g.TargetAmount, g.ProgressPercentage))
	}

	var vampireLine string
	if len(ctx.Vampires) > 0 {
		alerts := make([]string, 0, len(ctx.Vampires))
		for _, v := range ctx.Vampires {
			increase := 0.0
			if v.OldAmount > 0 {
				increase = (v.NewAmount - v.OldAmount) / v.OldAmount * 100
			}
			alerts = append(alerts, fmt.Sprintf("%s (+%.0f%%)", v.Name, increase))
		}
		vampireLine = "\n- Vampire alerts: " + strings.Join(alerts, ", ")
	}

	return fmt.Sprintf(`You are Aura, a warm, supportive and expert personal finance coach.
You are encouraging but direct, never condescending. Use emojis sparingly.

USER FINANCIAL CONTEXT:
- Current balance: %.2f EUR
- Monthly income: %.2f EUR
- Spent this month: %.2f EUR
- Top spending: %s
- Subscriptions: %s%s
- Goals: %s

You have access to this data. Answer in a personalized way.
When the user asks for specific figures, provide them from the context.
When an action is possible (create a goal, mark a subscription, show a chart),
include an action tag with structured JSON in your reply:
<action>{"type": "create_goal" | "mark_subscription" | "show_chart", "data": {...}}</action>

Be concise but useful. At most 3-4 sentences per reply.`,
		ctx.CurrentBalance,
		ctx.MonthlyIncome,
		ctx.MonthlyExpenses,
		orNone(strings.Join(topCats, ", ")),
		orNone(strings.Join(subs, ", ")),
		vampireLine,
		orNone(strings.Join(goals, ", ")),
	)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
