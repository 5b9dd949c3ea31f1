package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ExpenseCategories = []string{
	"alimentación",
	"transporte",
	"entretenimiento",
	"salud",
	"educación",
	"hogar",
	"ropa",
	"tecnología",
	"servicios",
	"otros",
}

var IncomeCategories = []string{
	"salario",
	"freelance",
	"inversiones",
	"ventas",
	"otros_ingresos",
}

// Intents the free-text router understands.
const (
	IntentAddExpense        = "add_expense"
	IntentAddIncome         = "add_income"
	IntentGetSummary        = "get_summary"
	IntentGetBudget         = "get_budget"
	IntentSetBudget         = "set_budget"
	IntentListTransactions  = "list_transactions"
	IntentDeleteTransaction = "delete_transaction"
	IntentAddRecurring      = "add_recurring"
	IntentListRecurring     = "list_recurring"
	IntentGetReport         = "get_report"
	IntentHelp              = "help"
	IntentUnknown           = "unknown"
)

var knownIntents = map[string]bool{
	IntentAddExpense:        true,
	IntentAddIncome:         true,
	IntentGetSummary:        true,
	IntentGetBudget:         true,
	IntentSetBudget:         true,
	IntentListTransactions:  true,
	IntentDeleteTransaction: true,
	IntentAddRecurring:      true,
	IntentListRecurring:     true,
	IntentGetReport:         true,
	IntentHelp:              true,
	IntentUnknown:           true,
}

// ParsedTransaction is what the model extracts from a free-text message.
type ParsedTransaction struct {
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// ParseTransaction extracts a transaction from a free-text message. It returns
// (nil, nil) when the message does not describe one.
func (c *Client) ParseTransaction(ctx context.Context, text string) (*ParsedTransaction, error) {
	today := time.Now().Format("2006-01-02")

	system := fmt.Sprintf(`Eres un asistente financiero. Extrae los datos de la transacción del mensaje del usuario.
Hoy es %s.

Responde ÚNICAMENTE con un JSON válido con esta estructura exacta:
{
  "amount": <número positivo>,
  "type": "income" | "expense",
  "category": "<categoría>",
  "description": "<descripción breve>",
  "date": "<YYYY-MM-DD>"
}

Categorías de gastos: %s
Categorías de ingresos: %s

Si el mensaje NO describe una transacción, responde exactamente: null
No incluyas explicaciones ni texto adicional.`,
		today,
		strings.Join(ExpenseCategories, ", "),
		strings.Join(IncomeCategories, ", "))

	raw, err := c.chat(ctx, c.model, system, text, 0, 200)
	if err != nil {
		return nil, err
	}

	return normalizeParsed(raw, today), nil
}

// normalizeParsed cleans a model answer into a usable transaction: fences
// stripped, "null" honored, amount forced positive, bad type coerced to
// expense, missing date set to today. Unparseable answers yield nil.
func normalizeParsed(raw, today string) *ParsedTransaction {
	raw = stripFences(raw)
	if strings.EqualFold(raw, "null") {
		return nil
	}

	var parsed ParsedTransaction
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	if parsed.Amount == 0 {
		return nil
	}

	parsed.Amount = math.Abs(parsed.Amount)
	if parsed.Type != "income" && parsed.Type != "expense" {
		parsed.Type = "expense"
	}
	if parsed.Date == "" {
		parsed.Date = today
	}
	return &parsed
}

// ClassifyIntent maps a free-text message onto the closed intent set. Anything
// outside it collapses to "unknown".
func (c *Client) ClassifyIntent(ctx context.Context, text string) (string, error) {
	intents := []string{
		IntentAddExpense, IntentAddIncome, IntentGetSummary, IntentGetBudget,
		IntentSetBudget, IntentListTransactions, IntentDeleteTransaction,
		IntentAddRecurring, IntentListRecurring, IntentGetReport,
		IntentHelp, IntentUnknown,
	}

	system := fmt.Sprintf(`Clasifica la intención del mensaje del usuario en una de estas categorías:
- %s

Responde ÚNICAMENTE con el nombre exacto de la intención (sin comillas ni explicación).`,
		strings.Join(intents, "\n- "))

	raw, err := c.chat(ctx, c.model, system, text, 0, 30)
	if err != nil {
		return IntentUnknown, err
	}

	intent := strings.ToLower(strings.TrimSpace(raw))
	if !knownIntents[intent] {
		c.logger.Debug("model answered outside the intent set", zap.String("answer", raw))
		return IntentUnknown, nil
	}
	return intent, nil
}

// Advice turns a month summary into a couple of short personalized tips.
func (c *Client) Advice(ctx context.Context, summary any) (string, error) {
	system := `Eres un asesor financiero personal amigable y conciso.
Analiza el resumen financiero del usuario y da 2-3 consejos prácticos y personalizados.
Usa emojis y formato Markdown compatible con Telegram.
Sé positivo pero honesto. Máximo 150 palabras.`

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	return c.chat(ctx, c.model, system, "Mi resumen financiero del mes:\n"+string(payload), 0.7, 300)
}
