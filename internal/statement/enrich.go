package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxTextChars = 12000

var reFence = regexp.MustCompile("(?m)^```(?:json)?\\s*|\\s*```$")

func stripFences(raw string) string {
	return strings.TrimSpace(reFence.ReplaceAllString(raw, ""))
}

// Chat is the completion surface the enricher needs from the AI client.
type Chat interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Parser runs the structured pass over a statement and fills in what only a
// model can: categories, income/expense direction, and whole documents from
// banks the line parser does not know.
type Parser struct {
	chat   Chat
	logger *zap.Logger
}

func NewParser(chat Chat, logger *zap.Logger) *Parser {
	return &Parser{chat: chat, logger: logger}
}

// Parse extracts every transaction from a statement's text. The structured
// pass runs first; its items only need categorization. When it finds nothing
// the whole document goes to the model.
func (p *Parser) Parse(ctx context.Context, text string) ([]Item, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	items := ParseStructured(text)
	upcoming := UpcomingInstallments(text)
	p.logger.Info("statement pre-processed",
		zap.Int("transactions", len(items)),
		zap.Int("upcoming_months", len(upcoming)))

	if len(items) == 0 {
		return p.parseWithModel(ctx, text)
	}
	return p.enrich(ctx, items)
}

type enrichRequest struct {
	Idx         int     `json:"idx"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type enrichAnswer struct {
	Idx      int    `json:"idx"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

// enrich asks the model for category and direction per item, keeping the
// structurally-parsed amounts, dates and installments untouched. A failed or
// garbled answer degrades to expense/otros instead of dropping items.
func (p *Parser) enrich(ctx context.Context, items []Item) ([]Item, error) {
	reqs := make([]enrichRequest, len(items))
	for i, item := range items {
		reqs[i] = enrichRequest{Idx: i, Description: item.Description, Amount: item.Amount}
	}
	payload, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	system := fmt.Sprintf(`Eres un categorizador financiero experto en gastos argentinos. Hoy es %s.

Asigna categoria y tipo a cada transaccion.

Categorias gastos: alimentacion, transporte, entretenimiento, salud, educacion, hogar, ropa, tecnologia, servicios, otros
Categorias ingresos: salario, freelance, inversiones, ventas, otros_ingresos

Reglas:
- Comercios/consumos -> "expense"
- "SU PAGO", "TRANSFERENCIA", pagos -> "income"
- Impuestos, intereses, comisiones -> "expense" + "servicios"
- Supermercados, restaurantes, bares -> "alimentacion"
- Nafta, combustible, SHELL -> "transporte"
- Disney Plus, Netflix, Spotify -> "entretenimiento"
- Lacoste, Grimoldi, Zara, Adidas -> "ropa"
- Electronica, instrumentos musicales -> "tecnologia"
- MercadoPago sin contexto -> "otros"

Responde UNICAMENTE con JSON array:
[{"idx": <numero>, "category": "<categoria>", "type": "income"|"expense"}]`,
		time.Now().Format("2006-01-02"))

	answers := make(map[int]enrichAnswer)
	raw, err := p.chat.Complete(ctx, system, string(payload), 0, 1500)
	if err != nil {
		p.logger.Warn("statement enrichment failed, defaulting categories", zap.Error(err))
	} else {
		var parsed []enrichAnswer
		if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
			p.logger.Warn("unparseable enrichment answer", zap.Error(err))
		}
		for _, a := range parsed {
			answers[a.Idx] = a
		}
	}

	out := make([]Item, len(items))
	for i, item := range items {
		item.Type = "expense"
		item.Category = "otros"
		if a, ok := answers[i]; ok {
			if a.Type == "income" || a.Type == "expense" {
				item.Type = a.Type
			}
			if a.Category != "" {
				item.Category = a.Category
			}
		}
		out[i] = item
	}
	return out, nil
}

type modelItem struct {
	Amount                float64 `json:"amount"`
	Type                  string  `json:"type"`
	Category              string  `json:"category"`
	Description           string  `json:"description"`
	Date                  string  `json:"date"`
	InstallmentCurrent    *int    `json:"installment_current"`
	InstallmentTotal      *int    `json:"installment_total"`
	InstallmentsRemaining *int    `json:"installments_remaining"`
}

// parseWithModel is the full fallback for unrecognized bank layouts.
func (p *Parser) parseWithModel(ctx context.Context, text string) ([]Item, error) {
	if len(text) > maxTextChars {
		text = text[:maxTextChars] + "\n[... truncado ...]"
	}
	today := time.Now().Format("2006-01-02")

	system := fmt.Sprintf(`Eres un experto en documentos bancarios argentinos. Hoy es %s.

Extrae TODAS las transacciones. Atencion especial a:
- Columna CUOTA: "03/06" = cuota 3 de 6 -> installments_remaining = 3
- Fechas, comercios, pagos del titular

Responde UNICAMENTE con JSON array:
[{"amount":<pos>,"type":"income"|"expense","category":"<cat>","description":"<desc>",
"date":"<YYYY-MM-DD>","installment_current":<n|null>,"installment_total":<n|null>,"installments_remaining":<n|null>}]

Categorias: alimentacion, transporte, entretenimiento, salud, educacion, hogar, ropa, tecnologia, servicios, otros, salario, freelance, inversiones, ventas, otros_ingresos
Si no hay transacciones: []`, today)

	raw, err := p.chat.Complete(ctx, system, "Documento:\n\n"+text, 0, 2500)
	if err != nil {
		return nil, fmt.Errorf("statement model parse failed: %w", err)
	}

	var parsed []modelItem
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		p.logger.Warn("unparseable statement answer", zap.Error(err))
		return nil, nil
	}

	var items []Item
	for _, m := range parsed {
		if m.Amount == 0 {
			continue
		}
		item := Item{
			Amount:      math.Abs(m.Amount),
			Type:        m.Type,
			Category:    m.Category,
			Description: m.Description,
		}
		if item.Type == "" {
			item.Type = "expense"
		}
		if item.Category == "" {
			item.Category = "otros"
		}
		if runes := []rune(item.Description); len(runes) > 100 {
			item.Description = string(runes[:100])
		}
		item.Date, _ = time.Parse("2006-01-02", m.Date)
		if item.Date.IsZero() {
			item.Date = time.Now().UTC().Truncate(24 * time.Hour)
		}
		if m.InstallmentCurrent != nil {
			item.InstallmentCurrent = *m.InstallmentCurrent
		}
		if m.InstallmentTotal != nil {
			item.InstallmentTotal = *m.InstallmentTotal
		}
		if m.InstallmentsRemaining != nil {
			item.InstallmentsRemaining = *m.InstallmentsRemaining
		}
		items = append(items, item)
	}
	return items, nil
}

// Summarize writes a short plain-text recap of a statement for the user,
// the detected upcoming installments appended to the model's input.
func (p *Parser) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "No se pudo extraer texto del PDF.", nil
	}

	upcoming := UpcomingInstallments(text)
	var extra string
	if len(upcoming) > 0 {
		keys := make([]string, 0, len(upcoming))
		for k := range upcoming {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: $%.0f", k, upcoming[k])
		}
		extra = "\n\nCuotas a vencer detectadas: " + strings.Join(parts, ", ")
	}

	if len(text) > maxTextChars {
		text = text[:maxTextChars]
	}

	system := `Eres un asesor financiero personal. Analizas resumenes bancarios argentinos.
Resume el documento incluyendo:
- Banco y tipo de documento
- Total a pagar
- Principales consumos
- Compras en cuotas: descripcion, cuota actual/total, cuantas quedan
- Cuotas a vencer por mes y sus montos
- Pagos realizados en el periodo
Texto plano, sin Markdown especial, con emojis. Maximo 300 palabras.`

	return p.chat.Complete(ctx, system, text+extra, 0.2, 600)
}
