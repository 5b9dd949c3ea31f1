package handler

import (
	"testing"
	"time"

	budget "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledger "github.com/mgiraudo/gastosbot/internal/ledger/service"
	recurringrepo "github.com/mgiraudo/gastosbot/internal/recurring/repository"
	"github.com/mgiraudo/gastosbot/internal/statement"
	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", progressBar(0, 10))
	assert.Equal(t, "█████░░░░░", progressBar(50, 10))
	assert.Equal(t, "████████░░", progressBar(80, 10))
	assert.Equal(t, "██████████", progressBar(100, 10))
	assert.Equal(t, "██████████", progressBar(150, 10))
	assert.Equal(t, "░░░░░░░░░░", progressBar(-5, 10))
}

func TestParseUserAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1200", 1200, true},
		{"1.200,50", 1200.50, true},
		{"$ 1200.50", 1200.50, true},
		{"1200,50", 1200.50, true},
		{"0", 0, false},
		{"-300", 0, false},
		{"mil pesos", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseUserAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	s := &ledger.Summary{
		Month:   "2026-02",
		Income:  500000,
		Expense: 330000,
		Balance: 170000,
		Breakdown: []ledger.CategoryAmount{
			{Category: "alimentación", Amount: 300000},
			{Category: "transporte", Amount: 30000},
		},
	}

	out := formatSummary(s)
	assert.Contains(t, out, "Resumen de 2026-02")
	assert.Contains(t, out, "📈")
	assert.Contains(t, out, "Alimentación")
	assert.Contains(t, out, "$300000.00")
}

func TestFormatSummaryNegativeBalance(t *testing.T) {
	s := &ledger.Summary{Month: "2026-02", Income: 100, Expense: 400, Balance: -300}
	out := formatSummary(s)
	assert.Contains(t, out, "📉")
	assert.Contains(t, out, "-$300.00")
}

func TestFormatBudgetStatus(t *testing.T) {
	statuses := []budget.Status{
		{Category: "alimentación", Limit: 1000, Spent: 500, Remaining: 500, Percentage: 50},
		{Category: "transporte", Limit: 1000, Spent: 850, Remaining: 150, Percentage: 85},
		{Category: "hogar", Limit: 1000, Spent: 1200, Remaining: -200, Percentage: 120},
	}

	out := formatBudgetStatus(statuses, "2026-02")
	assert.Contains(t, out, "✅")
	assert.Contains(t, out, "⚠️")
	assert.Contains(t, out, "🚨")
	assert.Contains(t, out, "█████░░░░░ 50%")
}

func TestFormatBudgetStatusEmpty(t *testing.T) {
	out := formatBudgetStatus(nil, "2026-02")
	assert.Contains(t, out, "No tenés presupuestos definidos")
}

func TestFormatTransactionListEmpty(t *testing.T) {
	assert.Contains(t, formatTransactionList(nil), "No hay transacciones")
}

func TestFormatSavedTransaction(t *testing.T) {
	tx := &ledgerrepo.Transaction{
		ID:          7,
		Amount:      1500,
		Category:    "transporte",
		Description: "taxi",
		Type:        "expense",
		Date:        time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC),
	}

	out := formatSavedTransaction(tx, "", "")
	assert.Contains(t, out, "Gasto registrado")
	assert.Contains(t, out, "-$1500.00")
	assert.Contains(t, out, "Transporte")

	tx.Type = "income"
	out = formatSavedTransaction(tx, "por voz", "")
	assert.Contains(t, out, "Ingreso registrado por voz")
	assert.Contains(t, out, "+$1500.00")
}

func TestRecurringListKeyboard(t *testing.T) {
	recs := []*recurringrepo.Recurring{
		{ID: 3, Description: "Netflix"},
		{ID: 8, Description: "una descripción larguísima que no entra"},
	}

	kb := recurringListKeyboard(recs)
	assert.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "🚫 Cancelar Netflix", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "deactivate_rec:3", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "🚫 Cancelar una descripción larg", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "deactivate_rec:8", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestFormatStatementPreviewTruncates(t *testing.T) {
	var items []statement.Item
	for i := 0; i < 8; i++ {
		items = append(items, statement.Item{
			Date:        time.Date(2026, time.January, i+1, 0, 0, 0, 0, time.UTC),
			Description: "COMERCIO",
			Amount:      100,
			Type:        "expense",
		})
	}
	items[0].InstallmentCurrent = 3
	items[0].InstallmentTotal = 6
	items[0].InstallmentsRemaining = 3

	out := formatStatementPreview(items)
	assert.Contains(t, out, "Encontré 8 transacciones")
	assert.Contains(t, out, "...y 3 más")
	assert.Contains(t, out, "[cuota 3/6, restan 3]")
	assert.Contains(t, out, "Total gastos: $800.00")
	assert.NotContains(t, out, "Total ingresos")
}
