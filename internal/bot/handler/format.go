package handler

import (
	"fmt"
	"strings"

	budget "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledger "github.com/mgiraudo/gastosbot/internal/ledger/service"
	recurringrepo "github.com/mgiraudo/gastosbot/internal/recurring/repository"
	"github.com/mgiraudo/gastosbot/internal/statement"
)

func formatSummary(s *ledger.Summary) string {
	emoji, sign := "📈", "+"
	if s.Balance < 0 {
		emoji, sign = "📉", "-"
	}
	abs := s.Balance
	if abs < 0 {
		abs = -abs
	}

	lines := []string{
		fmt.Sprintf("📊 *Resumen de %s*\n", s.Month),
		fmt.Sprintf("💰 Ingresos:  `$%.2f`", s.Income),
		fmt.Sprintf("💸 Gastos:    `$%.2f`", s.Expense),
		fmt.Sprintf("%s Balance:   `%s$%.2f`", emoji, sign, abs),
	}

	if len(s.Breakdown) > 0 {
		lines = append(lines, "\n📂 *Gastos por categoría:*")
		for _, c := range s.Breakdown {
			lines = append(lines, fmt.Sprintf("  • %s: `$%.2f`", capitalize(c.Category), c.Amount))
		}
	}
	return strings.Join(lines, "\n")
}

func formatTransactionList(txs []*ledgerrepo.Transaction) string {
	if len(txs) == 0 {
		return "📭 No hay transacciones registradas."
	}

	lines := []string{"📋 *Últimas transacciones:*\n"}
	for _, tx := range txs {
		emoji, sign := "💸", "-"
		if tx.Type == "income" {
			emoji, sign = "💰", "+"
		}
		lines = append(lines, fmt.Sprintf(
			"%s `%s` — %s\n   %s$%.2f · %s\n   `ID: %d`",
			emoji, tx.Date.Format("2006-01-02"), tx.Category,
			sign, tx.Amount, tx.Description, tx.ID))
	}
	return strings.Join(lines, "\n")
}

func formatBudgetStatus(statuses []budget.Status, month string) string {
	if len(statuses) == 0 {
		return fmt.Sprintf(
			"📭 No tenés presupuestos definidos para *%s*.\nUsá /presupuesto_nuevo para crear uno.",
			month)
	}

	lines := []string{fmt.Sprintf("💼 *Presupuestos — %s*\n", month)}
	for _, s := range statuses {
		emoji := "✅"
		if s.Percentage >= 100 {
			emoji = "🚨"
		} else if s.Percentage >= 80 {
			emoji = "⚠️"
		}
		lines = append(lines, fmt.Sprintf(
			"%s *%s*\n   %s %.0f%%\n   Gastado: `$%.2f` / `$%.2f`",
			emoji, capitalize(s.Category), progressBar(s.Percentage, 10),
			s.Percentage, s.Spent, s.Limit))
	}
	return strings.Join(lines, "\n\n")
}

// progressBar renders ten-segment bars like █████████░.
func progressBar(percentage float64, length int) string {
	filled := int(percentage / 100 * float64(length))
	if filled > length {
		filled = length
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

var frequencyLabels = map[string]string{
	"daily":   "Diaria",
	"weekly":  "Semanal",
	"monthly": "Mensual",
	"yearly":  "Anual",
}

func formatRecurringList(recs []*recurringrepo.Recurring) string {
	if len(recs) == 0 {
		return "📭 No tenés transacciones recurrentes activas."
	}

	lines := []string{"🔁 *Transacciones recurrentes:*\n"}
	for _, rec := range recs {
		label := frequencyLabels[rec.Frequency]
		if label == "" {
			label = rec.Frequency
		}
		lines = append(lines, fmt.Sprintf(
			"• *%s*\n  💰 `$%.2f` · %s\n  📅 Próxima: `%s`\n  `ID: %d`",
			rec.Description, rec.Amount, label,
			rec.NextDate.Format("2006-01-02"), rec.ID))
	}
	return strings.Join(lines, "\n\n")
}

func formatSavedTransaction(tx *ledgerrepo.Transaction, source, alert string) string {
	tipo, emoji, sign := "Gasto", "💸", "-"
	if tx.Type == "income" {
		tipo, emoji, sign = "Ingreso", "💰", "+"
	}

	title := fmt.Sprintf("%s *%s registrado*", emoji, tipo)
	if source != "" {
		title = fmt.Sprintf("%s *%s registrado %s*", emoji, tipo, source)
	}

	return fmt.Sprintf(
		"%s\n\n• Monto: `%s$%.2f`\n• Categoría: _%s_\n• Descripción: _%s_\n• Fecha: `%s`%s",
		title, sign, tx.Amount, capitalize(tx.Category), tx.Description,
		tx.Date.Format("2006-01-02"), alert)
}

func formatBudgetAlerts(alerts []budget.Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range alerts {
		if a.Threshold >= 100 {
			b.WriteString(fmt.Sprintf(
				"\n\n🚨 *Presupuesto superado:* llevás `$%.2f` de `$%.2f` en _%s_ (%.0f%%).",
				a.Status.Spent, a.Status.Limit, a.Status.Category, a.Status.Percentage))
		} else {
			b.WriteString(fmt.Sprintf(
				"\n\n⚠️ *Alerta de presupuesto:* estás al *%.0f%%* en _%s_ este mes.",
				a.Status.Percentage, a.Status.Category))
		}
	}
	return b.String()
}

func formatStatementPreview(items []statement.Item) string {
	count := len(items)
	lines := []string{fmt.Sprintf("Encontré %d transacciones:\n", count)}

	shown := items
	if count > 5 {
		shown = items[:5]
	}
	for _, item := range shown {
		sign := "-"
		if item.Type == "income" {
			sign = "+"
		}
		desc := item.Description
		if runes := []rune(desc); len(runes) > 30 {
			desc = string(runes[:30])
		}
		cuota := ""
		if item.InstallmentTotal > 0 {
			cuota = fmt.Sprintf(" [cuota %d/%d, restan %d]",
				item.InstallmentCurrent, item.InstallmentTotal, item.InstallmentsRemaining)
		}
		lines = append(lines, fmt.Sprintf("%s  %s%s  %s$%.2f",
			item.Date.Format("2006-01-02"), desc, cuota, sign, item.Amount))
	}
	if count > 5 {
		lines = append(lines, fmt.Sprintf("...y %d más", count-5))
	}

	var expense, income float64
	for _, item := range items {
		if item.Type == "income" {
			income += item.Amount
		} else {
			expense += item.Amount
		}
	}
	lines = append(lines, fmt.Sprintf("\nTotal gastos: $%.2f", expense))
	if income > 0 {
		lines = append(lines, fmt.Sprintf("Total ingresos: $%.2f", income))
	}
	return strings.Join(lines, "\n")
}
