// Package report renders the monthly PDF the bot sends on /reporte.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	budget "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	ledger "github.com/mgiraudo/gastosbot/internal/ledger/service"
	chart "github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"
)

type Ledger interface {
	MonthlySummary(ctx context.Context, userID int64, month string) (*ledger.Summary, error)
	ListByMonth(ctx context.Context, userID int64, month string) ([]*ledgerrepo.Transaction, error)
}

type Budgets interface {
	MonthStatus(ctx context.Context, userID int64, month string) ([]budget.Status, error)
}

type Generator struct {
	ledger  Ledger
	budgets Budgets
	logger  *zap.Logger
}

func NewGenerator(ledger Ledger, budgets Budgets, logger *zap.Logger) *Generator {
	return &Generator{ledger: ledger, budgets: budgets, logger: logger}
}

// Monthly writes the report to a temp file and returns its path. The caller
// owns the file and removes it after sending.
func (g *Generator) Monthly(ctx context.Context, userID int64, userName, month string) (string, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if userName == "" {
		userName = "Usuario"
	}

	summary, err := g.ledger.MonthlySummary(ctx, userID, month)
	if err != nil {
		return "", fmt.Errorf("failed to load summary: %w", err)
	}
	txs, err := g.ledger.ListByMonth(ctx, userID, month)
	if err != nil {
		return "", fmt.Errorf("failed to load transactions: %w", err)
	}
	budgets, err := g.budgets.MonthStatus(ctx, userID, month)
	if err != nil {
		return "", fmt.Errorf("failed to load budgets: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	g.header(pdf, tr, userName, month)
	g.kpiRow(pdf, tr, summary)

	if len(summary.Breakdown) > 0 {
		if err := g.pieChart(pdf, summary.Breakdown); err != nil {
			g.logger.Warn("failed to render category chart", zap.Error(err))
		}
	}
	if len(budgets) > 0 {
		g.budgetTable(pdf, tr, budgets)
	}
	g.transactionsTable(pdf, tr, txs)
	g.footer(pdf, tr)

	path := filepath.Join(os.TempDir(), fmt.Sprintf("reporte_%s_%d.pdf", month, userID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}

	g.logger.Info("monthly report generated",
		zap.Int64("user_id", userID),
		zap.String("month", month),
		zap.String("path", path))
	return path, nil
}

func (g *Generator) header(pdf *gofpdf.Fpdf, tr func(string) string, userName, month string) {
	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(26, 86, 219)
	pdf.CellFormat(0, 10, tr("Reporte financiero mensual"), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s · %s", userName, month)), "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func (g *Generator) kpiRow(pdf *gofpdf.Fpdf, tr func(string) string, s *ledger.Summary) {
	type kpi struct {
		label    string
		value    float64
		r, gc, b int
	}
	kpis := []kpi{
		{"Ingresos", s.Income, 5, 122, 85},
		{"Gastos", s.Expense, 224, 36, 36},
		{"Balance", s.Balance, 26, 86, 219},
	}

	w := 190.0 / 3
	for _, k := range kpis {
		x, y := pdf.GetXY()
		pdf.SetFillColor(249, 250, 251)
		pdf.SetDrawColor(229, 231, 235)
		pdf.Rect(x, y, w-2, 18, "FD")

		pdf.SetXY(x, y+3)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(w-2, 5, tr(k.label), "", 0, "C", false, 0, "")

		pdf.SetXY(x, y+9)
		pdf.SetFont("Arial", "B", 13)
		pdf.SetTextColor(k.r, k.gc, k.b)
		pdf.CellFormat(w-2, 6, formatAmount(k.value), "", 0, "C", false, 0, "")

		pdf.SetXY(x+w, y)
	}
	pdf.Ln(24)
}

func (g *Generator) pieChart(pdf *gofpdf.Fpdf, breakdown []ledger.CategoryAmount) error {
	values := make([]chart.Value, len(breakdown))
	for i, c := range breakdown {
		values[i] = chart.Value{Value: c.Amount, Label: c.Category}
	}

	pie := chart.PieChart{Width: 600, Height: 400, Values: values}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("failed to render pie chart: %w", err)
	}

	name := "category-pie"
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	x := (210.0 - 120.0) / 2
	pdf.ImageOptions(name, x, pdf.GetY(), 120, 80, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(84)
	return nil
}

func (g *Generator) budgetTable(pdf *gofpdf.Fpdf, tr func(string) string, budgets []budget.Status) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, tr("Presupuestos"), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(249, 250, 251)
	widths := []float64{55, 35, 35, 35, 30}
	headers := []string{"Categoría", "Límite", "Gastado", "Restante", "%"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, b := range budgets {
		if b.Percentage >= 100 {
			pdf.SetTextColor(224, 36, 36)
		} else if b.Percentage >= 80 {
			pdf.SetTextColor(194, 120, 3)
		} else {
			pdf.SetTextColor(17, 24, 39)
		}
		pdf.CellFormat(widths[0], 7, tr(b.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, formatAmount(b.Limit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, formatAmount(b.Spent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, formatAmount(b.Remaining), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, fmt.Sprintf("%.1f%%", b.Percentage), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetTextColor(17, 24, 39)
	pdf.Ln(4)
}

func (g *Generator) transactionsTable(pdf *gofpdf.Fpdf, tr func(string) string, txs []*ledgerrepo.Transaction) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(17, 24, 39)
	pdf.CellFormat(0, 8, tr("Movimientos del mes"), "", 1, "L", false, 0, "")

	if len(txs) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 7, tr("Sin movimientos registrados."), "", 1, "L", false, 0, "")
		return
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(249, 250, 251)
	widths := []float64{25, 75, 45, 45}
	headers := []string{"Fecha", "Descripción", "Categoría", "Monto"}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, tx := range txs {
		desc := tx.Description
		if runes := []rune(desc); len(runes) > 45 {
			desc = string(runes[:45]) + "..."
		}
		amount := formatAmount(tx.Amount)
		if tx.Type == "expense" {
			amount = "-" + amount
		} else {
			amount = "+" + amount
		}

		pdf.SetTextColor(17, 24, 39)
		pdf.CellFormat(widths[0], 7, tx.Date.Format("02/01"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(desc), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, tr(tx.Category), "1", 0, "L", false, 0, "")
		if tx.Type == "expense" {
			pdf.SetTextColor(224, 36, 36)
		} else {
			pdf.SetTextColor(5, 122, 85)
		}
		pdf.CellFormat(widths[3], 7, amount, "1", 0, "R", false, 0, "")
		pdf.SetTextColor(17, 24, 39)
		pdf.Ln(-1)
	}
}

func (g *Generator) footer(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generado el %s", time.Now().Format("02/01/2006"))), "", 1, "C", false, 0, "")
}

func formatAmount(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
