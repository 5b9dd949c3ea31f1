package handler

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mgiraudo/gastosbot/internal/ai"
	recurringrepo "github.com/mgiraudo/gastosbot/internal/recurring/repository"
)

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("💸 Gasto"),
			tgbotapi.NewKeyboardButton("💰 Ingreso"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📊 Resumen"),
			tgbotapi.NewKeyboardButton("💼 Presupuestos"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 Historial"),
			tgbotapi.NewKeyboardButton("🔁 Recurrentes"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📄 Reporte PDF"),
			tgbotapi.NewKeyboardButton("❓ Ayuda"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func expenseCategoriesKeyboard() tgbotapi.InlineKeyboardMarkup {
	return categoriesKeyboard(ai.ExpenseCategories, "cat_expense")
}

func categoriesKeyboard(categories []string, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, cat := range categories {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(capitalize(cat), prefix+":"+cat))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", "cancel"),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmTransactionKeyboard(txID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", fmt.Sprintf("confirm_tx:%d", txID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Eliminar", fmt.Sprintf("delete_tx:%d", txID)),
		),
	)
}

func frequencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Diaria", "freq:daily"),
			tgbotapi.NewInlineKeyboardButtonData("Semanal", "freq:weekly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Mensual", "freq:monthly"),
			tgbotapi.NewInlineKeyboardButtonData("Anual", "freq:yearly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", "cancel"),
		),
	)
}

func recurringListKeyboard(recs []*recurringrepo.Recurring) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, rec := range recs {
		label := rec.Description
		if r := []rune(label); len(r) > 20 {
			label = string(r[:20])
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🚫 Cancelar %s", label),
				fmt.Sprintf("deactivate_rec:%d", rec.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func statementImportKeyboard(count int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Importar todas (%d)", count), "pdf_import_all"),
			tgbotapi.NewInlineKeyboardButtonData("Cancelar", "pdf_cancel"),
		),
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
