package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (h *Handler) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		h.logger.Debug("failed to ack callback", zap.Error(err))
	}
	if query.Message == nil {
		return
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := query.Data

	switch {
	case data == "cancel":
		h.resetConv(chatID)
		h.editMessage(chatID, messageID, "❌ Operación cancelada.")

	case strings.HasPrefix(data, "cat_expense:"):
		h.handleCategoryChoice(chatID, messageID, strings.TrimPrefix(data, "cat_expense:"))

	case strings.HasPrefix(data, "freq:"):
		h.handleFrequencyChoice(ctx, query, strings.TrimPrefix(data, "freq:"))

	case strings.HasPrefix(data, "confirm_tx:"):
		h.clearMarkup(chatID, messageID)
		h.reply(chatID, "✅ Transacción confirmada y guardada.")

	case strings.HasPrefix(data, "delete_tx:"):
		h.handleDeleteTransaction(ctx, query, strings.TrimPrefix(data, "delete_tx:"))

	case strings.HasPrefix(data, "deactivate_rec:"):
		h.handleDeactivateRecurring(ctx, query, strings.TrimPrefix(data, "deactivate_rec:"))

	case data == "pdf_import_all":
		conv := h.conv(chatID)
		items := conv.pendingStatement
		conv.pendingStatement = nil
		if len(items) == 0 {
			h.editMessage(chatID, messageID, "No hay transacciones pendientes.")
			return
		}
		h.editMessage(chatID, messageID, h.importStatement(ctx, query.From, items))

	case data == "pdf_cancel":
		h.conv(chatID).pendingStatement = nil
		h.editMessage(chatID, messageID, "Importación cancelada.")
	}
}

// handleCategoryChoice serves both flows that pick an expense category from
// the inline keyboard.
func (h *Handler) handleCategoryChoice(chatID int64, messageID int, category string) {
	conv := h.conv(chatID)

	switch conv.step {
	case stepBudgetCategory:
		conv.budgetCategory = category
		conv.step = stepBudgetAmount
		month := time.Now().Format("2006-01")
		h.editMessage(chatID, messageID, fmt.Sprintf(
			"✅ Categoría: _%s_\n\n💰 ¿Cuál es el límite mensual para *%s*? Ingresá el monto:",
			capitalize(category), month))

	case stepRecurringCategory:
		conv.recCategory = category
		conv.step = stepRecurringFrequency
		h.editMessageWithMarkup(chatID, messageID, fmt.Sprintf(
			"✅ Categoría: _%s_\n\n⏰ ¿Con qué frecuencia se repite?",
			capitalize(category)), frequencyKeyboard())

	default:
		h.editMessage(chatID, messageID, "❌ Esa selección ya no está activa.")
	}
}

func (h *Handler) handleFrequencyChoice(ctx context.Context, query *tgbotapi.CallbackQuery, frequency string) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	conv := h.conv(chatID)

	if conv.step != stepRecurringFrequency {
		h.editMessage(chatID, messageID, "❌ Esa selección ya no está activa.")
		return
	}

	user, _, err := h.deps.Users.GetOrCreate(ctx, query.From.ID, fullName(query.From))
	if err != nil {
		h.resetConv(chatID)
		h.editMessage(chatID, messageID, "❌ No pude crear la recurrente. Intentá de nuevo.")
		return
	}

	rec, err := h.deps.Recurring.Add(ctx, user.ID, conv.recAmount, conv.recCategory, conv.recDescription, frequency, time.Now())
	if err != nil {
		h.logger.Error("failed to create recurring entry", zap.Error(err))
		h.resetConv(chatID)
		h.editMessage(chatID, messageID, "❌ No pude crear la recurrente. Intentá de nuevo.")
		return
	}

	label := frequencyLabels[frequency]
	if label == "" {
		label = frequency
	}
	h.resetConv(chatID)
	h.editMessage(chatID, messageID, fmt.Sprintf(
		"✅ *Recurrente creada*\n\n• Nombre: _%s_\n• Monto: `$%.2f`\n• Categoría: _%s_\n• Frecuencia: _%s_\n• Primera ejecución: `%s`",
		rec.Description, rec.Amount, capitalize(rec.Category), label,
		rec.NextDate.Format("2006-01-02")))
}

func (h *Handler) handleDeactivateRecurring(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	recID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.editMessage(chatID, messageID, "❌ No se pudo cancelar.")
		return
	}

	userID, err := h.deps.Users.ResolveID(ctx, query.From.ID)
	if err != nil {
		h.logger.Error("failed to resolve user", zap.Error(err))
		h.editMessage(chatID, messageID, "❌ No se pudo cancelar.")
		return
	}

	ok, err := h.deps.Recurring.Deactivate(ctx, recID, userID)
	if err != nil {
		h.logger.Error("failed to deactivate recurring entry", zap.Error(err))
		h.editMessage(chatID, messageID, "❌ No se pudo cancelar.")
		return
	}
	if ok {
		h.editMessage(chatID, messageID, "✅ Recurrente cancelada.")
	} else {
		h.editMessage(chatID, messageID, "❌ No se pudo cancelar.")
	}
}

func (h *Handler) handleDeleteTransaction(ctx context.Context, query *tgbotapi.CallbackQuery, rawID string) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	txID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.editMessage(chatID, messageID, "❌ No se encontró la transacción.")
		return
	}

	userID, err := h.deps.Users.ResolveID(ctx, query.From.ID)
	if err != nil {
		h.logger.Error("failed to resolve user", zap.Error(err))
		h.editMessage(chatID, messageID, "❌ No se encontró la transacción.")
		return
	}

	deleted, err := h.deps.Ledger.Delete(ctx, txID, userID)
	if err != nil {
		h.logger.Error("failed to delete transaction", zap.Error(err))
		h.editMessage(chatID, messageID, "❌ No se encontró la transacción.")
		return
	}
	if deleted {
		h.editMessage(chatID, messageID, "🗑️ Transacción eliminada.")
	} else {
		h.editMessage(chatID, messageID, "❌ No se encontró la transacción.")
	}
}

func (h *Handler) editMessage(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.Error("failed to edit message", zap.Error(err))
	}
}

func (h *Handler) editMessageWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.Error("failed to edit message", zap.Error(err))
	}
}

func (h *Handler) clearMarkup(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.Debug("failed to clear markup", zap.Error(err))
	}
}
