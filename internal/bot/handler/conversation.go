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

// continueConversation advances the step-by-step flows (/presupuesto_nuevo,
// /recurrente_nuevo, /analizar) that collect one field per message.
func (h *Handler) continueConversation(ctx context.Context, msg *tgbotapi.Message, conv *conversation, text string) {
	chatID := msg.Chat.ID

	switch conv.step {
	case stepAnalystQuestion:
		h.resetConv(chatID)
		h.answerWithAnalyst(ctx, msg, text)

	case stepBudgetAmount:
		amount, ok := parseUserAmount(text)
		if !ok {
			h.reply(chatID, "❌ Monto inválido. Ingresá un número positivo:")
			return
		}

		user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
		if err != nil {
			h.resetConv(chatID)
			h.replyWithMenu(chatID, "❌ No pude guardar el presupuesto. Intentá de nuevo.")
			return
		}

		month := time.Now().Format("2006-01")
		b, err := h.deps.Budgets.Set(ctx, user.ID, conv.budgetCategory, amount, month)
		if err != nil {
			h.logger.Error("failed to set budget", zap.Error(err))
			h.resetConv(chatID)
			h.replyWithMenu(chatID, "❌ No pude guardar el presupuesto. Intentá de nuevo.")
			return
		}

		h.resetConv(chatID)
		h.replyWithMenu(chatID, fmt.Sprintf(
			"✅ *Presupuesto definido*\n\n• Categoría: _%s_\n• Límite: `$%.2f`\n• Mes: `%s`",
			capitalize(b.Category), b.LimitAmount, b.Month))

	case stepRecurringDescription:
		conv.recDescription = text
		conv.step = stepRecurringAmount
		h.reply(chatID, "💰 ¿Cuál es el monto?")

	case stepRecurringAmount:
		amount, ok := parseUserAmount(text)
		if !ok {
			h.reply(chatID, "❌ Monto inválido. Ingresá un número positivo:")
			return
		}
		conv.recAmount = amount
		conv.step = stepRecurringCategory
		h.replyWithMarkup(chatID, "📂 ¿En qué categoría entra?", expenseCategoriesKeyboard())

	default:
		// A selection step is waiting on an inline button, not text.
		h.reply(chatID, "👆 Elegí una opción del teclado o mandá /cancelar.")
	}
}

// parseUserAmount accepts "1200", "1.200,50", "$ 1200.50" and the like.
func parseUserAmount(text string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(text, "$", ""))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}
