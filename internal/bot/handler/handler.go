// Package handler drives the Telegram conversation: commands, free text,
// voice notes, ticket photos and statement PDFs.
package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mgiraudo/gastosbot/internal/ai"
	analystsvc "github.com/mgiraudo/gastosbot/internal/analyst/service"
	budgetsvc "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgersvc "github.com/mgiraudo/gastosbot/internal/ledger/service"
	recurringsvc "github.com/mgiraudo/gastosbot/internal/recurring/service"
	"github.com/mgiraudo/gastosbot/internal/report"
	"github.com/mgiraudo/gastosbot/internal/statement"
	usersvc "github.com/mgiraudo/gastosbot/internal/user/service"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const welcomeText = `👋 ¡Hola, *%s*! Soy tu asistente de finanzas personales.

Te ayudo a registrar y analizar tus finanzas de forma sencilla.

*¿Qué puedo hacer por vos?*
💸 Registrar gastos e ingresos (texto, voz o foto de ticket)
📊 Ver tu resumen mensual
💼 Gestionar presupuestos por categoría
🔁 Configurar gastos recurrentes
📄 Generar reportes PDF

*¿Cómo empezar?*
Solo escribime naturalmente, por ejemplo:
• _"Gasté $500 en el supermercado"_
• _"Cobré el sueldo, $150.000"_
• O usá los botones del menú 👇`

const helpText = `🆘 *Comandos disponibles:*

/start — Menú principal
/resumen — Resumen del mes actual
/reporte — Generar PDF mensual
/analizar — Preguntale al analista
/gasto — Registrar un gasto
/ingreso — Registrar un ingreso
/presupuesto — Ver presupuestos
/presupuesto_nuevo — Definir presupuesto
/recurrentes — Gestionar recurrentes
/recurrente_nuevo — Nueva recurrente
/dashboard — Link al panel web
/ayuda — Este mensaje

*También podés:*
🎤 Enviar un mensaje de voz
📷 Fotografiar un ticket o recibo
📄 Mandar el PDF del resumen de tu tarjeta
✍️ Escribir en lenguaje natural`

// Conversation steps for the multi-message flows.
const (
	stepNone = iota
	stepBudgetCategory
	stepBudgetAmount
	stepRecurringDescription
	stepRecurringAmount
	stepRecurringCategory
	stepRecurringFrequency
	stepAnalystQuestion
)

type conversation struct {
	step             int
	budgetCategory   string
	recDescription   string
	recAmount        float64
	recCategory      string
	pendingStatement []statement.Item
}

type Deps struct {
	Users      *usersvc.Service
	Ledger     *ledgersvc.Service
	Budgets    *budgetsvc.Service
	Recurring  *recurringsvc.Service
	Analyst    *analystsvc.Service
	AI         *ai.Client
	Statements *statement.Parser
	Reports    *report.Generator

	DashboardURL string
	JWTSecret    string
}

type Handler struct {
	bot    *tgbotapi.BotAPI
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	convs    map[int64]*conversation
	limiters map[int64]*rate.Limiter
}

func NewHandler(bot *tgbotapi.BotAPI, deps Deps, logger *zap.Logger) *Handler {
	return &Handler{
		bot:      bot,
		deps:     deps,
		logger:   logger,
		convs:    make(map[int64]*conversation),
		limiters: make(map[int64]*rate.Limiter),
	}
}

// HandleUpdate is the entry point for every long-poll update. It never
// panics the loop: failures turn into a conversational reply.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling update", zap.Any("panic", r))
		}
	}()

	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	msg := update.Message
	switch {
	case msg.IsCommand():
		h.handleCommand(ctx, msg)
	case msg.Voice != nil || msg.Audio != nil:
		h.handleVoice(ctx, msg)
	case len(msg.Photo) > 0:
		h.handlePhoto(ctx, msg)
	case msg.Document != nil:
		h.handleDocument(ctx, msg)
	case msg.Text != "":
		h.handleText(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "ayuda", "help":
		h.replyWithMenu(chatID, helpText)
	case "resumen":
		h.showSummary(ctx, msg, true)
	case "reporte":
		h.sendReport(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
	case "analizar":
		question := strings.TrimSpace(msg.CommandArguments())
		if question == "" {
			h.conv(chatID).step = stepAnalystQuestion
			h.reply(chatID, "🧠 ¿Qué querés saber sobre tus finanzas?")
			return
		}
		h.answerWithAnalyst(ctx, msg, question)
	case "gasto":
		h.reply(chatID, "💸 *Registrar gasto*\n\nEscribime el monto o describí el gasto, por ejemplo:\n_\"Gasté $1.200 en el supermercado\"_")
	case "ingreso":
		h.reply(chatID, "💰 *Registrar ingreso*\n\nEscribime el monto o describí el ingreso, por ejemplo:\n_\"Cobré $80.000 de sueldo\"_")
	case "presupuesto":
		h.showBudgets(ctx, msg)
	case "presupuesto_nuevo":
		h.conv(chatID).step = stepBudgetCategory
		h.replyWithMarkup(chatID, "💼 *Definir presupuesto*\n\n¿Para qué categoría querés fijar un límite?", expenseCategoriesKeyboard())
	case "recurrentes":
		h.showRecurring(ctx, msg)
	case "recurrente_nuevo":
		h.conv(chatID).step = stepRecurringDescription
		h.reply(chatID, "🔁 *Nueva transacción recurrente*\n\n¿Cómo se llama? (ej: Netflix, Alquiler):")
	case "dashboard":
		h.sendDashboardLink(ctx, msg)
	case "cancelar":
		h.resetConv(chatID)
		h.replyWithMenu(chatID, "❌ Operación cancelada.")
	default:
		h.replyWithMenu(chatID, "🤔 No conozco ese comando. Probá /ayuda.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user, created, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		h.reply(msg.Chat.ID, "❌ Error al registrarte. Intentá de nuevo en un rato.")
		return
	}

	text := fmt.Sprintf(welcomeText, msg.From.FirstName)
	if !created {
		text = fmt.Sprintf("👋 ¡Bienvenido de vuelta, *%s*!\n\nUsá el menú para gestionar tus finanzas 👇", msg.From.FirstName)
	}
	h.replyWithMenu(msg.Chat.ID, text)
	h.logger.Info("user started bot",
		zap.Int64("telegram_id", msg.From.ID),
		zap.Int64("user_id", user.ID),
		zap.Bool("created", created))
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if conv := h.conv(chatID); conv.step != stepNone {
		h.continueConversation(ctx, msg, conv, text)
		return
	}

	switch text {
	case "💸 Gasto":
		h.reply(chatID, "💸 *Registrar gasto*\n\nEscribime el monto o describí el gasto, por ejemplo:\n_\"Gasté $1.200 en el supermercado\"_")
		return
	case "💰 Ingreso":
		h.reply(chatID, "💰 *Registrar ingreso*\n\nEscribime el monto o describí el ingreso, por ejemplo:\n_\"Cobré $80.000 de sueldo\"_")
		return
	case "📊 Resumen":
		h.showSummary(ctx, msg, true)
		return
	case "💼 Presupuestos":
		h.showBudgets(ctx, msg)
		return
	case "📋 Historial":
		h.showHistory(ctx, msg)
		return
	case "🔁 Recurrentes":
		h.showRecurring(ctx, msg)
		return
	case "📄 Reporte PDF":
		h.sendReport(ctx, msg, "")
		return
	case "❓ Ayuda":
		h.replyWithMenu(chatID, helpText)
		return
	}

	if !h.allowLLM(msg.From.ID) {
		h.reply(chatID, "⏳ Demasiadas consultas seguidas. Esperá unos segundos e intentá de nuevo.")
		return
	}
	h.sendTyping(chatID)

	intent, err := h.deps.AI.ClassifyIntent(ctx, text)
	if err != nil {
		h.logger.Warn("intent classification failed", zap.Error(err))
	}
	h.logger.Info("intent detected",
		zap.String("intent", intent),
		zap.Int64("telegram_id", msg.From.ID))

	switch intent {
	case ai.IntentAddExpense, ai.IntentAddIncome:
		parsed, err := h.deps.AI.ParseTransaction(ctx, text)
		if err != nil {
			h.logger.Warn("transaction parse failed", zap.Error(err))
		}
		if parsed != nil {
			h.saveAndConfirm(ctx, msg, parsed, "")
			return
		}
	case ai.IntentGetSummary:
		h.showSummary(ctx, msg, true)
		return
	case ai.IntentGetBudget, ai.IntentSetBudget:
		h.showBudgets(ctx, msg)
		return
	case ai.IntentListTransactions:
		h.showHistory(ctx, msg)
		return
	case ai.IntentListRecurring, ai.IntentAddRecurring:
		h.showRecurring(ctx, msg)
		return
	case ai.IntentGetReport:
		h.sendReport(ctx, msg, "")
		return
	case ai.IntentHelp:
		h.replyWithMenu(chatID, helpText)
		return
	}

	if h.deps.Analyst.IsQuestion(ctx, text) {
		h.answerWithAnalyst(ctx, msg, text)
		return
	}

	h.replyWithMenu(chatID,
		"🤔 No entendí tu mensaje. Podés:\n"+
			"• Escribir algo como \"Gasté $200 en el colectivo\"\n"+
			"• Hacer preguntas como \"¿cuánto gasté este mes?\" o \"proyectá mis gastos\"\n"+
			"• Usar los botones del menú\n"+
			"• Enviar un mensaje de voz o foto de ticket")
}

// saveAndConfirm persists a parsed transaction and replies with the detail
// plus any budget threshold the expense just crossed.
func (h *Handler) saveAndConfirm(ctx context.Context, msg *tgbotapi.Message, parsed *ai.ParsedTransaction, source string) {
	chatID := msg.Chat.ID

	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.logger.Error("failed to resolve user", zap.Error(err))
		h.reply(chatID, "❌ No pude guardar la transacción. Intentá de nuevo.")
		return
	}

	draft := ledgersvc.Draft{
		Amount:      parsed.Amount,
		Type:        parsed.Type,
		Category:    parsed.Category,
		Description: parsed.Description,
	}
	if d, err := time.Parse("2006-01-02", parsed.Date); err == nil {
		draft.Date = d
	}

	tx, duplicate, err := h.deps.Ledger.Add(ctx, user.ID, draft)
	if err != nil {
		h.logger.Error("failed to save transaction", zap.Error(err))
		h.reply(chatID, "❌ No pude guardar la transacción. Intentá de nuevo.")
		return
	}
	if duplicate {
		h.replyWithMenu(chatID, "🔁 Esa transacción ya estaba registrada, no la dupliqué.")
		return
	}

	alert := ""
	if tx.Type == "expense" {
		alerts, err := h.deps.Budgets.EvaluateExpense(ctx, user.ID, tx.Category, tx.Amount, tx.Date.Format("2006-01"))
		if err != nil {
			h.logger.Warn("budget evaluation failed", zap.Error(err))
		}
		alert = formatBudgetAlerts(alerts)
	}

	h.replyWithMarkup(chatID, formatSavedTransaction(tx, source, alert), confirmTransactionKeyboard(tx.ID))
}

func (h *Handler) showSummary(ctx context.Context, msg *tgbotapi.Message, withAdvice bool) {
	chatID := msg.Chat.ID
	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude cargar tu resumen. Intentá de nuevo.")
		return
	}

	month := time.Now().Format("2006-01")
	summary, err := h.deps.Ledger.MonthlySummary(ctx, user.ID, month)
	if err != nil {
		h.logger.Error("failed to build summary", zap.Error(err))
		h.reply(chatID, "❌ No pude cargar tu resumen. Intentá de nuevo.")
		return
	}
	h.reply(chatID, formatSummary(summary))

	if withAdvice && (summary.Income > 0 || summary.Expense > 0) && h.allowLLM(msg.From.ID) {
		h.reply(chatID, "💡 Generando consejo financiero… ⏳")
		advice, err := h.deps.AI.Advice(ctx, summary)
		if err != nil {
			h.logger.Warn("advice generation failed", zap.Error(err))
			return
		}
		h.reply(chatID, "💡 *Consejo del mes:*\n\n"+advice)
	}
}

func (h *Handler) showBudgets(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude cargar tus presupuestos.")
		return
	}

	month := time.Now().Format("2006-01")
	statuses, err := h.deps.Budgets.MonthStatus(ctx, user.ID, month)
	if err != nil {
		h.logger.Error("failed to load budget status", zap.Error(err))
		h.reply(chatID, "❌ No pude cargar tus presupuestos.")
		return
	}
	h.reply(chatID, formatBudgetStatus(statuses, month))
}

func (h *Handler) showHistory(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude cargar tu historial.")
		return
	}

	txs, err := h.deps.Ledger.ListRecent(ctx, user.ID, "", 10)
	if err != nil {
		h.logger.Error("failed to list transactions", zap.Error(err))
		h.reply(chatID, "❌ No pude cargar tu historial.")
		return
	}
	h.reply(chatID, formatTransactionList(txs))
}

func (h *Handler) showRecurring(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude cargar tus recurrentes.")
		return
	}

	recs, err := h.deps.Recurring.ListActive(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to list recurring entries", zap.Error(err))
		h.reply(chatID, "❌ No pude cargar tus recurrentes.")
		return
	}
	if len(recs) == 0 {
		h.reply(chatID, formatRecurringList(recs))
		return
	}
	h.replyWithMarkup(chatID, formatRecurringList(recs), recurringListKeyboard(recs))
}

func (h *Handler) sendReport(ctx context.Context, msg *tgbotapi.Message, month string) {
	chatID := msg.Chat.ID
	if month == "" {
		month = time.Now().Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		h.reply(chatID, "❌ Mes inválido. Usá el formato `YYYY-MM`, por ejemplo `/reporte 2026-01`.")
		return
	}

	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude generar el reporte.")
		return
	}

	h.reply(chatID, "📄 Generando tu reporte PDF… ⏳")
	path, err := h.deps.Reports.Monthly(ctx, user.ID, fullName(msg.From), month)
	if err != nil {
		h.logger.Error("failed to generate report", zap.Error(err))
		h.reply(chatID, "❌ No pude generar el reporte. Intentá de nuevo.")
		return
	}
	defer removeFile(path, h.logger)

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("📄 Reporte financiero de *%s*", month)
	doc.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(doc); err != nil {
		h.logger.Error("failed to send report", zap.Error(err))
	}
}

func (h *Handler) answerWithAnalyst(ctx context.Context, msg *tgbotapi.Message, question string) {
	chatID := msg.Chat.ID
	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude analizar tus datos. Intentá de nuevo.")
		return
	}

	h.sendTyping(chatID)
	answer, err := h.deps.Analyst.Answer(ctx, user.ID, fullName(msg.From), question)
	if err != nil {
		h.logger.Error("analyst failed", zap.Error(err))
		h.reply(chatID, "❌ No pude analizar tus datos. Intentá de nuevo.")
		return
	}
	h.replyWithMenuPlain(chatID, answer)
}

// sendDashboardLink mints a short-lived token binding the web session to
// this user.
func (h *Handler) sendDashboardLink(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if h.deps.JWTSecret == "" || h.deps.DashboardURL == "" {
		h.reply(chatID, "📭 El dashboard web no está habilitado.")
		return
	}

	user, _, err := h.deps.Users.GetOrCreate(ctx, msg.From.ID, fullName(msg.From))
	if err != nil {
		h.reply(chatID, "❌ No pude generar el acceso al dashboard.")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(h.deps.JWTSecret))
	if err != nil {
		h.logger.Error("failed to sign dashboard token", zap.Error(err))
		h.reply(chatID, "❌ No pude generar el acceso al dashboard.")
		return
	}

	h.reply(chatID, fmt.Sprintf(
		"🌐 *Tu dashboard web*\n\nEl link vence en 24 horas:\n%s?token=%s",
		h.deps.DashboardURL, signed))
}

// ── conversation and rate-limit state ──

func (h *Handler) conv(chatID int64) *conversation {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.convs[chatID]
	if !ok {
		c = &conversation{}
		h.convs[chatID] = c
	}
	return c
}

func (h *Handler) resetConv(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.convs, chatID)
}

// allowLLM caps model-backed requests at one every two seconds per user,
// with a small burst.
func (h *Handler) allowLLM(telegramID int64) bool {
	h.mu.Lock()
	lim, ok := h.limiters[telegramID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(2*time.Second), 5)
		h.limiters[telegramID] = lim
	}
	h.mu.Unlock()
	return lim.Allow()
}

// ── send helpers ──

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", zap.Error(err))
	}
}

func (h *Handler) replyWithMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = mainMenu()
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", zap.Error(err))
	}
}

// replyWithMenuPlain skips Markdown parsing; analyst answers can carry
// characters Telegram would reject as markup.
func (h *Handler) replyWithMenuPlain(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenu()
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", zap.Error(err))
	}
}

func (h *Handler) replyWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", zap.Error(err))
	}
}

func (h *Handler) sendTyping(chatID int64) {
	if _, err := h.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		h.logger.Debug("failed to send typing action", zap.Error(err))
	}
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
