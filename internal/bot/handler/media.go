package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	ledgersvc "github.com/mgiraudo/gastosbot/internal/ledger/service"
	"github.com/mgiraudo/gastosbot/internal/statement"
	"go.uber.org/zap"
)

const maxDownloadBytes = 20 << 20 // Telegram bot API file limit

// handleVoice transcribes a voice note and pushes the text through the same
// parse-and-save flow as a typed message.
func (h *Handler) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !h.allowLLM(msg.From.ID) {
		h.reply(chatID, "⏳ Demasiadas consultas seguidas. Esperá unos segundos e intentá de nuevo.")
		return
	}
	h.reply(chatID, "🎤 Transcribiendo tu audio… ⏳")

	fileID, filename := voiceFile(msg)
	audio, err := h.downloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("failed to download voice note", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Ocurrió un error al procesar tu audio. Por favor intentá de nuevo.")
		return
	}

	text, err := h.deps.AI.Transcribe(ctx, audio, filename)
	if err != nil {
		h.logger.Error("transcription failed", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Ocurrió un error al procesar tu audio. Por favor intentá de nuevo.")
		return
	}
	h.logger.Info("voice transcribed", zap.Int64("telegram_id", msg.From.ID))
	h.reply(chatID, fmt.Sprintf("🎙️ Entendí: _%s_", text))

	parsed, err := h.deps.AI.ParseTransaction(ctx, text)
	if err != nil {
		h.logger.Warn("transaction parse failed", zap.Error(err))
	}
	if parsed == nil {
		h.reply(chatID,
			"🤔 No detecté una transacción en tu mensaje de voz.\n"+
				"Intentá con algo como: _\"Gasté doscientos pesos en el colectivo\"_")
		return
	}
	h.saveAndConfirm(ctx, msg, parsed, "por voz")
}

func voiceFile(msg *tgbotapi.Message) (fileID, filename string) {
	if msg.Voice != nil {
		return msg.Voice.FileID, "voice.ogg"
	}
	name := msg.Audio.FileName
	if name == "" {
		name = "audio.mp3"
	}
	return msg.Audio.FileID, name
}

// handlePhoto runs the two-pass receipt reader over the highest-resolution
// photo and saves the detected expense.
func (h *Handler) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !h.allowLLM(msg.From.ID) {
		h.reply(chatID, "⏳ Demasiadas consultas seguidas. Esperá unos segundos e intentá de nuevo.")
		return
	}
	h.reply(chatID, "📷 Analizando el ticket… ⏳")

	fileID, mimeType := photoFile(msg)
	image, err := h.downloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("failed to download photo", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Error al procesar la imagen. Por favor intentá de nuevo.")
		return
	}

	parsed, err := h.deps.AI.ParseReceipt(ctx, image, mimeType)
	if err != nil {
		h.logger.Error("receipt analysis failed", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Error al procesar la imagen. Por favor intentá de nuevo.")
		return
	}
	if parsed == nil {
		h.replyWithMenu(chatID,
			"🤔 No pude identificar datos financieros en esta imagen.\n"+
				"Asegurate de que sea un ticket o recibo claro.")
		return
	}
	h.saveAndConfirm(ctx, msg, parsed, "desde ticket")
}

func photoFile(msg *tgbotapi.Message) (fileID, mimeType string) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, "image/jpeg"
	}
	return msg.Document.FileID, msg.Document.MimeType
}

// handleDocument routes PDFs to the statement importer and images to the
// receipt flow; anything else is declined.
func (h *Handler) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	switch {
	case doc.MimeType == "application/pdf" || strings.HasSuffix(strings.ToLower(doc.FileName), ".pdf"):
		h.handleStatement(ctx, msg)
	case strings.HasPrefix(doc.MimeType, "image/"):
		h.handlePhoto(ctx, msg)
	default:
		h.replyWithMenu(msg.Chat.ID, "🤔 Solo proceso PDFs de resúmenes bancarios e imágenes de tickets.")
	}
}

// handleStatement parses a card statement, sends its summary and a preview,
// and leaves the items pending until the user confirms the import.
func (h *Handler) handleStatement(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !h.allowLLM(msg.From.ID) {
		h.reply(chatID, "⏳ Demasiadas consultas seguidas. Esperá unos segundos e intentá de nuevo.")
		return
	}
	h.reply(chatID, "📄 Analizando el documento PDF… ⏳\nEsto puede tardar unos segundos.")

	data, err := h.downloadFile(ctx, msg.Document.FileID)
	if err != nil {
		h.logger.Error("failed to download pdf", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Hubo un error al procesar el PDF. Verificá que sea un documento válido.")
		return
	}

	text, err := statement.ExtractText(data)
	if err != nil {
		h.logger.Error("failed to extract pdf text", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Hubo un error al procesar el PDF. Verificá que sea un documento válido.")
		return
	}

	summary, err := h.deps.Statements.Summarize(ctx, text)
	if err != nil {
		h.logger.Warn("statement summary failed", zap.Error(err))
	} else {
		h.replyWithMenuPlain(chatID, "📋 Resumen del documento:\n\n"+summary)
	}

	items, err := h.deps.Statements.Parse(ctx, text)
	if err != nil {
		h.logger.Error("statement parse failed", zap.Error(err))
		h.replyWithMenu(chatID, "❌ Error al analizar el PDF con IA. Intentá de nuevo.")
		return
	}
	if len(items) == 0 {
		h.replyWithMenu(chatID,
			"🤔 No encontré transacciones en este PDF.\n"+
				"Asegurate de que sea un resumen de tarjeta o extracto bancario.")
		return
	}

	h.conv(chatID).pendingStatement = items
	h.replyWithMarkup(chatID, formatStatementPreview(items), statementImportKeyboard(len(items)))
}

// importStatement saves the pending items, dedup-aware, and reports counts.
func (h *Handler) importStatement(ctx context.Context, from *tgbotapi.User, items []statement.Item) string {
	user, _, err := h.deps.Users.GetOrCreate(ctx, from.ID, fullName(from))
	if err != nil {
		h.logger.Error("failed to resolve user for import", zap.Error(err))
		return "❌ Error al importar. Intentá de nuevo."
	}

	var saved, skipped, failed int
	for _, item := range items {
		draft := ledgersvc.Draft{
			Amount:                item.Amount,
			Type:                  item.Type,
			Category:              item.Category,
			Description:           item.Description,
			Date:                  item.Date,
			InstallmentCurrent:    item.InstallmentCurrent,
			InstallmentTotal:      item.InstallmentTotal,
			InstallmentsRemaining: item.InstallmentsRemaining,
		}
		_, duplicate, err := h.deps.Ledger.Add(ctx, user.ID, draft)
		switch {
		case err != nil:
			h.logger.Error("failed to import statement item", zap.Error(err))
			failed++
		case duplicate:
			skipped++
		default:
			saved++
		}
	}

	h.logger.Info("statement imported",
		zap.Int64("user_id", user.ID),
		zap.Int("saved", saved),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))

	result := fmt.Sprintf("Importación completada\n\nNuevas: %d", saved)
	if skipped > 0 {
		result += fmt.Sprintf("\nYa existían: %d", skipped)
	}
	if failed > 0 {
		result += fmt.Sprintf("\nErrores: %d", failed)
	}
	return result
}

// downloadFile fetches a Telegram file by id over the bot file endpoint.
func (h *Handler) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := h.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(h.bot.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected download status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

func removeFile(path string, logger *zap.Logger) {
	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove temp file", zap.String("path", path), zap.Error(err))
	}
}
