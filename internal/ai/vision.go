package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/mgiraudo/gastosbot/internal/pkg/sanitize"
	openai "github.com/sashabaranov/go-openai"
)

// ParseReceipt reads a photographed ticket in two passes. The image goes to
// the vision model exactly once and only to transcribe visible text; that text
// is scrubbed of card numbers, CUIT, CBU, emails and DNI before the second
// pass, which works on plain text and never sees the image. Returns (nil, nil)
// when the photo is not a readable receipt.
func (c *Client) ParseReceipt(ctx context.Context, image []byte, mimeType string) (*ParsedTransaction, error) {
	text, err := c.extractImageText(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return c.parseReceiptText(ctx, text)
}

func (c *Client) extractImageText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Extrae TODO el texto visible en esta imagen, tal como aparece. " +
							"No interpretes, solo transcribe. " +
							"No incluyas descripción de la imagen ni metadatos.",
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		return "", fmt.Errorf("vision extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision extraction returned no choices")
	}

	return sanitize.Text(resp.Choices[0].Message.Content), nil
}

func (c *Client) parseReceiptText(ctx context.Context, text string) (*ParsedTransaction, error) {
	today := time.Now().Format("2006-01-02")

	system := fmt.Sprintf(`Analiza el texto de un ticket o recibo y extrae la información financiera.
Hoy es %s.

Responde ÚNICAMENTE con un JSON válido:
{
  "amount": <monto total como número positivo>,
  "category": "<categoría del gasto>",
  "description": "<nombre del negocio o descripción breve, máximo 60 caracteres>",
  "date": "<YYYY-MM-DD, usa hoy si no se ve la fecha>"
}

Categorías disponibles: %s

Reglas:
- El campo "amount" debe ser el TOTAL del ticket, no un subtotal.
- El campo "description" debe ser solo el nombre del negocio o tipo de compra, sin datos personales.
- Si el texto no corresponde a un ticket o no se puede determinar el monto, responde exactamente: null`,
		today, strings.Join(ExpenseCategories, ", "))

	raw, err := c.chat(ctx, c.model, system, "Texto del ticket:\n\n"+text, 0, 300)
	if err != nil {
		return nil, err
	}

	parsed := normalizeParsed(raw, today)
	if parsed == nil {
		return nil, nil
	}
	// A ticket is always an expense, whatever the model said.
	parsed.Type = "expense"
	if desc := []rune(parsed.Description); len(desc) > 60 {
		parsed.Description = string(desc[:60])
	}
	return parsed, nil
}
