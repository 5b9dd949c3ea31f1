package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const analystFallback = "❌ No pude analizar tus datos en este momento. Intentá de nuevo en unos segundos."

// AnswerQuestion answers a free-form financial question against the user's
// full data. API failures degrade into a friendly fallback instead of an
// error so the bot always has something to say.
func (c *Client) AnswerQuestion(ctx context.Context, question, userName string, data any) string {
	today := time.Now().Format("2006-01-02")
	if userName == "" {
		userName = "el usuario"
	}

	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		c.logger.Error("failed to encode analyst context", zap.Error(err))
		return analystFallback
	}

	system := fmt.Sprintf(`Eres un asesor financiero personal experto trabajando con datos REALES del usuario.
Hoy es %s. El usuario se llama %s.

Tu rol: analizar los datos financieros que te proporciono y responder la pregunta con precisión,
razonando paso a paso cuando sea necesario.

CAPACIDADES:
- Calcular cuotas pendientes de compras en cuotas (identificalas por descripción, ej: "cuota 3/12")
- Proyectar gastos futuros basándote en el promedio histórico
- Identificar tendencias de gasto/ingreso mes a mes
- Responder comparativas entre períodos
- Estimar fechas de ahorro para metas
- Detectar gastos inusuales o categorías problemáticas
- Analizar la salud financiera general

DATOS DEL USUARIO:
%s

INSTRUCCIONES DE RESPUESTA:
- Sé conciso pero completo. Máximo 300 palabras.
- Usa números concretos de los datos. No inventes cifras.
- Usa emojis para hacer la respuesta más legible.
- Si hay cuotas, lista cada una con cuántas quedan y el monto.
- Si hacés proyecciones, explicá el método (promedio de N meses).
- Si la pregunta no puede responderse con los datos disponibles, decilo claramente.
- Respondé en español argentino.
- NO uses bloques de código ni tablas complejas. Sé conversacional.
- NO uses caracteres especiales de Markdown como *, _, que rompen Telegram.
  Solo podés usar emojis y texto plano.`, today, userName, string(payload))

	answer, err := c.chat(ctx, c.model, system, question, 0.3, 600)
	if err != nil {
		c.logger.Error("analyst completion failed", zap.Error(err))
		return analystFallback
	}
	return answer
}

// DetectAnalystIntent decides whether a message is an analytical question
// about the user's finances, as opposed to a transaction or a menu command.
// Errors count as "no" so the normal flow keeps working.
func (c *Client) DetectAnalystIntent(ctx context.Context, text string) bool {
	system := `Determiná si el mensaje del usuario es una PREGUNTA ANALÍTICA sobre sus finanzas.

Ejemplos de PREGUNTA ANALÍTICA (responder true):
- "¿cuántas cuotas me quedan?"
- "haceme una proyección de gastos"
- "en qué gasto más?"
- "comparame este mes con el anterior"
- "¿cuándo puedo ahorrar 100000 pesos?"
- "¿cuánto gasté en promedio por semana?"
- "¿cómo van mis finanzas?"
- "¿me alcanza el sueldo?"
- "analizá mis gastos"
- "¿en qué categoría me paso más?"

Ejemplos que NO son analíticas (responder false):
- "gasté 500 en taxi" (registrar gasto)
- "cobré el sueldo" (registrar ingreso)
- "quiero ver el resumen" (comando de menú)
- "ayuda" (comando)
- "hola" (saludo)

Respondé ÚNICAMENTE con: true o false`

	raw, err := c.chat(ctx, c.model, system, text, 0, 5)
	if err != nil {
		c.logger.Warn("analyst intent detection failed", zap.Error(err))
		return false
	}
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}
