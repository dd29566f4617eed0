package responder

import (
	"fmt"
	"strings"

	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/training"
)

const (
	// historyWindow bounds how many trailing messages feed the context.
	historyWindow = 10
	// snippetMaxLen bounds each reference snippet before inclusion.
	snippetMaxLen = 200

	firstConversationMarker = "Esta es la primera conversación con este contacto."
	emptyCorpusMarker       = "No hay datos de entrenamiento específicos disponibles."
)

const memoryDirectives = `
IMPORTANTE - MEMORIA Y PERSONALIZACIÓN:
- Recuerda siempre las conversaciones previas con este contacto
- Adapta tu tono y consejos según el nivel de experiencia que hayas observado
- Si es la primera vez que hablas con esta persona, preséntate como Rubén
- Mantén continuidad en los planes y objetivos que hayas discutido antes
- Si no recuerdas algo específico, pregunta de manera natural

ESTILO DE COMUNICACIÓN:
- Responde de forma concisa pero útil (máximo 2-3 párrafos)
- Usa emojis relevantes al fitness (💪, 🏋️, 🔥, etc.) pero con moderación
- Haz preguntas específicas para entender mejor sus objetivos
- Da consejos prácticos y aplicables inmediatamente
- Motiva pero sin ser exagerado o falso`

// buildSystemPrompt concatenates persona, contact profile facts, optional
// custom instructions, and the fixed style/memory directives.
func buildSystemPrompt(persona string, contact contacts.Contact, customPrompt string) string {
	name := contact.Name
	if name == "" {
		name = "No especificado"
	}
	notes := contact.Notes
	if notes == "" {
		notes = "Sin notas adicionales"
	}
	tags := "Sin tags"
	if len(contact.Tags) > 0 {
		tags = strings.Join(contact.Tags, ", ")
	}
	profile := fmt.Sprintf(`
Información del contacto actual:
- Nombre: %s
- Teléfono: %s
- Notas: %s
- Tags: %s
- Estado: %s`, name, contact.PhoneNumber, notes, tags, contact.Status)

	custom := ""
	if strings.TrimSpace(customPrompt) != "" {
		custom = "\n\nInstrucciones adicionales específicas: " + customPrompt
	}
	return persona + profile + custom + "\n" + memoryDirectives
}

// buildConversationContext renders the trailing history window oldest-first,
// one line per message tagged with timestamp and speaker. Empty history
// yields an explicit first-conversation marker so the model does not invent
// prior context. History must already be chronological.
func buildConversationContext(history []messages.Message) string {
	if len(history) == 0 {
		return firstConversationMarker
	}
	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	lines := make([]string, 0, len(recent))
	for _, msg := range recent {
		speaker := "Rubén"
		if msg.Direction == messages.DirectionIncoming {
			speaker = "Usuario"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			msg.CreatedAt.Format("2006-01-02 15:04"), speaker, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// buildTrainingContext renders retrieved reference snippets, truncated.
func buildTrainingContext(snippets []training.Scored) string {
	if len(snippets) == 0 {
		return emptyCorpusMarker
	}
	lines := make([]string, 0, len(snippets))
	for _, item := range snippets {
		lines = append(lines, "Referencia de entrenamiento: "+truncate(item.Datum.Content, snippetMaxLen)+"...")
	}
	return strings.Join(lines, "\n")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
