// Package responder generates persona-consistent replies: it assembles the
// grounded context, invokes the completion service, post-processes the text,
// and resolves every failure to a fallback rather than an error.
package responder

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/coachbotai/coachbot/internal/aiconfig"
	"github.com/coachbotai/coachbot/internal/completion"
	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/training"
)

const (
	// maxReplyLength is the hard ceiling before truncation kicks in.
	maxReplyLength = 1000
	// truncateTo is the length replies are cut to, plus an ellipsis marker.
	truncateTo = 950
	// nameInjectChance is the probability of personalizing a reply with the
	// contact's name next to an exclamation mark.
	nameInjectChance = 0.3

	// Repetition penalties applied to conversational replies only.
	// Summarization and analysis calls run without them.
	replyPresencePenalty  = 0.6
	replyFrequencyPenalty = 0.3
)

// fallbackReplies are the persona-consistent apologies used when the
// completion service fails. One is chosen uniformly at random.
var fallbackReplies = []string{
	"¡Hola! Soy Rubén, tu entrenador fitness 💪 Disculpa, tuve un pequeño problema técnico. ¿Podrías repetir tu pregunta?",
	"¡Hey! Rubén aquí 🏋️ Parece que hubo una falla temporal en mi sistema. ¿En qué puedo ayudarte con tu entrenamiento?",
	"¡Hola! Soy Rubén 🔥 Tuve un momentito de desconexión, pero ya estoy aquí. ¿Qué necesitas saber sobre fitness?",
}

// Source tells whether a reply came from the model or from the fallback set.
type Source int

const (
	SourceModel Source = iota
	SourceFallback
)

// Result is a generated reply. When Source is SourceFallback, Err carries the
// underlying completion failure for operators; callers still deliver Text.
type Result struct {
	Text   string
	Params aiconfig.Params
	Source Source
	Err    error
}

// ConfigResolver resolves effective generation parameters for a contact.
type ConfigResolver interface {
	Resolve(ctx context.Context, contactID string) (aiconfig.Params, error)
}

// Retriever returns the reference snippets most relevant to a query.
type Retriever interface {
	Relevant(ctx context.Context, query string, k int) []training.Scored
}

type Responder struct {
	completer    completion.Completer
	configs      ConfigResolver
	retriever    Retriever
	persona      string
	chatModel    string
	summaryModel string
	logger       *slog.Logger
	roll         func() float64
	pick         func(n int) int
}

func New(log *slog.Logger, completer completion.Completer, configs ConfigResolver, retriever Retriever, persona, chatModel, summaryModel string) *Responder {
	if log == nil {
		log = slog.Default()
	}
	return &Responder{
		completer:    completer,
		configs:      configs,
		retriever:    retriever,
		persona:      persona,
		chatModel:    chatModel,
		summaryModel: summaryModel,
		logger:       log.With(slog.String("service", "responder")),
		roll:         rand.Float64,
		pick:         rand.Intn,
	}
}

// Generate produces a reply for an incoming message. It never fails: any
// completion-service error resolves to one of the fallback replies, with the
// cause recorded on the Result for logging.
func (r *Responder) Generate(ctx context.Context, contact contacts.Contact, messageContent string, history []messages.Message) Result {
	params, err := r.configs.Resolve(ctx, contact.ID)
	if err != nil {
		r.logger.Warn("ai config lookup failed, using defaults",
			slog.String("contact_id", contact.ID), slog.Any("error", err))
		params = aiconfig.Defaults()
	}

	snippets := r.retriever.Relevant(ctx, messageContent, training.DefaultTopK)

	contactLabel := contact.Name
	if contactLabel == "" {
		contactLabel = contact.PhoneNumber
	}
	prompt := []completion.Message{
		{Role: "system", Content: buildSystemPrompt(r.persona, contact, params.SystemPrompt)},
		{Role: "system", Content: "Contexto de entrenamiento: " + buildTrainingContext(snippets)},
		{Role: "system", Content: "Historial de conversación con " + contactLabel + ": " + buildConversationContext(history)},
		{Role: "user", Content: messageContent},
	}

	text, err := r.completer.Complete(ctx, completion.Request{
		Model:            r.chatModel,
		Messages:         prompt,
		MaxTokens:        params.MaxTokens,
		Temperature:      params.Temperature,
		PresencePenalty:  replyPresencePenalty,
		FrequencyPenalty: replyFrequencyPenalty,
	})
	if err != nil {
		r.logger.Error("completion failed, falling back",
			slog.String("contact_id", contact.ID), slog.Any("error", err))
		return Result{
			Text:   fallbackReplies[r.pick(len(fallbackReplies))],
			Params: params,
			Source: SourceFallback,
			Err:    err,
		}
	}

	return Result{
		Text:   r.postProcess(text, contact.Name),
		Params: params,
		Source: SourceModel,
	}
}

// postProcess truncates oversized replies and occasionally injects the
// contact's name next to an exclamation mark.
func (r *Responder) postProcess(text, contactName string) string {
	if len([]rune(text)) > maxReplyLength {
		text = string([]rune(text)[:truncateTo]) + "..."
	}
	if contactName != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(contactName)) {
		if r.roll() < nameInjectChance {
			text = strings.Replace(text, "!", " "+contactName+"!", 1)
		}
	}
	return text
}

// SummaryData is the structured result of condensing a conversation.
type SummaryData struct {
	Summary   string   `json:"summary"`
	KeyTopics []string `json:"key_topics"`
	Sentiment string   `json:"sentiment"`
}

// Summarize condenses a message window into a structured summary. An empty
// window returns the zero summary with neutral sentiment. A completion
// failure is returned to the caller (summaries are best-effort and skipped);
// a parse failure degrades to raw text with neutral sentiment and no topics.
func (r *Responder) Summarize(ctx context.Context, window []messages.Message) (SummaryData, error) {
	if len(window) == 0 {
		return SummaryData{Summary: "", KeyTopics: []string{}, Sentiment: "neutral"}, nil
	}

	var rendered strings.Builder
	for _, msg := range window {
		speaker := "Rubén"
		if msg.Direction == messages.DirectionIncoming {
			speaker = "Usuario"
		}
		rendered.WriteString(speaker + ": " + msg.Content + "\n")
	}

	prompt := `Analiza esta conversación entre Rubén (entrenador fitness) y un usuario.
Genera un resumen conciso y extrae los temas clave.

Conversación:
` + rendered.String() + `

Responde en formato JSON con:
- summary: resumen breve de la conversación
- key_topics: lista de temas principales discutidos
- sentiment: sentimiento general (positive/neutral/negative)`

	text, err := r.completer.Complete(ctx, completion.Request{
		Model:       r.summaryModel,
		Messages:    []completion.Message{{Role: "user", Content: prompt}},
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		return SummaryData{}, err
	}

	var parsed SummaryData
	if err := json.Unmarshal([]byte(completion.StripCodeFences(text)), &parsed); err != nil {
		return SummaryData{Summary: text, KeyTopics: []string{}, Sentiment: "neutral"}, nil
	}
	if parsed.KeyTopics == nil {
		parsed.KeyTopics = []string{}
	}
	if strings.TrimSpace(parsed.Sentiment) == "" {
		parsed.Sentiment = "neutral"
	}
	return parsed, nil
}

// Analysis is the structured result of examining a training text.
type Analysis struct {
	StyleNotes        string   `json:"style_notes"`
	KeyKnowledge      []string `json:"key_knowledge"`
	PersonalityTraits []string `json:"personality_traits"`
	UsefulPhrases     []string `json:"useful_phrases"`
}

// Analyze extracts style and knowledge notes from a training text. It is
// best-effort: parse failures and service failures both degrade to an empty
// structure.
func (r *Responder) Analyze(ctx context.Context, content string) Analysis {
	prompt := `Analiza este texto de entrenamiento para un bot de fitness llamado Rubén.
Extrae la información más importante sobre el estilo de comunicación y conocimiento.

Texto:
` + content + `

Responde en formato JSON con:
- style_notes: notas sobre el estilo de comunicación
- key_knowledge: conocimientos clave extraídos
- personality_traits: rasgos de personalidad observados
- useful_phrases: frases útiles que Rubén podría usar`

	text, err := r.completer.Complete(ctx, completion.Request{
		Model:       r.summaryModel,
		Messages:    []completion.Message{{Role: "user", Content: prompt}},
		MaxTokens:   400,
		Temperature: 0.3,
	})
	if err != nil {
		r.logger.Warn("training analysis failed", slog.Any("error", err))
		return Analysis{}
	}
	var parsed Analysis
	if err := json.Unmarshal([]byte(completion.StripCodeFences(text)), &parsed); err != nil {
		return Analysis{}
	}
	return parsed
}

// FallbackReplies exposes the fixed fallback set for tests and operators.
func FallbackReplies() []string {
	out := make([]string, len(fallbackReplies))
	copy(out, fallbackReplies)
	return out
}
