// Package orchestrator ties the inbound pipeline together: it resolves the
// contact, persists the incoming message synchronously, and hands reply
// generation and delivery to a bounded background worker pool.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coachbotai/coachbot/internal/contacts"
	"github.com/coachbotai/coachbot/internal/gateway"
	"github.com/coachbotai/coachbot/internal/messages"
	"github.com/coachbotai/coachbot/internal/responder"
	"github.com/coachbotai/coachbot/internal/summaries"
)

const (
	// historyLimit is how many trailing messages feed one turn.
	historyLimit = 20
	// summaryInterval triggers summarization every N messages of history.
	summaryInterval = 10
	// turnTimeout bounds one background generate-and-deliver cycle.
	turnTimeout = 5 * time.Minute
)

// ContactResolver is the contact registry surface the pipeline needs.
type ContactResolver interface {
	ResolveOrCreate(ctx context.Context, phone, displayName string) (contacts.Contact, error)
	RecordMessage(ctx context.Context, contactID string) error
}

// MessageLog is the conversation-log surface the pipeline needs.
type MessageLog interface {
	Create(ctx context.Context, req messages.CreateRequest) (messages.Message, error)
	History(ctx context.Context, contactID string, limit int) ([]messages.Message, error)
	LinkResponse(ctx context.Context, messageID, responseID string) error
}

// ReplyGenerator produces the reply text for a turn.
type ReplyGenerator interface {
	Generate(ctx context.Context, contact contacts.Contact, messageContent string, history []messages.Message) responder.Result
	Summarize(ctx context.Context, window []messages.Message) (responder.SummaryData, error)
}

// Deliverer sends a reply with the humanized delay and persists it.
type Deliverer interface {
	Deliver(ctx context.Context, contact contacts.Contact, text string, delayMin, delayMax int) (messages.Message, error)
}

// SummaryStore persists conversation summaries.
type SummaryStore interface {
	Create(ctx context.Context, req summaries.CreateRequest) (summaries.Summary, error)
}

// turn is one unit of background work: reply to inboundMsg from contact.
type turn struct {
	contact    contacts.Contact
	inboundMsg messages.Message
}

type Orchestrator struct {
	contacts  ContactResolver
	log       MessageLog
	generator ReplyGenerator
	deliverer Deliverer
	summaries SummaryStore
	logger    *slog.Logger

	queue chan turn
	wg    sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	dropped int
}

// New starts an orchestrator with the given worker-pool size and queue depth.
// Call Shutdown to drain it.
func New(log *slog.Logger, contactResolver ContactResolver, messageLog MessageLog, generator ReplyGenerator, deliverer Deliverer, summaryStore SummaryStore, workers, queueSize int) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	o := &Orchestrator{
		contacts:  contactResolver,
		log:       messageLog,
		generator: generator,
		deliverer: deliverer,
		summaries: summaryStore,
		logger:    log.With(slog.String("service", "orchestrator")),
		queue:     make(chan turn, queueSize),
	}
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for t := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		o.runTurn(ctx, t)
		cancel()
	}
}

// HandleInbound processes one webhook event. The incoming message is persisted
// before returning; reply generation runs in the background only when the
// contact has AI enabled and is active. A store failure is returned so the
// transport layer can log it (it still acknowledges the webhook).
func (o *Orchestrator) HandleInbound(ctx context.Context, event gateway.InboundEvent) error {
	phone := gateway.FormatInbound(event.From)

	contact, err := o.contacts.ResolveOrCreate(ctx, phone, event.ProfileName)
	if err != nil {
		return fmt.Errorf("resolve contact %s: %w", phone, err)
	}

	inbound, err := o.log.Create(ctx, messages.CreateRequest{
		ContactID:        contact.ID,
		Content:          event.Body,
		MessageType:      messages.TypeText,
		Direction:        messages.DirectionIncoming,
		GatewayMessageID: event.MessageID,
	})
	if err != nil {
		return fmt.Errorf("persist incoming message: %w", err)
	}
	if err := o.contacts.RecordMessage(ctx, contact.ID); err != nil {
		o.logger.Warn("contact counter bump failed",
			slog.String("contact_id", contact.ID), slog.Any("error", err))
	}

	if !contact.AIEnabled || contact.Status != contacts.StatusActive {
		o.logger.Info("reply suppressed",
			slog.String("contact_id", contact.ID),
			slog.Bool("ai_enabled", contact.AIEnabled),
			slog.String("status", string(contact.Status)))
		return nil
	}

	o.enqueue(turn{contact: contact, inboundMsg: inbound})
	return nil
}

func (o *Orchestrator) enqueue(t turn) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		o.logger.Warn("turn dropped, orchestrator shut down",
			slog.String("contact_id", t.contact.ID))
		return
	}
	select {
	case o.queue <- t:
	default:
		o.dropped++
		o.logger.Warn("turn dropped, worker queue full",
			slog.String("contact_id", t.contact.ID),
			slog.Int("dropped_total", o.dropped))
	}
}

// runTurn generates, delivers, links, and summarizes for one inbound message.
func (o *Orchestrator) runTurn(ctx context.Context, t turn) {
	history, err := o.log.History(ctx, t.contact.ID, historyLimit)
	if err != nil {
		o.logger.Error("history read failed, replying without context",
			slog.String("contact_id", t.contact.ID), slog.Any("error", err))
		history = nil
	}

	result := o.generator.Generate(ctx, t.contact, t.inboundMsg.Content, history)
	if result.Source == responder.SourceFallback {
		o.logger.Warn("delivering fallback reply",
			slog.String("contact_id", t.contact.ID), slog.Any("error", result.Err))
	}

	reply, err := o.deliverer.Deliver(ctx, t.contact, result.Text,
		result.Params.DelayMin, result.Params.DelayMax)
	if err != nil {
		o.logger.Error("delivery failed",
			slog.String("contact_id", t.contact.ID), slog.Any("error", err))
		return
	}
	if err := o.log.LinkResponse(ctx, t.inboundMsg.ID, reply.ID); err != nil {
		o.logger.Warn("response link failed",
			slog.String("message_id", t.inboundMsg.ID), slog.Any("error", err))
	}

	o.maybeSummarize(ctx, t.contact, history)
}

// maybeSummarize condenses the conversation every summaryInterval messages,
// judged on the turn's history snapshot. Generation failures skip the cycle;
// the next qualifying turn tries again.
func (o *Orchestrator) maybeSummarize(ctx context.Context, contact contacts.Contact, history []messages.Message) {
	if len(history) == 0 || len(history)%summaryInterval != 0 {
		return
	}
	data, err := o.generator.Summarize(ctx, history)
	if err != nil {
		o.logger.Warn("summarization skipped",
			slog.String("contact_id", contact.ID), slog.Any("error", err))
		return
	}
	if _, err := o.summaries.Create(ctx, summaries.CreateRequest{
		ContactID: contact.ID,
		Summary:   data.Summary,
		KeyTopics: data.KeyTopics,
		Sentiment: data.Sentiment,
	}); err != nil {
		o.logger.Warn("summary store failed",
			slog.String("contact_id", contact.ID), slog.Any("error", err))
	}
}

// Dropped reports how many turns were rejected by a full queue.
func (o *Orchestrator) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Shutdown stops accepting turns and waits for in-flight workers.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}
